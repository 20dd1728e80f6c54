package transport

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// checkURL applies the strict syntax precheck: a scheme is required, the host
// must carry a plausible TLD (or be an IP address or localhost), and literal
// spaces are tolerated by escaping them. The check never touches the network.
func checkURL(rawURL string) (*url.URL, error) {
	escaped := strings.ReplaceAll(rawURL, " ", "%20")

	u, err := url.Parse(escaped)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported or missing scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}

	if !plausibleHost(host) {
		return nil, fmt.Errorf("host %q has no plausible TLD", host)
	}

	return u, nil
}

// plausibleHost accepts IP literals, localhost, and dotted names whose last
// label looks like a TLD (at least two letters).
func plausibleHost(host string) bool {
	if host == "localhost" {
		return true
	}

	if net.ParseIP(host) != nil {
		return true
	}

	dot := strings.LastIndex(host, ".")
	if dot < 0 || dot == len(host)-1 {
		return false
	}

	tld := host[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
