package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// redirectStatuses are the statuses that arm Location detection.
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true, // 301
	http.StatusFound:             true, // 302
	http.StatusSeeOther:          true, // 303
	http.StatusTemporaryRedirect: true, // 307
	http.StatusPermanentRedirect: true, // 308
}

// headerParser reconstructs a redirect chain from raw response header lines.
// One parser is owned by exactly one transport call; it is the explicit
// replacement for closure-captured mutable state.
//
// A status line resets the header sink (a new hop started) and, when the
// status is a redirect, arms Location detection with that status. The next
// Location header seen while armed records a hop for the previous URL,
// resolves the (possibly relative) Location against it, and becomes the new
// current URL.
type headerParser struct {
	currentURL  *url.URL
	armedStatus int
	headerSink  http.Header

	hops       []Redirection
	lastStatus int
}

func newHeaderParser(initial *url.URL) *headerParser {
	return &headerParser{
		currentURL: initial,
		headerSink: make(http.Header),
	}
}

// processLine consumes one raw header line (status line or "Name: value").
// Lines without a colon that are not status lines are ignored.
func (p *headerParser) processLine(line string) {
	line = strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(line, "HTTP/") {
		p.headerSink = make(http.Header)

		status := parseStatusLine(line)
		if status == 0 {
			return
		}
		p.lastStatus = status

		if redirectStatuses[status] {
			p.armedStatus = status
		}
		return
	}

	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}

	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if p.armedStatus != 0 && strings.EqualFold(name, "Location") {
		p.hops = append(p.hops, Redirection{
			URL:    p.currentURL.String(),
			Type:   RedirectionTypeLocationHeader,
			Status: p.armedStatus,
		})

		if next, err := p.currentURL.Parse(value); err == nil {
			p.currentURL = next
		}
		p.armedStatus = 0
	}

	p.headerSink.Add(name, value)
}

// consumeResponse feeds one full response (status line plus headers) through
// the parser.
func (p *headerParser) consumeResponse(resp *http.Response) {
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	p.processLine(proto + " " + strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode))

	for name, values := range resp.Header {
		for _, value := range values {
			p.processLine(name + ": " + value)
		}
	}
}

// finish appends the terminal hop for the effective URL and returns the
// completed chain, oldest hop first.
func (p *headerParser) finish() []Redirection {
	return append(p.hops, Redirection{
		URL:    p.currentURL.String(),
		Status: p.lastStatus,
	})
}

// parseStatusLine extracts the status code from an "HTTP/x.y NNN reason"
// line, returning 0 when the line is malformed.
func parseStatusLine(line string) int {
	_, rest, ok := strings.Cut(line, " ")
	if !ok || len(rest) < 3 {
		return 0
	}

	status, err := strconv.Atoi(rest[:3])
	if err != nil {
		return 0
	}
	return status
}
