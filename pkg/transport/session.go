package transport

import (
	"net"
	"net/http"
	"time"
)

// Session is a shared connection cache. It amortizes DNS, TCP and TLS setup
// across calls and is safe for concurrent use; all locking is internal to the
// underlying http.Transport.
type Session struct {
	transport *http.Transport
}

// NewSession creates a session with pooling defaults suited for harvesting
// (many sequential calls against few hosts).
func NewSession() *Session {
	return &Session{
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Close releases pooled connections.
func (s *Session) Close() {
	s.transport.CloseIdleConnections()
}

// roundTripper selects the round tripper for one call: the request's shared
// session when opted in, otherwise a one-shot transport honoring the
// connect-phase timeout.
func roundTripper(req *Request) (http.RoundTripper, func()) {
	if req.Session != nil {
		return req.Session.transport, func() {}
	}

	dialer := &net.Dialer{KeepAlive: -1}
	if req.Timeout.Connect > 0 {
		dialer.Timeout = req.Timeout.Connect
	}

	oneShot := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return oneShot, oneShot.CloseIdleConnections
}
