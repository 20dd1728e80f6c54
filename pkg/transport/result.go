package transport

import (
	"fmt"
	"net/http"
)

// RedirectionTypeLocationHeader tags a hop discovered through a Location
// header. The terminal hop of a chain carries no type.
const RedirectionTypeLocationHeader = "location-header"

// Redirection is one hop of a redirect chain: the URL that was current when
// the hop was recorded and the HTTP status that produced it.
type Redirection struct {
	URL    string
	Type   string
	Status int
}

// Terminal reports whether this hop is the final, effective one.
func (r Redirection) Terminal() bool {
	return r.Type == ""
}

// Result is the outcome of one successful transport call. It is immutable
// once returned.
type Result struct {
	// URL is the effective final URL after following redirects.
	URL string

	// Status is the HTTP status of the final hop.
	Status int

	// Headers holds the final hop's response headers only; earlier hops'
	// headers are discarded when a new status line is observed.
	Headers http.Header

	// Body is the raw response body.
	Body []byte

	// Stack is the full redirect chain, oldest hop first. Its last entry is
	// always the terminal hop, whose URL and Status match the Result's.
	Stack []Redirection
}

// String gives a compact one-line description for diagnostics.
func (r *Result) String() string {
	return fmt.Sprintf("Result(url=%s status=%d size=%d hops=%d)",
		r.URL, r.Status, len(r.Body), len(r.Stack))
}
