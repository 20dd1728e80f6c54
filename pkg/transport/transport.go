package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Execute performs exactly one logical HTTP transaction: it runs the request,
// follows redirects when asked to, reconstructs the full redirect chain from
// the observed response headers, and returns a Result or a typed *Error.
//
// A context cancelled before the call starts short-circuits with
// KindCancelled and performs no I/O. Cancellation during the call aborts the
// transfer at the next body-read poll; the connect phase is bounded by the
// connect timeout rather than the cancellation check.
func Execute(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Preemptive cancellation, before any network action.
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindCancelled, URL: req.URL, Err: err}
	}

	initial, err := checkURL(req.URL)
	if err != nil {
		return nil, invalidURLError(req.URL, err)
	}

	if total := req.Timeout.effectiveTotal(); total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	rt, release := roundTripper(req)
	defer release()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	maxRedirects := req.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = DefaultMaxRedirects
	}

	parser := newHeaderParser(initial)
	current := initial
	hops := 0

	for {
		var body io.Reader
		if len(req.Body) > 0 {
			body = bytes.NewReader(req.Body)
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, current.String(), body)
		if err != nil {
			return nil, invalidURLError(current.String(), err)
		}
		for name, value := range req.Headers {
			httpReq.Header.Set(name, value)
		}

		resp, err := rt.RoundTrip(httpReq)
		if err != nil {
			return nil, classify(ctx, current.String(), err)
		}

		if req.Verbose {
			log.Debug().
				Str("url", current.String()).
				Int("status", resp.StatusCode).
				Int("hop", hops).
				Msg("Transport hop")
		}

		parser.consumeResponse(resp)

		if req.FollowRedirects && redirectStatuses[resp.StatusCode] && resp.Header.Get("Location") != "" {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			hops++
			if hops > maxRedirects {
				return nil, &Error{Kind: KindTooManyRedirects, URL: current.String()}
			}

			// The parser already resolved the Location against the previous
			// URL; it is the single source of truth for the current hop.
			current = parser.currentURL
			continue
		}

		payload, err := readBody(ctx, resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, classifyReceive(ctx, current.String(), err)
		}

		stack := parser.finish()
		terminal := stack[len(stack)-1]

		return &Result{
			URL:     terminal.URL,
			Status:  resp.StatusCode,
			Headers: parser.headerSink,
			Body:    payload,
			Stack:   stack,
		}, nil
	}
}

// readBody drains r into memory, polling the context between reads so an
// in-flight transfer aborts cooperatively.
func readBody(ctx context.Context, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			// Cancellation wins over whatever the read surfaced.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}
}
