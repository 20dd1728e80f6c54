package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind classifies a transport failure. Exactly one kind applies to a failed
// call; classification is total and mutually exclusive.
type Kind int

const (
	// KindGeneric is any failure not covered by a more specific kind.
	KindGeneric Kind = iota

	// KindInvalidURL means the URL failed the syntax precheck. No network
	// activity took place.
	KindInvalidURL

	// KindTimeout means the operation exceeded its configured deadline.
	KindTimeout

	// KindHostResolution means DNS resolution of the host failed.
	KindHostResolution

	// KindConnectionRefused means the peer actively refused the connection.
	KindConnectionRefused

	// KindTLS means the TLS handshake or peer certificate verification failed.
	KindTLS

	// KindReceive means the response body transfer failed mid-stream.
	KindReceive

	// KindTooManyRedirects means the redirect chain exceeded MaxRedirects.
	KindTooManyRedirects

	// KindCancelled means the caller's context was cancelled. Cancellation
	// takes priority over any other error raised at the same time.
	KindCancelled
)

// String returns the stable code for the kind. These codes are part of the
// reporting surface (CSV error columns and metric labels) and must not change.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid-url"
	case KindTimeout:
		return "timeout"
	case KindHostResolution:
		return "host-resolution"
	case KindConnectionRefused:
		return "connection-refused"
	case KindTLS:
		return "tls"
	case KindReceive:
		return "receive"
	case KindTooManyRedirects:
		return "too-many-redirects"
	case KindCancelled:
		return "cancelled"
	default:
		return "generic"
	}
}

// Error is the typed failure returned by Execute. Never a partial success:
// when an Error is returned the Result is nil.
type Error struct {
	Kind Kind

	// URL is the URL in flight when the failure occurred (the current hop,
	// not necessarily the original request URL).
	URL string

	// Code carries the underlying numeric code for generic failures
	// (an errno where one is available), for diagnostics only.
	Code int

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport %s error for %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("transport %s error for %s", e.Kind, e.URL)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the stable string code for any error produced by this
// package. Non-transport errors report as "generic".
func ErrorCode(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind.String()
	}
	return KindGeneric.String()
}

// IsCancelled reports whether err is a transport cancellation.
func IsCancelled(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindCancelled
}

// classify maps a low-level error to its Error kind. The context is consulted
// first so that cancellation wins over whatever the stack happened to raise
// while the transfer was being torn down.
func classify(ctx context.Context, rawURL string, err error) *Error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return &Error{Kind: KindCancelled, URL: rawURL, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, URL: rawURL, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindHostResolution, URL: rawURL, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConnectionRefused, URL: rawURL, Err: err}
	}

	if isTLSError(err) {
		return &Error{Kind: KindTLS, URL: rawURL, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Kind: KindGeneric, URL: rawURL, Code: int(errno), Err: err}
	}

	return &Error{Kind: KindGeneric, URL: rawURL, Err: err}
}

// classifyReceive is classify for failures during body transfer, where the
// residual case is a receive error rather than a generic one.
func classifyReceive(ctx context.Context, rawURL string, err error) *Error {
	e := classify(ctx, rawURL, err)
	if e.Kind == KindGeneric {
		e.Kind = KindReceive
	}
	return e
}

// isTLSError reports whether err stems from the TLS handshake or certificate
// verification.
func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

// invalidURLError builds the InvalidURL failure for a raw URL string.
func invalidURLError(rawURL string, err error) *Error {
	return &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
}
