package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecute_Simple(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	result, err := Execute(context.Background(), NewRequest(server.URL+"/endpoint"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", result.Status)
	}
	if string(result.Body) != `{"ok":true}` {
		t.Errorf("Body = %q", result.Body)
	}
	if got := result.Headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	// Terminal hop mirrors the result.
	terminal := result.Stack[len(result.Stack)-1]
	if terminal.URL != result.URL || terminal.Status != result.Status {
		t.Errorf("terminal hop %+v does not match result url=%s status=%d",
			terminal, result.URL, result.Status)
	}
	if !terminal.Terminal() {
		t.Error("terminal hop should carry no discovery type")
	}
}

func TestExecute_RedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Final", "yes")
		fmt.Fprint(w, "done")
	})

	result, err := Execute(context.Background(), NewRequest(server.URL+"/start"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Stack) != 3 {
		t.Fatalf("len(Stack) = %d, want 3", len(result.Stack))
	}

	if result.Stack[0].URL != server.URL+"/start" || result.Stack[0].Status != 301 {
		t.Errorf("Stack[0] = %+v", result.Stack[0])
	}
	if result.Stack[0].Type != RedirectionTypeLocationHeader {
		t.Errorf("Stack[0].Type = %q", result.Stack[0].Type)
	}
	if result.Stack[1].URL != server.URL+"/middle" || result.Stack[1].Status != 302 {
		t.Errorf("Stack[1] = %+v", result.Stack[1])
	}
	if result.Stack[2].URL != server.URL+"/final" || result.Stack[2].Status != 200 {
		t.Errorf("Stack[2] = %+v", result.Stack[2])
	}

	if result.URL != server.URL+"/final" {
		t.Errorf("effective URL = %q", result.URL)
	}

	// Only the final hop's headers survive.
	if got := result.Headers.Get("X-Final"); got != "yes" {
		t.Errorf("X-Final = %q, want %q", got, "yes")
	}
	if got := result.Headers.Get("Location"); got != "" {
		t.Errorf("Location header from earlier hop survived: %q", got)
	}
}

func TestExecute_TooManyRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	req := NewRequest(server.URL + "/loop")
	req.MaxRedirects = 3

	_, err := Execute(context.Background(), req)

	var te *Error
	if !errors.As(err, &te) || te.Kind != KindTooManyRedirects {
		t.Fatalf("Execute() error = %v, want too-many-redirects", err)
	}
}

func TestExecute_NoFollow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer server.Close()

	req := NewRequest(server.URL + "/start")
	req.FollowRedirects = false

	result, err := Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != http.StatusMovedPermanently {
		t.Errorf("Status = %d, want 301", result.Status)
	}
}

func TestExecute_InvalidURL(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	for _, bad := range []string{"not-a-url", "ftp://example.com/", "http://nodots/"} {
		_, err := Execute(context.Background(), NewRequest(bad))
		var te *Error
		if !errors.As(err, &te) || te.Kind != KindInvalidURL {
			t.Errorf("Execute(%q) error = %v, want invalid-url", bad, err)
		}
	}

	if calls.Load() != 0 {
		t.Error("invalid URLs must not reach the network")
	}
}

func TestExecute_PreCancelledContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, NewRequest(server.URL+"/x"))

	if !IsCancelled(err) {
		t.Fatalf("Execute() error = %v, want cancelled", err)
	}
	if calls.Load() != 0 {
		t.Error("pre-cancelled call must perform no network action")
	}
}

func TestExecute_CancelDuringBody(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		fmt.Fprint(w, "partial")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Execute(ctx, NewRequest(server.URL+"/slow"))
	if !IsCancelled(err) {
		t.Fatalf("Execute() error = %v, want cancelled", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	req := NewRequest(server.URL + "/slow")
	req.Timeout = Timeout{Total: 50 * time.Millisecond}

	_, err := Execute(context.Background(), req)

	var te *Error
	if !errors.As(err, &te) || te.Kind != KindTimeout {
		t.Fatalf("Execute() error = %v, want timeout", err)
	}
}

func TestExecute_ConnectionRefused(t *testing.T) {
	// Grab a port that is guaranteed closed.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	_, execErr := Execute(context.Background(), NewRequest("http://"+addr+"/"))

	var te *Error
	if !errors.As(execErr, &te) || te.Kind != KindConnectionRefused {
		t.Fatalf("Execute() error = %v, want connection-refused", execErr)
	}
}

func TestExecute_SharedSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	session := NewSession()
	defer session.Close()

	for i := 0; i < 3; i++ {
		req := NewRequest(server.URL + "/x")
		req.Session = session

		result, err := Execute(context.Background(), req)
		if err != nil {
			t.Fatalf("Execute() call %d error = %v", i, err)
		}
		if string(result.Body) != "ok" {
			t.Errorf("Body = %q", result.Body)
		}
	}
}

func TestExecute_RequestHeadersSent(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("X-Token"))
	}))
	defer server.Close()

	req := NewRequest(server.URL + "/x")
	req.Headers = map[string]string{"X-Token": "secret"}

	if _, err := Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.Load() != "secret" {
		t.Errorf("X-Token = %v, want %q", got.Load(), "secret")
	}
}

func TestTimeout_EffectiveTotal(t *testing.T) {
	tests := []struct {
		name    string
		timeout Timeout
		want    time.Duration
	}{
		{"zero", Timeout{}, 0},
		{"total only", Timeout{Total: 10 * time.Second}, 10 * time.Second},
		{"read only", Timeout{Read: 5 * time.Second}, 5 * time.Second},
		{"connect only", Timeout{Connect: 2 * time.Second}, 2 * time.Second},
		// The split pair sums; it is not a max().
		{"split sums", Timeout{Connect: 2 * time.Second, Read: 5 * time.Second}, 7 * time.Second},
		{"total wins over split", Timeout{Total: 3 * time.Second, Connect: 2 * time.Second, Read: 5 * time.Second}, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.timeout.effectiveTotal(); got != tt.want {
				t.Errorf("effectiveTotal() = %v, want %v", got, tt.want)
			}
		})
	}
}
