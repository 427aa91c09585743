package occupancy

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/sony/gobreaker"
)

const testURL = "http://pool.example/occupancy"

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f := NewFetcher(testURL, 2*time.Second)
	httpmock.ActivateNonDefault(f.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return f
}

func TestFetchSuccess(t *testing.T) {
	f := newTestFetcher(t)
	httpmock.RegisterResponder("GET", testURL,
		httpmock.NewStringResponder(200, "<html>12/80</html>"))

	page, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if page.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", page.StatusCode)
	}
	if string(page.Body) != "<html>12/80</html>" {
		t.Errorf("Body = %q, want the page bytes", page.Body)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	f := newTestFetcher(t)
	httpmock.RegisterResponder("GET", testURL,
		httpmock.NewStringResponder(503, "Service Unavailable"))

	_, err := f.Fetch(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %T, want *FetchError", err)
	}
	if fe.Kind != FetchNonSuccessStatus {
		t.Errorf("Kind = %s, want %s", fe.Kind, FetchNonSuccessStatus)
	}
	if fe.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", fe.StatusCode)
	}
}

func TestFetchTransportClassification(t *testing.T) {
	tests := []struct {
		name     string
		respErr  error
		wantKind FetchErrorKind
	}{
		{name: "timeout", respErr: context.DeadlineExceeded, wantKind: FetchTimeout},
		{name: "connection refused", respErr: syscall.ECONNREFUSED, wantKind: FetchConnectionRefused},
		{name: "other transport", respErr: errors.New("tls handshake broke"), wantKind: FetchTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t)
			httpmock.RegisterResponder("GET", testURL,
				httpmock.NewErrorResponder(tt.respErr))

			_, err := f.Fetch(context.Background())
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Fetch() error = %T, want *FetchError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", fe.Kind, tt.wantKind)
			}
		})
	}
}

func TestFetchBreakerOpensOnDeadSource(t *testing.T) {
	f := newTestFetcher(t)
	httpmock.RegisterResponder("GET", testURL,
		httpmock.NewStringResponder(503, ""))

	// Default gobreaker settings open after more than five consecutive
	// failures.
	for i := 0; i < 6; i++ {
		if _, err := f.Fetch(context.Background()); err == nil {
			t.Fatalf("Fetch() #%d = nil error, want failure", i)
		}
	}

	_, err := f.Fetch(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Fetch() after repeated failures = %v, want open breaker", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchTransport {
		t.Errorf("open-breaker error = %v, want *FetchError{%s}", err, FetchTransport)
	}
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FetchErrorKind
	}{
		{name: "deadline", err: context.DeadlineExceeded, expected: FetchTimeout},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: FetchTimeout},
		{name: "refused", err: syscall.ECONNREFUSED, expected: FetchConnectionRefused},
		{name: "other", err: errors.New("boom"), expected: FetchTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransportError(tt.err); got.Kind != tt.expected {
				t.Errorf("classifyTransportError(%v).Kind = %s, want %s", tt.err, got.Kind, tt.expected)
			}
		})
	}
}
