package occupancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
)

// Browser-like User-Agent; the source site serves a different (and
// occupancy-free) page to obvious bots.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxPageBytes bounds how much of the source page is read. The real page
// is well under 1 MiB; anything larger is not the page we expect.
const maxPageBytes = 4 << 20

// Fetcher issues a single GET for the occupancy page. It performs no
// retries: the polling interval is the only backoff, so a failed cycle
// simply waits for the next one. A circuit breaker trips after repeated
// failures so that a dead source stops costing a full timeout per cycle.
type Fetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher for the given absolute URL. The timeout
// bounds the whole request, connect included.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "occupancy-fetch",
			Timeout: 2 * time.Minute,
		}),
	}
}

// Fetch performs one request and returns the raw page bytes with the
// response status. All failures come back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (*RawPage, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		// Breaker open, or some wrapper we did not produce ourselves.
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	return result.(*RawPage), nil
}

func (f *Fetcher) doFetch(ctx context.Context) (*RawPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			Kind:       FetchNonSuccessStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return &RawPage{Body: body, StatusCode: resp.StatusCode}, nil
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &FetchError{Kind: FetchConnectionRefused, Err: err}
	}
	return &FetchError{Kind: FetchTransport, Err: err}
}
