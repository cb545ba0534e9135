package roof

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/skyroof/safetymonitor/internal/infrastructure/config"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 64 * 1024
)

// Fetcher retrieves free-form status text from roof endpoints.
//
// Every request is bounded by the configured timeout and by the caller's
// context, whichever ends first.
//
// Thread Safety: Fetch is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBody    int64
	userAgent  string
}

// NewFetcher builds a Fetcher from the roof section of the configuration.
// A nil httpClient gets a dedicated client.
func NewFetcher(cfg config.RoofConfig, httpClient *http.Client) *Fetcher {
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Fetcher{
		httpClient: httpClient,
		timeout:    timeout,
		maxBody:    maxBody,
		userAgent:  cfg.UserAgent,
	}
}

// Fetch GETs rawURL and returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "text/plain, text/html;q=0.9, */*;q=0.1")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody)) //nolint:errcheck // draining for connection reuse
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}
	if int64(len(body)) > f.maxBody {
		return "", fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBody)
	}
	if !utf8.Valid(body) {
		return "", ErrMalformedBody
	}

	return string(body), nil
}

// Timeout returns the per-request bound applied by Fetch.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}
