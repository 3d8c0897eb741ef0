// Package fetch acquires raw page markup, either with a plain HTTP GET or
// through a headless browser session for pages that need script execution.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Fetcher returns the markup of the page at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Mode selects how a page is acquired. Callers pick it per source; nothing
// here tries to detect whether a page needs client-side rendering.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeBrowser Mode = "browser"
)

// ParseMode validates a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStatic, ModeBrowser:
		return Mode(s), nil
	case "":
		return ModeStatic, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want static or browser)", s)
	}
}

// DefaultUserAgent identifies the tool to the journal sites.
const DefaultUserAgent = "papersync/1.0 (journal listing sync)"

// Options configures both fetchers.
type Options struct {
	// Timeout per HTTP request and per browser navigation
	Timeout time.Duration
	// User-Agent header for static fetches
	UserAgent string
	// Run the browser without a visible window
	Headless bool
	// How long to look for a cookie-consent button
	CookieWait time.Duration
	Logger     *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		UserAgent:  DefaultUserAgent,
		Headless:   true,
		CookieWait: 5 * time.Second,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// HTTPFetcher retrieves server-rendered pages with a plain GET. It never
// retries; that decision belongs to the caller.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a static fetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch issues a GET for url and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &NetworkError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return string(body), nil
}

// Pool holds one fetcher per mode for the duration of a run.
type Pool struct {
	static  *HTTPFetcher
	browser *BrowserFetcher
}

// NewPool creates both fetchers. The browser is not started until the first
// browser-mode fetch.
func NewPool(opts Options) *Pool {
	return &Pool{
		static:  NewHTTPFetcher(opts),
		browser: NewBrowserFetcher(opts),
	}
}

// For returns the fetcher for mode.
func (p *Pool) For(mode Mode) Fetcher {
	if mode == ModeBrowser {
		return p.browser
	}
	return p.static
}

// Static returns the plain HTTP fetcher.
func (p *Pool) Static() *HTTPFetcher {
	return p.static
}

// Close releases the browser session, if one was started.
func (p *Pool) Close() error {
	return p.browser.Close()
}
