package fetch

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/chromedp/chromedp"
)

// cookieButtonXPath matches the consent buttons used by the publisher sites.
const cookieButtonXPath = `//button[contains(text(), 'Accept All Cookies') or contains(text(), 'Accept all cookies')]`

// browser is one running browser tab. chromeSession is the real one; tests
// swap in a fake.
type browser interface {
	// navigate loads url and returns the location the tab ended up on
	navigate(ctx context.Context, url string) (string, error)
	// acceptCookies clicks the consent button, waiting at most until ctx
	// expires for it to appear
	acceptCookies(ctx context.Context) error
	// html returns the rendered document
	html(ctx context.Context) (string, error)
	close()
}

// BrowserFetcher renders pages in a headless Chrome session. The session is
// started on the first Fetch, reused by every later Fetch and released by
// Close. After Close the next Fetch starts a fresh session.
type BrowserFetcher struct {
	opts       Options
	newBrowser func(headless bool) (browser, error)

	mu      sync.Mutex
	session browser
	// hosts whose cookie banner has been dismissed in this session
	acceptedHosts map[string]struct{}
}

// NewBrowserFetcher creates a browser-mode fetcher. No browser is started
// yet.
func NewBrowserFetcher(opts Options) *BrowserFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.CookieWait <= 0 {
		opts.CookieWait = DefaultOptions().CookieWait
	}

	return &BrowserFetcher{
		opts:       opts,
		newBrowser: newChromeSession,
	}
}

// Fetch navigates the session to pageURL, tries to dismiss a cookie banner
// on the first visit to its host, and returns the rendered markup. Failing
// to dismiss the banner is logged and otherwise ignored.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &RenderError{URL: pageURL, Op: "navigate", Err: err}
	}

	if f.session == nil {
		session, err := f.newBrowser(f.opts.Headless)
		if err != nil {
			return "", &RenderError{URL: pageURL, Op: "start browser", Err: err}
		}
		f.session = session
		f.acceptedHosts = make(map[string]struct{})
		f.opts.logger().Debug("browser session started", "headless", f.opts.Headless)
	}

	navCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	location, err := f.session.navigate(navCtx, pageURL)
	if err != nil {
		return "", &RenderError{URL: pageURL, Op: "navigate", Err: err}
	}

	f.dismissCookies(ctx, pageURL, location)

	readCtx, cancelRead := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancelRead()

	markup, err := f.session.html(readCtx)
	if err != nil {
		return "", &RenderError{URL: pageURL, Op: "read page", Err: err}
	}

	return markup, nil
}

func (f *BrowserFetcher) dismissCookies(ctx context.Context, pageURL, location string) {
	host := hostOf(location)
	if host == "" {
		host = hostOf(pageURL)
	}
	if _, ok := f.acceptedHosts[host]; ok {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.opts.CookieWait)
	defer cancel()

	if err := f.session.acceptCookies(waitCtx); err != nil {
		renderErr := &RenderError{URL: pageURL, Op: "accept cookies", Err: err}
		f.opts.logger().Warn("could not find or click the accept cookies button",
			"host", host, "error", renderErr)
		return
	}

	f.acceptedHosts[host] = struct{}{}
}

// Close shuts the browser down. It is safe to call when no session was
// started, and more than once.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.session == nil {
		return nil
	}

	f.session.close()
	f.session = nil
	f.acceptedHosts = nil
	f.opts.logger().Debug("browser session closed")
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// chromeSession drives a real Chrome process through chromedp.
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func newChromeSession(headless bool) (browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-logging", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("headless", headless),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser and opens the first tab
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, err
	}

	return &chromeSession{ctx: ctx, cancel: cancel, allocCancel: allocCancel}, nil
}

// run executes actions on the session's tab while honouring the deadline
// and cancellation of ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

func (s *chromeSession) navigate(ctx context.Context, pageURL string) (string, error) {
	var location string
	err := s.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.Location(&location),
	)
	return location, err
}

func (s *chromeSession) acceptCookies(ctx context.Context) error {
	return s.run(ctx, chromedp.Click(cookieButtonXPath, chromedp.BySearch))
}

func (s *chromeSession) html(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (s *chromeSession) close() {
	// Cancelling the browser context closes the tab and the process
	s.cancel()
	s.allocCancel()
}
