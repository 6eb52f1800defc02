package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// DefaultPageTimeout bounds every wait on the availability page
const DefaultPageTimeout = 60 * time.Second

// dateFieldWidth is how far the caret is walked back to clear the
// pre-filled date; the site refills an emptied field, so the new date is
// typed first and the old one deleted after it.
const dateFieldWidth = 10

// ErrSessionClosed is returned by a session used after Close
var ErrSessionClosed = errors.New("browser session closed")

// BrowserOptions configures the headless browser
type BrowserOptions struct {
	Headless    bool
	PageTimeout time.Duration
}

// BrowserSession drives a single Chromium page through playwright. It is
// created once and reused for every check.
type BrowserSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	timeout time.Duration
	log     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// NewBrowserSession starts playwright and launches Chromium. Browsers must
// already be installed:
//
//	go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium
func NewBrowserSession(opts BrowserOptions, log zerolog.Logger) (*BrowserSession, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultPageTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--remote-debugging-port=9222",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	ms := float64(opts.PageTimeout.Milliseconds())
	page.SetDefaultTimeout(ms)
	page.SetDefaultNavigationTimeout(ms)

	log.Info().Bool("headless", opts.Headless).Dur("page_timeout", opts.PageTimeout).Msg("Browser session started")

	return &BrowserSession{
		pw:      pw,
		browser: browser,
		page:    page,
		timeout: opts.PageTimeout,
		log:     log,
	}, nil
}

// AvailabilityTable loads url, enters the start date, refreshes the grid
// and returns the table's outer HTML. The call is not interrupted by ctx
// once the page load has started.
func (b *BrowserSession) AvailabilityTable(ctx context.Context, url string, start time.Time) (string, error) {
	if b.closed {
		return "", ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ms := playwright.Float(float64(b.timeout.Milliseconds()))

	if _, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}

	dateInput := b.page.Locator("#" + DateInputID)
	if err := dateInput.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms,
	}); err != nil {
		return "", fmt.Errorf("date input did not load: %w", err)
	}

	b.log.Debug().Str("url", url).Msg("Entering start date")
	if err := dateInput.Click(); err != nil {
		return "", fmt.Errorf("failed to focus date input: %w", err)
	}
	if err := dateInput.Type(start.Format("01/02/2006")); err != nil {
		return "", fmt.Errorf("failed to type start date: %w", err)
	}
	for i := 0; i < dateFieldWidth; i++ {
		if err := dateInput.Press("ArrowLeft"); err != nil {
			return "", fmt.Errorf("failed to move caret: %w", err)
		}
	}
	for i := 0; i < dateFieldWidth; i++ {
		if err := dateInput.Press("Backspace"); err != nil {
			return "", fmt.Errorf("failed to clear old date: %w", err)
		}
	}
	if err := dateInput.Press("Enter"); err != nil {
		return "", fmt.Errorf("failed to submit date: %w", err)
	}

	// Without a manual refresh every cell may read "x".
	if err := b.page.Locator("xpath=" + RefreshButtonXPath).First().Click(); err != nil {
		return "", fmt.Errorf("failed to refresh availability table: %w", err)
	}

	if err := b.page.Locator("." + LoadingOverlayClass).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: ms,
	}); err != nil {
		return "", fmt.Errorf("availability table did not finish loading: %w", err)
	}

	table := b.page.Locator("#" + AvailabilityTableID)
	if err := table.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms,
	}); err != nil {
		return "", fmt.Errorf("availability table did not load: %w", err)
	}

	out, err := table.Evaluate("el => el.outerHTML", nil)
	if err != nil {
		return "", fmt.Errorf("failed to read availability table: %w", err)
	}
	html, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outerHTML type %T", out)
	}
	return html, nil
}

// Close shuts the browser and playwright down. It is safe to call more
// than once; only the first call releases anything.
func (b *BrowserSession) Close() error {
	b.closeOnce.Do(func() {
		b.closed = true
		var errs []error
		if b.browser != nil {
			if err := b.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if b.pw != nil {
			if err := b.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop playwright: %w", err))
			}
		}
		b.closeErr = errors.Join(errs...)
		b.log.Info().Msg("Browser session closed")
	})
	return b.closeErr
}
