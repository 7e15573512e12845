package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// PageFetcher retrieves the rendered HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// contentSelector matches the elements the WAS5 search and detail pages
// render once their scripts finish.
const contentSelector = "table.t_table, .article-content, .TRS_Editor, .content"

// contentWaitTimeout bounds the wait for contentSelector before falling back
// to a fixed settle delay.
const contentWaitTimeout = 10 * time.Second

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// BrowserFetcher renders pages in a headless browser. The listing pages are
// assembled client-side, so a plain HTTP GET returns an empty shell.
// Requires Chrome/Chromium to be installed on the system.
type BrowserFetcher struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewBrowserFetcher creates a fetcher with the given per-page timeout.
func NewBrowserFetcher(timeout time.Duration, log *zap.Logger) *BrowserFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &BrowserFetcher{timeout: timeout, log: log}
}

// Fetch navigates to pageURL, waits for the content to render, and returns
// the full HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	f.log.Debug("fetching page", zap.String("url", pageURL))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(browserUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, contentWaitTimeout)
			defer cancel()
			if err := chromedp.WaitVisible(contentSelector, chromedp.ByQuery).Do(waitCtx); err != nil {
				// No recognized content block; give late scripts a moment
				// and take whatever rendered.
				return chromedp.Sleep(2 * time.Second).Do(ctx)
			}
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed for %s: %w", pageURL, err)
	}

	f.log.Debug("page fetched", zap.String("url", pageURL), zap.Int("bytes", len(html)))
	return html, nil
}
