package crawl

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
	"github.com/wangwingzero/caac-monitor/internal/retry"
)

const (
	// DefaultBaseURL is the CAAC site root.
	DefaultBaseURL = "https://www.caac.gov.cn"
	// searchPath is the WAS5 full-text search endpoint the listing pages
	// are built on.
	searchPath = "/was5/web/search"
	// searchChannel is the channel id of 法定主动公开内容.
	searchChannel = "211383"

	// DefaultPerPage is how many results are requested per category.
	DefaultPerPage = 50
)

// Config configures a Crawler.
type Config struct {
	Fetcher PageFetcher
	Retry   retry.Policy
	// BaseURL overrides the site root, used by tests.
	BaseURL string
	PerPage int
	// MinDelay/MaxDelay bound the polite random pause between category
	// fetches.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Crawler fetches category listings and detail pages and turns them into
// document records.
type Crawler struct {
	fetcher  PageFetcher
	retry    retry.Policy
	baseURL  string
	perPage  int
	minPause time.Duration
	maxPause time.Duration
	log      *zap.Logger
}

// New creates a crawler. Zero config fields fall back to defaults.
func New(cfg Config, log *zap.Logger) *Crawler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default()
	}
	if cfg.MaxDelay == 0 {
		cfg.MinDelay = time.Second
		cfg.MaxDelay = 3 * time.Second
	}
	return &Crawler{
		fetcher:  cfg.Fetcher,
		retry:    cfg.Retry,
		baseURL:  cfg.BaseURL,
		perPage:  cfg.PerPage,
		minPause: cfg.MinDelay,
		maxPause: cfg.MaxDelay,
		log:      log,
	}
}

// SearchURL builds the WAS5 listing URL for one category.
func (c *Crawler) SearchURL(categoryID string) string {
	expr := url.QueryEscape(fmt.Sprintf(" PARENTID='%s' or CLASSINFOID='%s' ", categoryID, categoryID))
	return fmt.Sprintf("%s%s?channelid=%s&was_custom_expr=%s&perpage=%d&orderby=-fabuDate&fl=%s",
		c.baseURL, searchPath, searchChannel, expr, c.perPage, categoryID)
}

// FetchCategory retrieves and parses one category listing. A returned error
// is always a *FetchError and means the category could not be checked.
func (c *Crawler) FetchCategory(ctx context.Context, categoryID string) ([]document.Document, error) {
	categoryName := document.CategoryName(categoryID)
	searchURL := c.SearchURL(categoryID)

	c.log.Info("fetching category",
		zap.String("category", categoryName),
		zap.String("id", categoryID))

	var docs []document.Document
	err := c.retry.Do(ctx, func() error {
		html, err := c.fetcher.Fetch(ctx, searchURL)
		if err != nil {
			c.log.Warn("fetch attempt failed",
				zap.String("category", categoryName), zap.Error(err))
			return err
		}
		docs, err = ParseListPage(html, c.baseURL, categoryID, categoryName)
		if err != nil {
			// A page that renders without a listing will not grow one on
			// retry within the same run.
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, &FetchError{
			Category: categoryName,
			URL:      searchURL,
			Message:  "could not check category",
			Cause:    err,
		}
	}

	c.log.Info("category fetched",
		zap.String("category", categoryName),
		zap.Int("documents", len(docs)))
	return docs, nil
}

// FetchCategories retrieves all requested categories, pausing politely
// between them. One category's failure does not stop the others: results and
// errors are returned side by side, keyed by category id.
func (c *Crawler) FetchCategories(ctx context.Context, categoryIDs []string) (map[string][]document.Document, map[string]error) {
	results := make(map[string][]document.Document)
	failures := make(map[string]error)

	for i, catID := range categoryIDs {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				// Canceled mid-run: everything not yet fetched failed.
				for _, rest := range categoryIDs[i:] {
					failures[rest] = err
				}
				break
			}
		}

		docs, err := c.FetchCategory(ctx, catID)
		if err != nil {
			failures[catID] = err
			continue
		}
		results[catID] = docs
	}

	total := 0
	for _, docs := range results {
		total += len(docs)
	}
	c.log.Info("fetch complete",
		zap.Int("documents", total),
		zap.Int("categories", len(results)),
		zap.Int("failed", len(failures)))
	return results, failures
}

// PDFLink fetches a document's detail page and returns its PDF attachment
// URL, or "" when the document has none.
func (c *Crawler) PDFLink(ctx context.Context, d document.Document) (string, error) {
	var html string
	err := c.retry.Do(ctx, func() error {
		var err error
		html, err = c.fetcher.Fetch(ctx, d.URL)
		return err
	})
	if err != nil {
		return "", &FetchError{
			Category: d.Category,
			URL:      d.URL,
			Message:  "could not fetch detail page",
			Cause:    err,
		}
	}
	return FindPDFLink(html, d.URL), nil
}

// pause sleeps a random interval between requests, or returns early when the
// context is canceled.
func (c *Crawler) pause(ctx context.Context) error {
	delay := c.minPause
	if c.maxPause > c.minPause {
		delay += time.Duration(rand.Int63n(int64(c.maxPause - c.minPause)))
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
