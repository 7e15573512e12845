// Package crawl fetches CAAC listing and detail pages and parses them into
// document records. All site-specific markup knowledge lives here.
package crawl

import "fmt"

// FetchError represents a failure to retrieve a page after retries. It is the
// "could not check" signal: callers must treat it differently from an empty
// listing and never persist state over it.
type FetchError struct {
	Category string
	URL      string
	Message  string
	Cause    error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s (%s): %s: %v", e.Category, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s (%s): %s", e.Category, e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ParseError represents a listing page that was fetched but could not be
// interpreted, typically an anti-bot interstitial or a markup change.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
