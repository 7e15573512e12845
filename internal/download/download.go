// Package download saves document PDF attachments to local disk.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// minPDFSize rejects bodies that are too small to be a real PDF; the site
// serves tiny HTML error pages with a 200 status.
const minPDFSize = 1024

const defaultTimeout = 60 * time.Second

// Error represents a failed download.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("download error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Downloader streams PDFs into a target directory.
type Downloader struct {
	client *resty.Client
	dir    string
	log    *zap.Logger
}

// New creates a downloader writing into dir.
func New(dir string, log *zap.Logger) *Downloader {
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Downloader{client: client, dir: dir, log: log}
}

// Dir returns the download directory.
func (d *Downloader) Dir() string {
	return d.dir
}

// Fetch downloads pdfURL into the downloader's directory under filename and
// returns the saved path. Undersized bodies are treated as failures and
// removed.
func (d *Downloader) Fetch(ctx context.Context, pdfURL, filename string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", &Error{URL: pdfURL, Message: "failed to create download directory", Cause: err}
	}
	savePath := filepath.Join(d.dir, filename)

	resp, err := d.client.R().
		SetContext(ctx).
		SetOutput(savePath).
		Get(pdfURL)
	if err != nil {
		return "", &Error{URL: pdfURL, Message: "request failed", Cause: err}
	}
	if resp.StatusCode() != 200 {
		os.Remove(savePath)
		return "", &Error{URL: pdfURL, Message: fmt.Sprintf("HTTP %d", resp.StatusCode())}
	}

	info, err := os.Stat(savePath)
	if err != nil {
		return "", &Error{URL: pdfURL, Message: "saved file missing", Cause: err}
	}
	if info.Size() < minPDFSize {
		os.Remove(savePath)
		return "", &Error{URL: pdfURL, Message: fmt.Sprintf("body too small (%d bytes)", info.Size())}
	}

	d.log.Info("pdf saved",
		zap.String("path", savePath),
		zap.Int64("bytes", info.Size()))
	return savePath, nil
}
