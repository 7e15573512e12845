package state

import (
	"time"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

// FilterByDays keeps documents published within the last days before now.
// Documents without a publish date are dropped: they cannot be placed in the
// window, and notifying about undatable entries produced noise in practice.
// days <= 0 disables filtering.
func FilterByDays(docs []document.Document, days int, now time.Time) []document.Document {
	if days <= 0 {
		return docs
	}
	cutoff := now.AddDate(0, 0, -days).Format("2006-01-02")

	var kept []document.Document
	for _, doc := range docs {
		pubDate := doc.PublishDate
		if pubDate == "" {
			continue
		}
		// ISO dates compare correctly as strings.
		if pubDate >= cutoff {
			kept = append(kept, doc)
		}
	}
	return kept
}
