package state

import (
	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

// Update pairs the stored and freshly fetched versions of a document whose
// tracked fields changed, so reports can show what moved.
type Update struct {
	Old document.Document `json:"old"`
	New document.Document `json:"new"`
}

// CategoryChanges is the detection result for one category.
type CategoryChanges struct {
	// Added and Updated preserve the fetch order of the current listing.
	Added   []document.Document
	Updated []Update
	// Merged is the record set that becomes the new snapshot for the
	// category: current documents replace stored ones by URL, stored
	// documents absent from the fetch are carried forward unchanged.
	Merged []document.Document
}

// ChangeReport aggregates detection results across categories.
type ChangeReport struct {
	// ByCategory holds per-category results, keyed by category id, for every
	// category that was fetched successfully this run.
	ByCategory map[string]CategoryChanges
	// Merged is the full document set for the next snapshot, including
	// categories that were not fetched this run.
	Merged map[string][]document.Document
}

// NewCount returns the number of added documents across categories.
func (r *ChangeReport) NewCount() int {
	n := 0
	for _, c := range r.ByCategory {
		n += len(c.Added)
	}
	return n
}

// UpdatedCount returns the number of updated documents across categories.
func (r *ChangeReport) UpdatedCount() int {
	n := 0
	for _, c := range r.ByCategory {
		n += len(c.Updated)
	}
	return n
}

// HasChanges reports whether anything was added or updated.
func (r *ChangeReport) HasChanges() bool {
	return r.NewCount() > 0 || r.UpdatedCount() > 0
}

// Added returns all added documents keyed by category id, omitting categories
// with none.
func (r *ChangeReport) Added() map[string][]document.Document {
	added := make(map[string][]document.Document)
	for catID, c := range r.ByCategory {
		if len(c.Added) > 0 {
			added[catID] = c.Added
		}
	}
	return added
}

// Detector classifies freshly fetched documents against a prior snapshot.
type Detector struct {
	// Prune drops stored documents that are absent from the current fetch.
	// Off by default: the site paginates, so absence from one listing does
	// not mean the document is gone.
	Prune bool

	log *zap.Logger
}

// NewDetector returns a detector with default (non-pruning) behavior.
func NewDetector(log *zap.Logger) *Detector {
	return &Detector{log: log}
}

// DetectCategory classifies current documents for one category against the
// stored ones. Documents are matched by URL; matched documents whose
// fingerprints differ are updates.
func (d *Detector) DetectCategory(previous, current []document.Document) CategoryChanges {
	known := make(map[string]document.Document, len(previous))
	for _, doc := range previous {
		if doc.URL != "" {
			known[doc.URL] = doc
		}
	}

	var changes CategoryChanges
	seen := make(map[string]bool, len(current))
	for _, doc := range current {
		seen[doc.URL] = true
		old, ok := known[doc.URL]
		if !ok {
			changes.Added = append(changes.Added, doc)
			continue
		}
		if old.Fingerprint() != doc.Fingerprint() {
			changes.Updated = append(changes.Updated, Update{Old: old, New: doc})
		}
	}

	changes.Merged = append(changes.Merged, current...)
	if !d.Prune {
		for _, doc := range previous {
			if !seen[doc.URL] {
				changes.Merged = append(changes.Merged, doc)
			}
		}
	}
	return changes
}

// Detect runs per-category detection for every successfully fetched category
// and assembles the merged set for the next snapshot. Categories present in
// the snapshot but absent from current are carried forward untouched; the
// caller is responsible for not invoking Detect (or Save) at all when the
// whole fetch failed.
func (d *Detector) Detect(snap *Snapshot, current map[string][]document.Document) *ChangeReport {
	report := &ChangeReport{
		ByCategory: make(map[string]CategoryChanges, len(current)),
		Merged:     make(map[string][]document.Document),
	}

	for catID, docs := range current {
		changes := d.DetectCategory(snap.Documents[catID], docs)
		report.ByCategory[catID] = changes
		report.Merged[catID] = changes.Merged

		if len(changes.Added) > 0 || len(changes.Updated) > 0 {
			d.log.Info("category changed",
				zap.String("category", document.CategoryName(catID)),
				zap.Int("new", len(changes.Added)),
				zap.Int("updated", len(changes.Updated)))
		}
	}

	for catID, docs := range snap.Documents {
		if _, fetched := current[catID]; !fetched {
			report.Merged[catID] = docs
		}
	}

	if report.HasChanges() {
		d.log.Info("changes detected",
			zap.Int("new", report.NewCount()),
			zap.Int("updated", report.UpdatedCount()))
	} else {
		d.log.Info("no changes detected")
	}
	return report
}
