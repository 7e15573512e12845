package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

// legacyStateKeys are the top-level keys the first-generation state file used
// for its three tracked categories. They are still written for consumers that
// read the old layout, and still understood on load.
var legacyStateKeys = map[string]string{
	"13": "regulations",
	"14": "normatives",
	"15": "standards",
}

// Snapshot is the persisted set of previously seen documents, keyed by
// category id, plus the timestamp of the last completed check.
type Snapshot struct {
	LastCheck string
	Documents map[string][]document.Document
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Documents: make(map[string][]document.Document)}
}

// Total returns the number of documents across all categories.
func (s *Snapshot) Total() int {
	n := 0
	for _, docs := range s.Documents {
		n += len(docs)
	}
	return n
}

// Store persists snapshots at a fixed path with crash-safe writes.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store bound to the given snapshot path.
func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted snapshot. An absent file yields an empty snapshot
// with no error. A file that fails to parse is copied aside to a timestamped
// quarantine path and an empty snapshot is returned, so a corrupted state
// file never aborts a run and is never silently discarded.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("state file not found, starting empty", zap.String("path", s.path))
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	snap, err := unmarshalSnapshot(data)
	if err != nil {
		quarantine := s.quarantine(data)
		s.log.Warn("state file unreadable, quarantined",
			zap.String("path", s.path),
			zap.String("quarantine", quarantine),
			zap.Error(err))
		return NewSnapshot(), nil
	}

	s.log.Info("state loaded",
		zap.String("path", s.path),
		zap.Int("documents", snap.Total()),
		zap.Int("categories", len(snap.Documents)))
	return snap, nil
}

// Save serializes the snapshot and writes it atomically: a reader at any
// point sees either the fully-old or the fully-new file. On failure the
// original file is untouched and a *PersistError is returned.
func (s *Store) Save(snap *Snapshot) error {
	payload := marshalPayload(snap)
	if err := atomicWriteJSON(s.path, payload); err != nil {
		return err
	}

	s.log.Info("state saved",
		zap.String("path", s.path),
		zap.Int("documents", snap.Total()),
		zap.Int("categories", len(snap.Documents)))
	return nil
}

// quarantine copies unreadable state bytes to a sibling path tagged with the
// current timestamp, suffixed with a counter when a prior quarantine from the
// same second exists. Returns the chosen path, or "" if even that failed.
func (s *Store) quarantine(data []byte) string {
	base := fmt.Sprintf("%s.corrupted.%s", s.path, time.Now().Format("20060102_150405"))
	path := base
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		path = fmt.Sprintf("%s.%d", base, i)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.log.Error("failed to quarantine corrupt state", zap.String("path", path), zap.Error(err))
		return ""
	}
	return path
}

// marshalPayload builds the on-disk layout: last_check, the category-keyed
// documents map, and the legacy top-level keys for old consumers.
func marshalPayload(snap *Snapshot) map[string]any {
	documents := snap.Documents
	if documents == nil {
		documents = map[string][]document.Document{}
	}

	payload := map[string]any{
		"last_check": snap.LastCheck,
		"documents":  documents,
	}
	for catID, key := range legacyStateKeys {
		docs := documents[catID]
		records := make([]legacyRecord, 0, len(docs))
		for _, doc := range docs {
			records = append(records, newLegacyRecord(doc, catID))
		}
		payload[key] = records
	}
	return payload
}

// legacyRecord is the first-generation state entry shape.
type legacyRecord struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Validity    string `json:"validity"`
	DocNumber   string `json:"doc_number"`
	OfficeUnit  string `json:"office_unit"`
	DocType     string `json:"doc_type"`
	SignDate    string `json:"sign_date"`
	PublishDate string `json:"publish_date"`
	PDFURL      string `json:"pdf_url"`
}

func newLegacyRecord(doc document.Document, catID string) legacyRecord {
	return legacyRecord{
		Title:       doc.Title,
		URL:         doc.URL,
		Validity:    doc.Validity,
		DocNumber:   doc.DocNumber,
		OfficeUnit:  doc.OfficeUnit,
		DocType:     document.LegacyDocType(catID),
		SignDate:    doc.SignDate,
		PublishDate: doc.PublishDate,
		PDFURL:      doc.PDFURL,
	}
}

// unmarshalSnapshot parses the current layout and falls back to the legacy
// layout when the documents map is absent or empty.
func unmarshalSnapshot(data []byte) (*Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	if lc, ok := raw["last_check"]; ok {
		// Tolerate a malformed last_check; the documents are what matter.
		_ = json.Unmarshal(lc, &snap.LastCheck)
	}

	if docsRaw, ok := raw["documents"]; ok {
		var documents map[string][]document.Document
		if err := json.Unmarshal(docsRaw, &documents); err == nil {
			for catID, docs := range documents {
				if len(docs) > 0 {
					snap.Documents[catID] = docs
				}
			}
		}
	}
	if len(snap.Documents) > 0 {
		return snap, nil
	}

	// Legacy layout: category lists at the top level, either under the old
	// names or under bare category ids.
	for catID, key := range legacyStateKeys {
		if docsRaw, ok := raw[key]; ok {
			var docs []document.Document
			if err := json.Unmarshal(docsRaw, &docs); err == nil && len(docs) > 0 {
				snap.Documents[catID] = docs
			}
		}
	}
	for catID := range document.Categories {
		if docsRaw, ok := raw[catID]; ok {
			var docs []document.Document
			if err := json.Unmarshal(docsRaw, &docs); err == nil && len(docs) > 0 {
				snap.Documents[catID] = docs
			}
		}
	}
	return snap, nil
}

// atomicWriteJSON writes v as indented JSON via a temp file in the target
// directory, fsyncs it, and renames it into place. Non-ASCII text is written
// as-is so the file stays human-diffable.
func atomicWriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistError{Path: path, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistError{Path: path, Cause: err}
	}
	tmpPath := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistError{Path: path, Cause: cause}
	}

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &PersistError{Path: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &PersistError{Path: path, Cause: err}
	}
	return nil
}
