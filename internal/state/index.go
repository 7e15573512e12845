package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// IndexEntry records where a document's PDF was saved locally.
type IndexEntry struct {
	RelativePath string `json:"relative_path"`
	UpdatedAt    string `json:"updated_at"`
}

// downloadIndexFile sits beside the snapshot and maps document URL to the
// downloaded file, so re-runs skip PDFs that are already on disk.
const downloadIndexFile = "downloads.json"

// IndexPath returns the download index path for this store.
func (s *Store) IndexPath() string {
	return filepath.Join(filepath.Dir(s.path), downloadIndexFile)
}

// LoadIndex reads the download index. Missing or unreadable files yield an
// empty index; the index is a cache, losing it only costs re-downloads.
func (s *Store) LoadIndex() map[string]IndexEntry {
	path := s.IndexPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]IndexEntry{}
	}
	if err != nil {
		s.log.Warn("failed to read download index", zap.String("path", path), zap.Error(err))
		return map[string]IndexEntry{}
	}

	var payload struct {
		Records map[string]IndexEntry `json:"records"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Records == nil {
		s.log.Warn("failed to parse download index", zap.String("path", path), zap.Error(err))
		return map[string]IndexEntry{}
	}

	records := make(map[string]IndexEntry, len(payload.Records))
	for url, entry := range payload.Records {
		if entry.RelativePath == "" {
			continue
		}
		records[url] = entry
	}
	return records
}

// SaveIndex writes the download index with the same atomic discipline as the
// snapshot itself.
func (s *Store) SaveIndex(records map[string]IndexEntry) error {
	payload := map[string]any{
		"last_update": time.Now().Format(time.RFC3339),
		"records":     records,
	}
	if err := atomicWriteJSON(s.IndexPath(), payload); err != nil {
		return err
	}
	s.log.Info("download index saved", zap.Int("entries", len(records)))
	return nil
}
