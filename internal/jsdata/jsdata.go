// Package jsdata regenerates the JS data files consumed by the static site
// (regulation.js, normative.js, specification.js), merging the latest fetch
// over the existing file contents so history is never truncated.
package jsdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

// Record is one row in a JS data file.
type Record struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	DocType     string `json:"doc_type"`
	Validity    string `json:"validity"`
	SignDate    string `json:"sign_date,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	DocNumber   string `json:"doc_number"`
	OfficeUnit  string `json:"office_unit,omitempty"`
	FileNumber  string `json:"file_number,omitempty"`
	PDFURL      string `json:"pdf_url,omitempty"`
}

type exportConfig struct {
	filename   string
	exportName string
	docType    string
}

// exports lists the categories that feed a JS data file.
var exports = map[string]exportConfig{
	"13": {filename: "regulation.js", exportName: "regulationData", docType: "CCAR规章"},
	"14": {filename: "normative.js", exportName: "normativeData", docType: "规范性文件"},
	"15": {filename: "specification.js", exportName: "standardData", docType: "标准规范"},
}

// Exporter writes the JS data files into a directory.
type Exporter struct {
	dir string
	log *zap.Logger
}

// NewExporter creates an exporter targeting dir.
func NewExporter(dir string, log *zap.Logger) *Exporter {
	return &Exporter{dir: dir, log: log}
}

// Sync regenerates each export from the current fetch. pdfURLs maps document
// URL to a mirrored PDF URL; cached pdf_url and file_number values from the
// existing files are preserved when the fetch has nothing newer. Categories
// that were not fetched (absent key) or fetched empty keep their existing
// file untouched. Returns the row count per written or kept file.
func (e *Exporter) Sync(current map[string][]document.Document, pdfURLs map[string]string) (map[string]int, error) {
	summary := make(map[string]int, len(exports))

	// file_number is only curated in normative.js; read it once up front.
	cachedFileNumbers := e.cachedFileNumbers()

	for catID, cfg := range exports {
		path := filepath.Join(e.dir, cfg.filename)
		catName := document.CategoryName(catID)
		existing := e.readRecords(path)

		existingPDF := make(map[string]string, len(existing))
		for _, row := range existing {
			if row.URL != "" && row.PDFURL != "" {
				existingPDF[row.URL] = row.PDFURL
			}
		}

		docs, fetched := current[catID]
		if len(docs) == 0 {
			if len(existing) > 0 {
				reason := "category fetched empty"
				if !fetched {
					reason = "category not fetched"
				}
				e.log.Warn("keeping existing js file",
					zap.String("category", catName),
					zap.String("file", cfg.filename),
					zap.String("reason", reason))
				summary[cfg.filename] = len(existing)
				continue
			}
			if err := e.writeRecords(path, nil, cfg.exportName); err != nil {
				return summary, err
			}
			summary[cfg.filename] = 0
			continue
		}

		records := make([]Record, 0, len(docs))
		seen := make(map[string]bool, len(docs))
		for _, doc := range docs {
			rec := buildRecord(catID, cfg, doc, cachedFileNumbers)
			if rec.PDFURL == "" {
				if u, ok := pdfURLs[doc.URL]; ok {
					rec.PDFURL = u
				} else {
					rec.PDFURL = existingPDF[doc.URL]
				}
			}
			records = append(records, rec)
			if rec.URL != "" {
				seen[rec.URL] = true
			}
		}

		// Keep existing history so a small perpage never truncates the file.
		kept := 0
		for _, row := range existing {
			if row.URL == "" || !seen[row.URL] {
				records = append(records, row)
				kept++
			}
		}

		if err := e.writeRecords(path, records, cfg.exportName); err != nil {
			return summary, err
		}
		summary[cfg.filename] = len(records)
		e.log.Info("js file updated",
			zap.String("file", cfg.filename),
			zap.Int("new", len(records)-kept),
			zap.Int("kept", kept))
	}
	return summary, nil
}

func buildRecord(catID string, cfg exportConfig, doc document.Document, fileNumbers map[string]string) Record {
	rec := Record{
		Title:     doc.Title,
		URL:       doc.URL,
		DocType:   cfg.docType,
		Validity:  doc.Validity,
		DocNumber: doc.DocNumber,
		PDFURL:    doc.PDFURL,
	}
	switch catID {
	case "13":
		rec.OfficeUnit = doc.OfficeUnit
	case "14":
		rec.SignDate = FormatJSDate(doc.SignDate)
		rec.PublishDate = FormatJSDate(doc.PublishDate)
		rec.OfficeUnit = strings.TrimSpace(doc.OfficeUnit)
		rec.FileNumber = fileNumbers[doc.URL]
		if rec.FileNumber == "" && doc.DocNumber != "" {
			rec.FileNumber = "文号：" + doc.DocNumber
		}
	case "15":
		rec.PublishDate = FormatJSDate(doc.PublishDate)
		rec.OfficeUnit = doc.OfficeUnit
	}
	return rec
}

// cachedFileNumbers reads the curated file_number values from the existing
// normative.js.
func (e *Exporter) cachedFileNumbers() map[string]string {
	numbers := make(map[string]string)
	for _, row := range e.readRecords(filepath.Join(e.dir, exports["14"].filename)) {
		if row.URL != "" && row.FileNumber != "" {
			numbers[row.URL] = row.FileNumber
		}
	}
	return numbers
}

// readRecords parses the data array out of a JS data file. Missing or
// malformed files yield nil: the exporter regenerates from scratch then.
func (e *Exporter) readRecords(path string) []Record {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		e.log.Warn("failed to read js file", zap.String("path", path), zap.Error(err))
		return nil
	}

	marker := bytes.Index(content, []byte("var data"))
	if marker < 0 {
		e.log.Warn("js file missing data marker", zap.String("path", path))
		return nil
	}
	start := bytes.IndexByte(content[marker:], '[')
	end := bytes.LastIndex(content, []byte("];"))
	if start < 0 || end < marker+start {
		e.log.Warn("js file missing data array", zap.String("path", path))
		return nil
	}
	start += marker

	var records []Record
	if err := json.Unmarshal(content[start:end+1], &records); err != nil {
		e.log.Warn("failed to parse js data array", zap.String("path", path), zap.Error(err))
		return nil
	}
	return records
}

func (e *Exporter) writeRecords(path string, records []Record, exportName string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create js directory: %w", err)
	}
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to marshal js records: %w", err)
	}
	serialized := strings.TrimRight(buf.String(), "\n")

	content := fmt.Sprintf("var data = %s;\n\nmodule.exports = {\n  %s: data\n};\n", serialized, exportName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write js file %s: %w", path, err)
	}
	return nil
}

var cnJSDate = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日$`)
var isoJSDate = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// FormatJSDate renders a date in the style the JS consumers expect
// (YYYY年MM月DD日), zero-padding sloppy Chinese dates and converting ISO.
func FormatJSDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := isoJSDate.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s年%s月%s日", m[1], m[2], m[3])
	}
	if m := cnJSDate.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s年%s月%s日", m[1], pad2(m[2]), pad2(m[3]))
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
