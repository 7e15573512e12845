// Package document defines the record model for monitored CAAC documents.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Document is one monitored document observed on a listing page.
// The canonical page URL is the document's identity: two records with the
// same URL are the same logical document across runs. JSON field names match
// the historic state files so snapshots stay diffable in version control.
type Document struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	CategoryID  string `json:"category_id"`
	DocNumber   string `json:"doc_number"`
	OfficeUnit  string `json:"office_unit"`
	SignDate    string `json:"sign_date"`
	PublishDate string `json:"publish_date"`
	Validity    string `json:"validity"`
	PDFURL      string `json:"pdf_url"`
	HasPDF      bool   `json:"has_pdf"`
}

// fingerprintFields returns the fixed, ordered field set hashed for change
// detection. Volatile fields (PDFURL, HasPDF) are deliberately excluded so a
// later attachment discovery does not register as a content edit.
func (d Document) fingerprintFields() []string {
	return []string{
		d.Title,
		d.DocNumber,
		d.Validity,
		d.OfficeUnit,
		d.SignDate,
		d.PublishDate,
	}
}

// Fingerprint returns the hex SHA-256 over the tracked field set.
// Identical field values always produce an identical fingerprint; any change
// to a tracked field changes it.
func (d Document) Fingerprint() string {
	h := sha256.New()
	for i, field := range d.fingerprintFields() {
		if i > 0 {
			h.Write([]byte{0x1f}) // unit separator, keeps adjacent fields from colliding
		}
		h.Write([]byte(strings.TrimSpace(field)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Invalid reports whether the document has been marked expired or repealed.
func (d Document) Invalid() bool {
	switch strings.TrimSpace(d.Validity) {
	case "失效", "废止":
		return true
	}
	return false
}
