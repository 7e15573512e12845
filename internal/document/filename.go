package document

import (
	"regexp"
	"strings"
)

// illegalFilenameChars are characters that cannot appear in filenames on the
// platforms the downloads are synced to.
var illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// maxFilenameRunes caps generated filenames well under common filesystem limits;
// CJK titles count runes, not bytes.
const maxFilenameRunes = 200

// PDFFileName builds the local filename for a document's PDF attachment:
// [分类]文号标题.pdf, with a 失效! prefix for expired or repealed documents.
func PDFFileName(d Document) string {
	sanitize := func(s string) string {
		return illegalFilenameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	}

	var parts []string
	if d.Invalid() {
		parts = append(parts, "失效!")
	}
	if category := sanitize(d.Category); category != "" {
		parts = append(parts, "["+category+"]")
	}
	if docNumber := sanitize(d.DocNumber); docNumber != "" {
		parts = append(parts, docNumber)
	}
	parts = append(parts, sanitize(d.Title))

	name := strings.Join(parts, "") + ".pdf"
	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = string(runes[:maxFilenameRunes-7]) + "....pdf"
	}
	return name
}
