package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

var pdfHrefPattern = regexp.MustCompile(`(?i)\.pdf$`)

// ParseListPage extracts document records from a WAS5 category listing page.
// Selector strategies fall back from the named classes the site uses today to
// positional cells, so cosmetic markup changes degrade gracefully. Returning
// a *ParseError means the page held no recognizable listing at all, which
// callers must treat as a failed check rather than an empty category.
func ParseListPage(html, baseURL, categoryID, categoryName string) ([]document.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ParseError{Message: "invalid base URL " + baseURL, Cause: err}
	}

	table := findListTable(doc)
	if table == nil {
		return nil, &ParseError{Message: "listing table not found for " + categoryName}
	}

	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		// No tbody: take all rows and skip the header.
		rows = table.Find("tr").Slice(1, goquery.ToEnd)
	}

	var documents []document.Document
	rows.Each(func(_ int, row *goquery.Selection) {
		if d, ok := parseRow(row, base, categoryID, categoryName); ok {
			documents = append(documents, d)
		}
	})
	return documents, nil
}

// findListTable locates the result table: table.t_table first, then any table
// that carries header cells or the title cell class.
func findListTable(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find("table.t_table").First(); t.Length() > 0 {
		return t
	}
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if t.Find("th").Length() > 0 || t.Find("td.tdMC").Length() > 0 {
			found = t
			return false
		}
		return true
	})
	return found
}

func parseRow(row *goquery.Selection, base *url.URL, categoryID, categoryName string) (document.Document, bool) {
	cells := row.Find("td")
	if cells.Length() < 2 {
		return document.Document{}, false
	}

	titleCell := row.Find("td.tdMC").First()
	if titleCell.Length() == 0 {
		titleCell = row.Find("td.t_l").First()
	}
	if titleCell.Length() == 0 {
		titleCell = cells.Eq(1)
	}

	link := titleCell.Find("a[href]").First()
	if link.Length() == 0 {
		return document.Document{}, false
	}

	title := strings.TrimSpace(link.Text())
	if title == "" {
		return document.Document{}, false
	}
	href, _ := link.Attr("href")
	fullURL := resolveURL(base, href)

	d := document.Document{
		Title:      title,
		URL:        fullURL,
		Category:   categoryName,
		CategoryID: categoryID,
		DocNumber:  cellText(row, "td.strFL", cells, 2),
		Validity:   cellText(row, "td.strGF", cells, 3),
	}

	dateCells := row.Find("td.tdRQ")
	if dateCells.Length() >= 1 {
		d.SignDate = document.NormalizeDate(strings.TrimSpace(dateCells.Eq(0).Text()))
	}
	if dateCells.Length() >= 2 {
		d.PublishDate = document.NormalizeDate(strings.TrimSpace(dateCells.Eq(1).Text()))
	}
	if d.PublishDate == "" {
		d.PublishDate = document.DateFromURL(fullURL)
	}

	parseDetailList(titleCell, &d)
	return d, true
}

// cellText reads the text of the first match for selector, falling back to
// the positional cell when the class is absent.
func cellText(row *goquery.Selection, selector string, cells *goquery.Selection, fallbackIndex int) string {
	if cell := row.Find(selector).First(); cell.Length() > 0 {
		return strings.TrimSpace(cell.Text())
	}
	if cells.Length() > fallbackIndex {
		return strings.TrimSpace(cells.Eq(fallbackIndex).Text())
	}
	return ""
}

var (
	publishDateLabel = regexp.MustCompile(`发文日期[：:]`)
	validityLabel    = regexp.MustCompile(`有\s*效\s*性\s*[：:]`)
)

// parseDetailList reads the hover detail list inside the title cell, which
// carries the issuing office and sometimes better dates than the row cells.
func parseDetailList(titleCell *goquery.Selection, d *document.Document) {
	titleCell.Find("div.t_l_content li").Each(func(_ int, li *goquery.Selection) {
		text := strings.TrimSpace(li.Text())
		switch {
		case strings.Contains(text, "办文单位："):
			d.OfficeUnit = strings.TrimSpace(strings.Replace(text, "办文单位：", "", 1))
		case publishDateLabel.MatchString(text):
			if date := document.NormalizeDate(strings.TrimSpace(publishDateLabel.ReplaceAllString(text, ""))); date != "" {
				d.PublishDate = date
			}
		case strings.Contains(text, "有效性") && d.Validity == "":
			d.Validity = strings.TrimSpace(validityLabel.ReplaceAllString(text, ""))
		}
	})
}

// FindPDFLink locates the PDF attachment on a detail page. Anchors inside an
// attachment block (附件) win over bare PDF links elsewhere on the page.
// Returns "" when the document has no PDF.
func FindPDFLink(html, docURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	base, err := url.Parse(docURL)
	if err != nil {
		return ""
	}

	var attachment, fallback string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !pdfHrefPattern.MatchString(href) {
			return true
		}
		if fallback == "" {
			fallback = href
		}
		// Walk a few ancestors looking for the attachment label. Stop
		// before body: its text covers the whole page and would match
		// any anchor.
		container := sel.Parent()
		for i := 0; i < 3 && container.Length() > 0; i++ {
			if name := goquery.NodeName(container); name == "body" || name == "html" {
				break
			}
			if strings.Contains(container.Text(), "附件") {
				attachment = href
				return false
			}
			container = container.Parent()
		}
		return true
	})

	href := attachment
	if href == "" {
		href = fallback
	}
	if href == "" {
		return ""
	}
	return resolveURL(base, href)
}

// resolveURL joins an href with its base, handling absolute, root-relative,
// and ../-style relative links.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
