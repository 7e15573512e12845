package document

import (
	"fmt"
	"regexp"
)

var (
	cnDatePattern  = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	urlDatePattern = regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})_`)
)

// NormalizeDate converts the site's Chinese date format to ISO:
// 2024年1月15日 -> 2024-01-15. Already-ISO dates pass through; anything
// else is returned unchanged rather than dropped.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if m := cnDatePattern.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}
	if isoDatePattern.MatchString(s) {
		return s
	}
	return s
}

// DateFromURL extracts a publish date from detail page URLs of the form
// .../t20240115_226943.html. Returns "" when the URL has no date segment.
func DateFromURL(url string) string {
	m := urlDatePattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
