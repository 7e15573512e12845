// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wangwingzero/caac-monitor/internal/document"
	"github.com/wangwingzero/caac-monitor/internal/monitor"
	"github.com/wangwingzero/caac-monitor/internal/notify"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines; counted in runes so CJK titles survive.
		if runes := []rune(line); len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSummary outputs a human-readable wrap-up of a monitoring run.
func (p *Printer) PrintSummary(summary *monitor.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("New:        %d\n", summary.NewCount))
	sb.WriteString(fmt.Sprintf("Updated:    %d\n", summary.UpdatedCount))
	sb.WriteString(fmt.Sprintf("Downloaded: %d\n", summary.Downloaded))
	sb.WriteString(fmt.Sprintf("Uploaded:   %d\n", summary.Uploaded))
	sb.WriteString(fmt.Sprintf("Notified:   %d channel(s)\n", summary.Notified))
	sb.WriteString(fmt.Sprintf("Saved:      %v", summary.Saved))

	if len(summary.CategoryErrors) > 0 {
		sb.WriteString("\n\nFailed categories:\n")
		ids := make([]string, 0, len(summary.CategoryErrors))
		for id := range summary.CategoryErrors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf("  • %s: %v\n", document.CategoryName(id), summary.CategoryErrors[id]))
		}
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChanges outputs the documents that will be reported, grouped by
// category, clipped to the first few per group.
func (p *Printer) PrintChanges(groups []notify.CategoryGroup) {
	if len(groups) == 0 {
		return
	}

	var sb strings.Builder
	for gi, group := range groups {
		sb.WriteString(fmt.Sprintf("%s (%d)\n", group.Name, len(group.Documents)))

		count := min(len(group.Documents), maxItemsToShow)
		for i := 0; i < count; i++ {
			doc := group.Documents[i]
			sb.WriteString(fmt.Sprintf("  • %s", doc.Title))
			if doc.DocNumber != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", doc.DocNumber))
			}
			sb.WriteString("\n")
		}
		if len(group.Documents) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(group.Documents)-maxItemsToShow))
		}
		if gi < len(groups)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DETECTED CHANGES", strings.TrimSuffix(sb.String(), "\n"))
}
