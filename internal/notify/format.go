package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

// CategoryGroup is one category's new documents, in fetch order. Groups are
// passed as a slice so the rendered output is deterministic.
type CategoryGroup struct {
	Name      string
	Documents []document.Document
}

// beijingTZ is the timezone the site publishes in; timestamps in messages
// use it regardless of where the job runs.
var beijingTZ = time.FixedZone("CST", 8*60*60)

// FormatUpdate renders the change summary for delivery: a title with the
// total count, a plain-text body, and an HTML body for clients that render it.
func FormatUpdate(groups []CategoryGroup, now time.Time) Message {
	total := 0
	for _, g := range groups {
		total += len(g.Documents)
	}
	ts := now.In(beijingTZ)

	return Message{
		Title: fmt.Sprintf("📋 CAAC 文件更新通知 (%d 条)", total),
		Text:  formatText(groups, total, ts),
		HTML:  formatHTML(groups, total, ts),
	}
}

func formatText(groups []CategoryGroup, total int, ts time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "检测时间: %s\n", ts.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "新增文件: %d 条\n\n", total)

	for _, g := range groups {
		if len(g.Documents) == 0 {
			continue
		}
		fmt.Fprintf(&b, "【%s】(%d 条)\n", g.Name, len(g.Documents))
		for _, doc := range g.Documents {
			if doc.DocNumber != "" {
				fmt.Fprintf(&b, "  • %s %s\n", doc.DocNumber, doc.Title)
			} else {
				fmt.Fprintf(&b, "  • %s\n", doc.Title)
			}
			var details []string
			if doc.Validity != "" {
				details = append(details, "状态: "+doc.Validity)
			}
			if doc.PublishDate != "" {
				details = append(details, "发布: "+doc.PublishDate)
			}
			if doc.OfficeUnit != "" {
				details = append(details, "单位: "+doc.OfficeUnit)
			}
			if len(details) > 0 {
				fmt.Fprintf(&b, "    %s\n", strings.Join(details, " | "))
			}
			fmt.Fprintf(&b, "    详情: %s\n", doc.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#F5F5F7;">
<div style="font-family:-apple-system,'Helvetica Neue',Arial,sans-serif;max-width:500px;margin:0 auto;padding:32px 16px;">
  <div style="text-align:center;margin-bottom:24px;">
    <h1 style="margin:0;font-size:24px;color:#1D1D1F;">{{.Status}}</h1>
    <p style="margin:6px 0 0 0;font-size:13px;color:#86868B;">{{.Timestamp}}</p>
    <p style="margin:6px 0 0 0;font-size:13px;color:#86868B;">新增 {{.Total}} 条</p>
  </div>
{{range .Groups}}{{if .Documents}}
  <div style="background:#FFFFFF;border-radius:16px;padding:20px;margin-bottom:12px;">
    <div style="font-size:15px;font-weight:600;color:#1D1D1F;margin-bottom:12px;">{{.Name}} ({{len .Documents}})</div>
{{range .Documents}}
    <div style="padding:6px 0;border-top:1px solid #E5E5EA;">
      <a href="{{.URL}}" style="font-size:14px;color:#1D1D1F;text-decoration:none;">{{if .DocNumber}}{{.DocNumber}} {{end}}{{.Title}}</a>
      <div style="font-size:12px;color:#86868B;">{{if .PublishDate}}📅 {{.PublishDate}}{{end}}{{if .OfficeUnit}} · 🏢 {{.OfficeUnit}}{{end}}{{if .Validity}} · {{.Validity}}{{end}}</div>
    </div>
{{end}}
  </div>
{{end}}{{end}}
  <div style="text-align:center;padding:16px 0;">
    <p style="font-size:11px;color:#AEAEB2;margin:0;">CAAC 文件监控系统 · 自动发送</p>
  </div>
</div>
</body>
</html>`))

func formatHTML(groups []CategoryGroup, total int, ts time.Time) string {
	status := "检测完成"
	if total == 0 {
		status = "暂无更新"
	}

	var b strings.Builder
	err := htmlTemplate.Execute(&b, struct {
		Status    string
		Timestamp string
		Total     int
		Groups    []CategoryGroup
	}{
		Status:    status,
		Timestamp: ts.Format("2006年01月02日 15:04"),
		Total:     total,
		Groups:    groups,
	})
	if err != nil {
		// The template is static; execution can only fail on a writer error,
		// which strings.Builder never returns.
		return ""
	}
	return b.String()
}
