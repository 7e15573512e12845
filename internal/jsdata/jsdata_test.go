package jsdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

func writeJSFile(t *testing.T, dir, name, exportName, dataArray string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "var data = " + dataArray + ";\n\nmodule.exports = {\n  " + exportName + ": data\n};\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSync_WritesNewFile(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir, zap.NewNop())

	current := map[string][]document.Document{
		"13": {{
			Title:      "大型飞机公共航空运输承运人运行合格审定规则",
			URL:        "https://www.caac.gov.cn/x/t20240115_1.html",
			DocNumber:  "CCAR-121-R8",
			Validity:   "有效",
			OfficeUnit: "飞行标准司",
		}},
	}
	summary, err := exp.Sync(current, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary["regulation.js"])

	content, err := os.ReadFile(filepath.Join(dir, "regulation.js"))
	require.NoError(t, err)
	text := string(content)
	assert.True(t, strings.HasPrefix(text, "var data = ["))
	assert.Contains(t, text, "module.exports = {\n  regulationData: data\n};")
	assert.Contains(t, text, `"doc_type": "CCAR规章"`)
	assert.Contains(t, text, "大型飞机公共航空运输承运人运行合格审定规则")
	assert.NotContains(t, text, `\u`)
}

func TestSync_MergesExistingHistory(t *testing.T) {
	dir := t.TempDir()
	writeJSFile(t, dir, "regulation.js", "regulationData", `[
  {"title": "旧规章", "url": "https://www.caac.gov.cn/old.html", "doc_type": "CCAR规章", "validity": "有效", "doc_number": "CCAR-91"},
  {"title": "重抓规章", "url": "https://www.caac.gov.cn/dup.html", "doc_type": "CCAR规章", "validity": "有效", "doc_number": "CCAR-61"}
]`)
	exp := NewExporter(dir, zap.NewNop())

	current := map[string][]document.Document{
		"13": {{Title: "重抓规章(修订)", URL: "https://www.caac.gov.cn/dup.html", DocNumber: "CCAR-61-R5", Validity: "有效"}},
	}
	summary, err := exp.Sync(current, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary["regulation.js"])

	rows := exp.readRecords(filepath.Join(dir, "regulation.js"))
	require.Len(t, rows, 2)
	// Fresh rows first, carried-over history after.
	assert.Equal(t, "重抓规章(修订)", rows[0].Title)
	assert.Equal(t, "CCAR-61-R5", rows[0].DocNumber)
	assert.Equal(t, "旧规章", rows[1].Title)
}

func TestSync_EmptyFetchKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeJSFile(t, dir, "specification.js", "standardData", `[
  {"title": "航空器维修标准", "url": "https://www.caac.gov.cn/std.html", "doc_type": "标准规范", "validity": "有效", "doc_number": "MD-FS-001"}
]`)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	exp := NewExporter(dir, zap.NewNop())
	summary, err := exp.Sync(map[string][]document.Document{"15": {}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary["specification.js"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSync_UnfetchedCategoryKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeJSFile(t, dir, "normative.js", "normativeData", `[
  {"title": "规范性文件甲", "url": "https://www.caac.gov.cn/n1.html", "doc_type": "规范性文件", "validity": "有效", "doc_number": "AC-121"}
]`)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	exp := NewExporter(dir, zap.NewNop())
	_, err = exp.Sync(map[string][]document.Document{}, nil)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSync_PreservesCachedFileNumberAndPDFURL(t *testing.T) {
	dir := t.TempDir()
	writeJSFile(t, dir, "normative.js", "normativeData", `[
  {"title": "规范性文件乙", "url": "https://www.caac.gov.cn/n2.html", "doc_type": "规范性文件", "validity": "有效", "doc_number": "AC-145", "file_number": "民航规〔2023〕12号", "pdf_url": "https://files.example.com/n2.pdf"}
]`)
	exp := NewExporter(dir, zap.NewNop())

	current := map[string][]document.Document{
		"14": {{
			Title:       "规范性文件乙",
			URL:         "https://www.caac.gov.cn/n2.html",
			DocNumber:   "AC-145",
			Validity:    "有效",
			SignDate:    "2023-05-01",
			PublishDate: "2023-05-08",
		}},
	}
	_, err := exp.Sync(current, nil)
	require.NoError(t, err)

	rows := exp.readRecords(filepath.Join(dir, "normative.js"))
	require.Len(t, rows, 1)
	assert.Equal(t, "民航规〔2023〕12号", rows[0].FileNumber)
	assert.Equal(t, "https://files.example.com/n2.pdf", rows[0].PDFURL)
	assert.Equal(t, "2023年05月01日", rows[0].SignDate)
	assert.Equal(t, "2023年05月08日", rows[0].PublishDate)
}

func TestSync_MirroredPDFURLWins(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir, zap.NewNop())

	current := map[string][]document.Document{
		"13": {{Title: "规章丙", URL: "https://www.caac.gov.cn/r3.html", DocNumber: "CCAR-66", Validity: "有效"}},
	}
	pdfURLs := map[string]string{
		"https://www.caac.gov.cn/r3.html": "https://files.example.com/r3.pdf",
	}
	_, err := exp.Sync(current, pdfURLs)
	require.NoError(t, err)

	rows := exp.readRecords(filepath.Join(dir, "regulation.js"))
	require.Len(t, rows, 1)
	assert.Equal(t, "https://files.example.com/r3.pdf", rows[0].PDFURL)
}

func TestReadRecords_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regulation.js")
	require.NoError(t, os.WriteFile(path, []byte("not a js data file"), 0644))

	exp := NewExporter(dir, zap.NewNop())
	assert.Nil(t, exp.readRecords(path))
}

func TestFormatJSDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"iso", "2024-01-15", "2024年01月15日"},
		{"chinese padded", "2024年01月15日", "2024年01月15日"},
		{"chinese sloppy", "2024年1月5日", "2024年01月05日"},
		{"empty", "", ""},
		{"unrecognized", "待定", "待定"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatJSDate(tt.in))
		})
	}
}
