package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Document{
		Title:       "关于修订《民用航空器驾驶员合格审定规则》的决定",
		URL:         "https://www.caac.gov.cn/doc/1.html",
		DocNumber:   "交通运输部令2024年第1号",
		Validity:    "有效",
		OfficeUnit:  "飞行标准司",
		SignDate:    "2024-01-10",
		PublishDate: "2024-01-15",
	}
	b := a // separate value, same fields

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestFingerprint_TrackedFieldChanges(t *testing.T) {
	base := Document{
		Title:       "标题",
		DocNumber:   "民航规〔2024〕1号",
		Validity:    "有效",
		OfficeUnit:  "综合司",
		SignDate:    "2024-01-01",
		PublishDate: "2024-01-02",
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"title", func(d *Document) { d.Title = "新标题" }},
		{"doc number", func(d *Document) { d.DocNumber = "民航规〔2024〕2号" }},
		{"validity", func(d *Document) { d.Validity = "失效" }},
		{"office unit", func(d *Document) { d.OfficeUnit = "运输司" }},
		{"sign date", func(d *Document) { d.SignDate = "2024-02-01" }},
		{"publish date", func(d *Document) { d.PublishDate = "2024-02-02" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())
		})
	}
}

func TestFingerprint_IgnoresVolatileFields(t *testing.T) {
	base := Document{Title: "标题", URL: "https://www.caac.gov.cn/doc/1.html"}

	withPDF := base
	withPDF.PDFURL = "https://www.caac.gov.cn/doc/1.pdf"
	withPDF.HasPDF = true

	assert.Equal(t, base.Fingerprint(), withPDF.Fingerprint())
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	a := Document{Title: "ab", DocNumber: "c"}
	b := Document{Title: "a", DocNumber: "bc"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"chinese format", "2024年01月15日", "2024-01-15"},
		{"chinese single digits", "2024年1月5日", "2024-01-05"},
		{"already iso", "2024-01-15", "2024-01-15"},
		{"empty", "", ""},
		{"unparseable", "发布日期未知", "发布日期未知"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestDateFromURL(t *testing.T) {
	assert.Equal(t, "2024-01-15",
		DateFromURL("https://www.caac.gov.cn/XXGK/XXGK/MHGZ/t20240115_226943.html"))
	assert.Equal(t, "", DateFromURL("https://www.caac.gov.cn/XXGK/XXGK/MHGZ/index.html"))
}

func TestPDFFileName(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			"full fields",
			Document{Title: "运输机场建设管理规定", Category: "民航规章", DocNumber: "CCAR-158", Validity: "有效"},
			"[民航规章]CCAR-158运输机场建设管理规定.pdf",
		},
		{
			"invalid document prefixed",
			Document{Title: "已废止规章", Category: "民航规章", Validity: "废止"},
			"失效![民航规章]已废止规章.pdf",
		},
		{
			"illegal characters replaced",
			Document{Title: `关于A/B:C纪要`, Category: "通知公告"},
			"[通知公告]关于A_B_C纪要.pdf",
		},
		{
			"no category or number",
			Document{Title: "标题"},
			"标题.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PDFFileName(tt.doc))
		})
	}
}

func TestPDFFileName_TruncatesLongTitles(t *testing.T) {
	long := make([]rune, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, '规')
	}
	name := PDFFileName(Document{Title: string(long)})
	assert.LessOrEqual(t, len([]rune(name)), 200)
	assert.Contains(t, name, "....pdf")
}

func TestCategoryRegistry(t *testing.T) {
	assert.Equal(t, "民航规章", CategoryName("13"))
	assert.Equal(t, "未知分类(99)", CategoryName("99"))

	assert.Equal(t, "regulation", LegacyDocType("13"))
	assert.Equal(t, "normative", LegacyDocType("14"))
	assert.Equal(t, "standard", LegacyDocType("15"))
	assert.Equal(t, "document", LegacyDocType("9"))

	ids := CategoryIDs()
	assert.Len(t, ids, len(Categories))
	assert.Equal(t, "9", ids[0]) // numeric order, not lexical
}
