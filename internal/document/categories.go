package document

import (
	"sort"
	"strconv"
)

// Categories maps the CAAC search category id (the fl parameter) to its
// display name. These are the subject categories under 法定主动公开内容.
var Categories = map[string]string{
	"9":  "通知公告",
	"10": "政策发布",
	"11": "政策解读",
	"12": "统计数据",
	"47": "法律法规",
	"13": "民航规章",
	"14": "规范性文件",
	"15": "标准规范",
	"16": "对外关系",
	"17": "港澳台合作",
	"18": "国际公约",
	"19": "人事信息",
	"20": "财政信息",
	"21": "发展规划",
	"22": "重大项目",
	"23": "行政权力",
	"24": "政府公文",
	"25": "机构职能",
	"26": "对外政策",
	"27": "执法典型案例",
	"28": "建议提案答复",
	"29": "政府网站年度报表",
}

// legacyDocTypes maps category ids to the doc_type values used by the first
// generation of the state file, which only tracked three categories.
var legacyDocTypes = map[string]string{
	"13": "regulation",
	"14": "normative",
	"15": "standard",
}

// CategoryName returns the display name for a category id, or a placeholder
// for ids the registry does not know about.
func CategoryName(id string) string {
	if name, ok := Categories[id]; ok {
		return name
	}
	return "未知分类(" + id + ")"
}

// LegacyDocType returns the legacy doc_type for a category id. Categories
// outside the original three map to the generic "document".
func LegacyDocType(id string) string {
	if t, ok := legacyDocTypes[id]; ok {
		return t
	}
	return "document"
}

// CategoryIDs returns all known category ids in numeric order.
func CategoryIDs() []string {
	ids := make([]string, 0, len(Categories))
	for id := range Categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}
