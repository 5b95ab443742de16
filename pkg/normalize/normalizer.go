// Package normalize canonicalizes descriptive catalog fields. It is the
// final authority in the bulk-patch merge order: its corrections overwrite
// both caller updates and enrichment output for the fields it touches.
package normalize

import (
	"strings"

	"github.com/kspirits/platform/pkg/catalog"
)

// Canonical Korean names for countries and producing regions. Granularity
// is preserved: a Speyside bottling stays Speyside, it does not collapse to
// Scotland.
var regionMap = map[string]string{
	"usa":           "미국",
	"u.s.a.":        "미국",
	"america":       "미국",
	"united states": "미국",
	"south korea":   "대한민국",
	"korea":         "대한민국",
	"scotland":      "스코틀랜드",
	"united kingdom": "영국",
	"uk":            "영국",
	"japan":         "일본",
	"ireland":       "아일랜드",
	"france":        "프랑스",
	"germany":       "독일",
	"india":         "인도",
	"taiwan":        "대만",
	"australia":     "호주",
	"canada":        "캐나다",

	"speyside":      "스페이사이드",
	"highland":      "하이랜드",
	"lowland":       "로우랜드",
	"islay":         "아일라",
	"isle of islay": "아일라",
	"campbeltown":   "캠벨타운",

	"kentucky":  "켄터키",
	"tennessee": "테네시",
	"texas":     "텍사스",

	"cognac": "꼬냑",
	"yilan":  "이란",
	"nantou": "난터우",
}

// Well-known distilleries whose region can be inferred when missing.
var distilleryRegion = map[string]string{
	"macallan":     "스페이사이드",
	"balvenie":     "스페이사이드",
	"glenfiddich":  "스페이사이드",
	"glenlivet":    "스페이사이드",
	"ardbeg":       "아일라",
	"laphroaig":    "아일라",
	"lagavulin":    "아일라",
	"bowmore":      "아일라",
	"springbank":   "캠벨타운",
	"glenmorangie": "하이랜드",
	"yamazaki":     "일본",
	"hakushu":      "일본",
	"kavalan":      "이란",
}

// Distillery name aliases collapsed to one canonical spelling.
var distilleryAlias = map[string]string{
	"the macallan":          "Macallan",
	"the balvenie":          "Balvenie",
	"the glenlivet":         "Glenlivet",
	"glenfiddich distillery": "Glenfiddich",
	"suntory yamazaki":      "Yamazaki",
}

// Apply computes canonical corrections for a record. The returned map uses
// store column names and contains only fields that actually change; an
// empty map means the record is already canonical.
func Apply(rec *catalog.Record) map[string]interface{} {
	fields := map[string]interface{}{}

	if d := canonicalDistillery(rec.Distillery); d != "" && d != rec.Distillery {
		fields["distillery"] = d
	}

	region := rec.Region
	if canonical, ok := regionMap[normKey(region)]; ok && canonical != region {
		region = canonical
		fields["region"] = canonical
	}
	if region == "" {
		name := rec.Distillery
		if d, ok := fields["distillery"].(string); ok {
			name = d
		}
		if inferred, ok := distilleryRegion[normKey(name)]; ok {
			fields["region"] = inferred
		}
	}

	if canonical, ok := regionMap[normKey(rec.Country)]; ok && canonical != rec.Country {
		fields["country"] = canonical
	}

	return fields
}

func canonicalDistillery(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if alias, ok := distilleryAlias[normKey(trimmed)]; ok {
		return alias
	}
	return trimmed
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
