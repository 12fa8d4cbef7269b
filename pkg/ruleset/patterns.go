package ruleset

import "regexp"

// Named patterns shared by rule regex checks and field extraction. Rule
// configurations reference these by name so the expressions live in one place.
var namedPatterns = map[string]*regexp.Regexp{
	// 京(2023)朝阳区不动产权第0012345号
	"cert_number": regexp.MustCompile(`[\x{4e00}-\x{9fa5}]\((19|20)\d{2}\)[\x{4e00}-\x{9fa5}]{2,}第([0-9A-Z\-]+)号`),
	// HT-2023-001
	"contract_number": regexp.MustCompile(`[A-Z][A-Z0-9]*(?:-[A-Z0-9]+)+|[A-Z0-9]{5,}`),
	// 18-digit (with checksum char) or legacy 15-digit resident IDs
	"id_number": regexp.MustCompile(`\d{17}[\dXx]|\d{15}`),
	// 2023年06月15日, 2023-06-15, 2023/6/15
	"date": regexp.MustCompile(`(19|20)\d{2}年\d{1,2}月\d{1,2}日|(19|20)\d{2}[-/]\d{1,2}[-/]\d{1,2}`),
	// 90.25平方米
	"area": regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:平方米|平米|㎡)`),
	// 580万元, 1200000元
	"money": regexp.MustCompile(`(\d+(?:\.\d+)?)(亿|万)?元`),
	// 北京市朝阳区某某路100号1号楼5单元801
	"address": regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,}(?:省|市|区|县)[\x{4e00}-\x{9fa5}0-9]{2,}(?:路|街|道|巷|里)[\x{4e00}-\x{9fa5}0-9号楼单元室\-]*`),
	// 5-801, 30号
	"house_number": regexp.MustCompile(`\d+-\d+|\d+号(?:楼)?`),
}

// GetPattern returns the named pattern, or nil when the name is unknown.
func GetPattern(name string) *regexp.Regexp {
	return namedPatterns[name]
}

// PatternNames lists the registered pattern names.
func PatternNames() []string {
	names := make([]string, 0, len(namedPatterns))
	for name := range namedPatterns {
		names = append(names, name)
	}
	return names
}
