package extractor

import (
	"regexp"

	"github.com/Ramsey-B/fern/pkg/ruleset"
)

// Field identifies one extractable document field
type Field string

const (
	FieldCertNumber     Field = "cert_number"
	FieldContractNumber Field = "contract_number"
	FieldIDNumber       Field = "id_number"
	FieldAddress        Field = "address"
	FieldHouseNumber    Field = "house_number"
	FieldArea           Field = "area"
	FieldMoney          Field = "money"
	FieldDate           Field = "date"
)

// Fields lists every extractable field in a stable order
func Fields() []Field {
	return []Field{
		FieldCertNumber,
		FieldContractNumber,
		FieldIDNumber,
		FieldAddress,
		FieldHouseNumber,
		FieldArea,
		FieldMoney,
		FieldDate,
	}
}

// fieldSpec carries everything one field needs: its extraction patterns, the
// canonical re-validation check, the context window size and the keyword set
// used for context scoring.
type fieldSpec struct {
	patterns    []*regexp.Regexp
	canonical   func(string) bool // nil when the field has no canonical pattern
	contextSize int
	keywords    []string
}

var fieldSpecs = map[Field]fieldSpec{
	FieldCertNumber: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[\x{4e00}-\x{9fa5}]\((?:19|20)\d{2}\)[\x{4e00}-\x{9fa5}]{2,}第[0-9A-Z\-]+号`),
		},
		canonical:   ruleset.ValidCertNumber,
		contextSize: 100,
		keywords:    []string{"证号", "不动产权", "产权证", "权证"},
	},
	FieldContractNumber: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:合同编号|合同号|编号)[:：]?\s*([A-Z0-9][A-Z0-9\-]{4,})`),
			regexp.MustCompile(`[A-Z]{2,}-[0-9]{2,}(?:-[0-9A-Z]+)*`),
		},
		canonical:   ruleset.ValidContractNumber,
		contextSize: 100,
		keywords:    []string{"合同编号", "合同号", "编号"},
	},
	FieldIDNumber: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\d{17}[\dXx]|\d{15}`),
		},
		canonical:   ruleset.ValidIDNumber,
		contextSize: 50,
		keywords:    []string{"身份证", "证件号码", "身份证号"},
	},
	FieldAddress: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,}(?:省|市|区|县)[\x{4e00}-\x{9fa5}0-9]{2,}(?:路|街|道|巷|里)[\x{4e00}-\x{9fa5}0-9号楼单元室\-]*`),
		},
		canonical:   nil,
		contextSize: 150,
		keywords:    []string{"地址", "坐落", "位于", "位置"},
	},
	FieldHouseNumber: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:房号|室号|房间号)[:：]?\s*(\d+-\d+)`),
			regexp.MustCompile(`\d+-\d+`),
			regexp.MustCompile(`\d+号(?:楼)?`),
		},
		canonical:   validHouseNumber,
		contextSize: 80,
		keywords:    []string{"房号", "室号", "房屋"},
	},
	FieldArea: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:平方米|平米|㎡)`),
		},
		canonical:   ruleset.ValidArea,
		contextSize: 50,
		keywords:    []string{"面积", "建筑面积", "使用面积"},
	},
	FieldMoney: {
		patterns: []*regexp.Regexp{
			moneyPattern,
		},
		canonical:   validMoney,
		contextSize: 80,
		keywords:    []string{"金额", "价格", "价款", "总价"},
	},
	FieldDate: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:19|20)\d{2}年\d{1,2}月\d{1,2}日|(?:19|20)\d{2}[-/]\d{1,2}[-/]\d{1,2}`),
		},
		canonical:   ruleset.ValidDate,
		contextSize: 50,
		keywords:    []string{"日期", "时间", "签订", "登记"},
	},
}

var (
	moneyPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)(亿|万)?元`)
	moneyExact       = regexp.MustCompile(`^\d+(?:\.\d+)?(?:亿|万)?元$`)
	houseNumberExact = regexp.MustCompile(`^(?:\d+-\d+|\d+号(?:楼)?)$`)
)

func validMoney(value string) bool {
	return moneyExact.MatchString(value)
}

func validHouseNumber(value string) bool {
	return houseNumberExact.MatchString(value)
}
