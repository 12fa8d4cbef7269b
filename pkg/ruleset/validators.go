package ruleset

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	certNumberExact     = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}]\([0-9]{4}\)[\x{4e00}-\x{9fa5}]{2,}第[0-9A-Z\-]+号$`)
	contractNumberExact = regexp.MustCompile(`^[A-Z0-9\-]{5,}$`)
	dateExact           = regexp.MustCompile(`^(?:(19|20)\d{2}年\d{1,2}月\d{1,2}日|(19|20)\d{2}[-/]\d{1,2}[-/]\d{1,2})$`)
	idNumber18          = regexp.MustCompile(`^\d{17}[\dX]$`)
	idNumber15          = regexp.MustCompile(`^\d{15}$`)
)

// idChecksumWeights and idChecksumCodes implement the GB 11643 mod-11 check
// for 18-digit resident IDs.
var idChecksumWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
var idChecksumCodes = [11]byte{'1', '0', 'X', '9', '8', '7', '6', '5', '4', '3', '2'}

// ValidCertNumber reports whether the value is a well-formed certificate number.
func ValidCertNumber(value string) bool {
	return certNumberExact.MatchString(value)
}

// ValidContractNumber reports whether the value is a well-formed contract number.
func ValidContractNumber(value string) bool {
	return contractNumberExact.MatchString(value)
}

// ValidDate reports whether the value is one of the accepted date formats.
func ValidDate(value string) bool {
	return dateExact.MatchString(value)
}

// ValidIDNumber reports whether the value is a valid resident ID. 18-digit IDs
// must also pass the checksum; 15-digit legacy IDs only need the right shape.
func ValidIDNumber(value string) bool {
	value = strings.ToUpper(value)
	if idNumber15.MatchString(value) {
		return true
	}
	if !idNumber18.MatchString(value) {
		return false
	}

	sum := 0
	for i := 0; i < 17; i++ {
		sum += int(value[i]-'0') * idChecksumWeights[i]
	}
	return value[17] == idChecksumCodes[sum%11]
}

// ValidArea reports whether the value parses to a plausible floor area.
func ValidArea(value string) bool {
	value = strings.TrimSuffix(value, "平方米")
	value = strings.TrimSuffix(value, "平米")
	value = strings.TrimSuffix(value, "㎡")
	value = strings.TrimSpace(value)

	area, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	return area > 0 && area < 10000
}
