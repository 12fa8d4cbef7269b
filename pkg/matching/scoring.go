package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Scorer provides the string similarity metrics used for registry matching
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// Levenshtein calculates an edit-distance similarity between two strings.
// Returns a score between 0.0 and 1.0. Order-sensitive; used for certificate
// and house numbers where character order carries meaning.
func (s *Scorer) Levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshteinDistance(ra, rb)
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings in runes
func (s *Scorer) LevenshteinDistance(a, b string) int {
	return levenshteinDistance([]rune(a), []rune(b))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// TokenSortRatio calculates an order-insensitive similarity: both strings are
// tokenized, the tokens sorted and rejoined, then compared by edit ratio.
// Tolerant of word reordering and minor insertions; used for addresses.
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.Levenshtein(tokenSortKey(a), tokenSortKey(b))
}

// tokenSortKey tokenizes into digit runs, letter runs and single CJK
// characters. Chinese text has no whitespace word boundaries, so individual
// characters act as tokens.
func tokenSortKey(str string) string {
	var tokens []string
	var run strings.Builder
	var runClass int // 0 none, 1 digit, 2 letter

	flush := func() {
		if run.Len() > 0 {
			tokens = append(tokens, run.String())
			run.Reset()
		}
		runClass = 0
	}

	for _, r := range str {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsDigit(r):
			if runClass != 1 {
				flush()
				runClass = 1
			}
			run.WriteRune(r)
		case unicode.IsLetter(r):
			if runClass != 2 {
				flush()
				runClass = 2
			}
			run.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()

	sort.Strings(tokens)
	return strings.Join(tokens, "")
}
