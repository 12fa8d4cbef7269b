// Package textclean normalizes raw OCR page text before extraction.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRuns      = regexp.MustCompile(`[ \t\x{3000}]+`)
	singleNewline  = regexp.MustCompile(`([^\n])\n([^\n])`)
	paragraphRuns  = regexp.MustCompile(`\n{3,}`)
	allowedPunct   = ".,;:!?()[]{}<>\"'、。，；：！？（）【】《》“”‘’-—_#%/\\数第号"
	allowedPattern = buildAllowedSet()
)

func buildAllowedSet() map[rune]bool {
	set := make(map[rune]bool, len(allowedPunct))
	for _, r := range allowedPunct {
		set[r] = true
	}
	return set
}

// Clean normalizes OCR output: collapses space runs, merges broken lines
// and drops characters outside the CJK/alphanumeric/punctuation set.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = filterRunes(text)
	text = spaceRuns.ReplaceAllString(text, " ")
	// OCR splits sentences over line breaks; a single newline between two
	// non-newline characters is a broken line, not a paragraph.
	text = singleNewline.ReplaceAllString(text, "$1$2")
	text = paragraphRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// CleanPages applies Clean to every page text in order.
func CleanPages(pages []string) []string {
	cleaned := make([]string, len(pages))
	for i, p := range pages {
		cleaned[i] = Clean(p)
	}
	return cleaned
}

func filterRunes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isAllowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAllowed(r rune) bool {
	// U+3000 survives filtering so the space collapse can turn it into an
	// ASCII space instead of fusing the words around it.
	if r == '\n' || r == ' ' || r == '\t' || r == '　' {
		return true
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	if unicode.Is(unicode.Han, r) {
		return true
	}
	return allowedPattern[r]
}
