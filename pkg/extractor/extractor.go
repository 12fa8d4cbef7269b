// Package extractor pulls structured field values out of cleaned document
// text. Every regex hit becomes a candidate; candidates are scored on format
// validity, context keywords, document position and value shape, and the best
// one per field is selected.
package extractor

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	weightFormat   = 0.3
	weightContext  = 0.3
	weightPosition = 0.2
	weightShape    = 0.2

	// Position decay runs linearly from 1.0 at offset 0 down to the floor at
	// positionSaturation characters. The saturation distance is a constant,
	// not derived from document length.
	positionSaturation = 5000
	positionFloor      = 0.1

	// Candidates whose scores land within this band of the leader count as
	// competitive for the money/address domain heuristics.
	tieBand = 0.05
)

// Extractor extracts field candidates from document text
type Extractor struct{}

// New creates a new Extractor
func New() *Extractor {
	return &Extractor{}
}

// ExtractAll runs every field's patterns over the text and returns all
// candidates per field. Fields with no hits are absent from the result.
func (e *Extractor) ExtractAll(text string) map[string][]models.Candidate {
	result := make(map[string][]models.Candidate)
	for _, field := range Fields() {
		candidates := e.extractField(text, field)
		if len(candidates) > 0 {
			result[string(field)] = candidates
		}
	}
	return result
}

// ExtractKeyInfo extracts all candidates and selects the best value per field.
func (e *Extractor) ExtractKeyInfo(text string) map[string]string {
	keyInfo := make(map[string]string)
	for field, candidates := range e.ExtractAll(text) {
		if value, ok := e.SelectBest(candidates, Field(field)); ok {
			keyInfo[field] = value
		}
	}
	return keyInfo
}

func (e *Extractor) extractField(text string, field Field) []models.Candidate {
	spec := fieldSpecs[field]

	var candidates []models.Candidate
	for _, pattern := range spec.patterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			candidate := buildCandidate(text, loc, spec.contextSize)
			if field == FieldMoney {
				candidate = normalizeMoney(text, loc, candidate)
			}
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// buildCandidate slices the value and context windows out of the text. When
// the pattern has capturing groups the last matched group is the value,
// otherwise the whole match.
func buildCandidate(text string, loc []int, contextSize int) models.Candidate {
	start, end := loc[0], loc[1]

	value := text[start:end]
	for g := len(loc)/2 - 1; g >= 1; g-- {
		if loc[2*g] >= 0 {
			value = text[loc[2*g]:loc[2*g+1]]
			break
		}
	}

	preStart := runeAlign(text, start-contextSize)
	postEnd := runeAlign(text, end+contextSize)

	return models.Candidate{
		Value:       value,
		FullMatch:   text[start:end],
		PreContext:  strings.TrimSpace(text[preStart:start]),
		PostContext: strings.TrimSpace(text[end:postEnd]),
		Start:       start,
		End:         end,
	}
}

// normalizeMoney parses the amount and unit out of a money hit and rewrites
// the surface value to the <amount><unit>元 form.
func normalizeMoney(text string, loc []int, candidate models.Candidate) models.Candidate {
	amountStr := ""
	unit := ""
	if loc[2] >= 0 {
		amountStr = text[loc[2]:loc[3]]
	}
	if len(loc) >= 6 && loc[4] >= 0 {
		unit = text[loc[4]:loc[5]]
	}

	amount, _ := strconv.ParseFloat(amountStr, 64)
	switch unit {
	case "万":
		amount *= 1e4
	case "亿":
		amount *= 1e8
	}

	candidate.Value = amountStr + unit + "元"
	candidate.Amount = amount
	candidate.Unit = unit
	return candidate
}

// SelectBest picks the winning value among a field's candidates. A single
// candidate wins unconditionally; otherwise candidates are scored and the
// highest wins, with money and address applying their domain heuristics
// inside the competitive band.
func (e *Extractor) SelectBest(candidates []models.Candidate, field Field) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0].Value, true
	}

	type scored struct {
		candidate models.Candidate
		score     float64
	}

	scoredCandidates := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredCandidates[i] = scored{candidate: c, score: e.Score(c, field)}
	}

	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].score > scoredCandidates[j].score
	})

	best := scoredCandidates[0]

	// Domain bias: among otherwise competitive candidates, money prefers the
	// largest amount and address the longest string.
	switch field {
	case FieldMoney:
		for _, sc := range scoredCandidates[1:] {
			if best.score-sc.score > tieBand {
				break
			}
			if sc.candidate.Amount > best.candidate.Amount {
				best = sc
			}
		}
	case FieldAddress:
		for _, sc := range scoredCandidates[1:] {
			if best.score-sc.score > tieBand {
				break
			}
			if utf8.RuneCountInString(sc.candidate.Value) > utf8.RuneCountInString(best.candidate.Value) {
				best = sc
			}
		}
	}

	return best.candidate.Value, true
}

// Score computes the composite candidate score in [0,1].
func (e *Extractor) Score(candidate models.Candidate, field Field) float64 {
	spec := fieldSpecs[field]

	return weightFormat*formatScore(candidate.Value, spec.canonical) +
		weightContext*contextScore(candidate, spec.keywords) +
		weightPosition*positionScore(candidate.Start) +
		weightShape*shapeConfidence(candidate.Value)
}

func formatScore(value string, canonical func(string) bool) float64 {
	if canonical == nil {
		return 0.8
	}
	if canonical(value) {
		return 1.0
	}
	return 0.5
}

func contextScore(candidate models.Candidate, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.0
	}

	context := candidate.PreContext + candidate.PostContext
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(context, keyword) {
			hits++
		}
	}

	score := float64(hits) / float64(len(keywords))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func positionScore(start int) float64 {
	if start >= positionSaturation {
		return positionFloor
	}
	return 1.0 - (1.0-positionFloor)*float64(start)/float64(positionSaturation)
}

func shapeConfidence(value string) float64 {
	length := utf8.RuneCountInString(value)
	if length < 2 {
		return 0.1
	}
	if length > 100 {
		return 0.3
	}

	signals := 0
	if strings.ContainsFunc(value, unicode.IsDigit) {
		signals++
	}
	if strings.ContainsFunc(value, unicode.IsLetter) {
		signals++
	}
	if strings.ContainsAny(value, "年月日") {
		signals++
	}
	return float64(signals) / 3.0
}

// runeAlign clamps the offset to the text bounds and backs it up to the
// nearest rune boundary so context slicing never splits a character.
func runeAlign(text string, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset >= len(text) {
		return len(text)
	}
	for offset > 0 && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}
