// Package ruleset holds the declarative document-type rule table used by the
// classifier. Rules are pure data loaded from configuration; scoring lives in
// the classifier.
package ruleset

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
)

// ScoreWeights are the per-hit weights for one document type rule
type ScoreWeights struct {
	MustKeyword     float64 `json:"must_keyword" validate:"gte=0"`
	OptionalKeyword float64 `json:"optional_keyword" validate:"gte=0"`
	RegexHit        float64 `json:"regex_hit" validate:"gte=0"`
}

// DocumentTypeRule defines how one document type is recognised
type DocumentTypeRule struct {
	TypeName         string       `json:"type_name" validate:"required"`
	MustKeywords     []string     `json:"must_keywords"`
	OptionalKeywords []string     `json:"optional_keywords"`
	RegexChecks      []string     `json:"regex_checks"`
	ScoreWeights     ScoreWeights `json:"score_weights"`
	Threshold        float64      `json:"threshold" validate:"gte=0"`

	mustPatterns     []*regexp.Regexp
	optionalPatterns []*regexp.Regexp
	regexPatterns    []*regexp.Regexp
}

// CountMustHits returns how many must keywords match the text
func (r *DocumentTypeRule) CountMustHits(text string) int {
	return countHits(r.mustPatterns, text)
}

// CountOptionalHits returns how many optional keywords match the text
func (r *DocumentTypeRule) CountOptionalHits(text string) int {
	return countHits(r.optionalPatterns, text)
}

// CountRegexHits returns how many named regex checks match the text
func (r *DocumentTypeRule) CountRegexHits(text string) int {
	return countHits(r.regexPatterns, text)
}

// HasMustKeywords reports whether this rule carries any must keywords
func (r *DocumentTypeRule) HasMustKeywords() bool {
	return len(r.mustPatterns) > 0
}

func countHits(patterns []*regexp.Regexp, text string) int {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			hits++
		}
	}
	return hits
}

// RuleSet is the loaded rule table. Order is significant: score ties are
// broken by table position.
type RuleSet struct {
	Rules     []DocumentTypeRule `json:"rules" validate:"dive"`
	Available bool               `json:"-"`
}

// Default returns the degraded rule set used when configuration is missing:
// a single catch-all type with threshold 0.
func Default() *RuleSet {
	rs := &RuleSet{
		Rules: []DocumentTypeRule{
			{
				TypeName:  "unknown",
				Threshold: 0,
			},
		},
		Available: false,
	}
	_ = rs.compile()
	return rs
}

// Load reads a rule set from a JSON file. Missing or corrupt configuration
// degrades to Default rather than failing.
func Load(path string, logger ectologger.Logger) *RuleSet {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Rule configuration unavailable, using default rule set")
		return Default()
	}

	rs, err := Parse(data)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Rule configuration invalid, using default rule set")
		return Default()
	}

	logger.WithFields(map[string]any{"path": path, "rules": len(rs.Rules)}).Info("Loaded rule set")
	return rs
}

// Parse decodes, validates and compiles a rule set from JSON.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("rule set contains no rules")
	}

	if err := validator.New().Struct(&rs); err != nil {
		return nil, fmt.Errorf("rule set failed validation: %w", err)
	}

	if err := rs.compile(); err != nil {
		return nil, err
	}

	rs.Available = true
	return &rs, nil
}

func (rs *RuleSet) compile() error {
	for i := range rs.Rules {
		rule := &rs.Rules[i]

		var err error
		if rule.mustPatterns, err = compilePatterns(rule.MustKeywords); err != nil {
			return fmt.Errorf("rule %q: %w", rule.TypeName, err)
		}
		if rule.optionalPatterns, err = compilePatterns(rule.OptionalKeywords); err != nil {
			return fmt.Errorf("rule %q: %w", rule.TypeName, err)
		}

		rule.regexPatterns = rule.regexPatterns[:0]
		for _, name := range rule.RegexChecks {
			p := GetPattern(name)
			if p == nil {
				return fmt.Errorf("rule %q references unknown pattern %q", rule.TypeName, name)
			}
			rule.regexPatterns = append(rule.regexPatterns, p)
		}
	}
	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		p, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, p)
	}
	return compiled, nil
}
