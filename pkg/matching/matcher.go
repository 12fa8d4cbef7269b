// Package matching reconciles extracted document fields against the property
// registry using per-field string similarity.
package matching

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrRegistryNotLoaded is returned when matching is attempted before a
// registry has been loaded.
var ErrRegistryNotLoaded = errors.New("property registry is not loaded")

// Config holds matcher thresholds
type Config struct {
	// SimilarityThreshold is the shared threshold for field-level filtering
	// and the auto-match decision
	SimilarityThreshold float64
	// TopN caps each field's result list and the merged list
	TopN int
}

// DefaultConfig returns the default matcher configuration
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.8,
		TopN:                3,
	}
}

// matchableFields are the registry columns a document can match on, in the
// order their results are merged.
var matchableFields = []string{
	string(extractor.FieldCertNumber),
	string(extractor.FieldAddress),
	string(extractor.FieldHouseNumber),
}

// Matcher matches extracted key fields against an in-memory registry. The
// registry is loaded wholesale and read-only between loads.
type Matcher struct {
	scorer *Scorer
	config Config
	logger ectologger.Logger

	mu      sync.RWMutex
	records []models.PropertyRecord
	loaded  bool
}

// NewMatcher creates a matcher with no registry loaded
func NewMatcher(config Config, logger ectologger.Logger) *Matcher {
	return &Matcher{
		scorer: NewScorer(),
		config: config,
		logger: logger,
	}
}

// LoadRecords replaces the registry wholesale.
func (m *Matcher) LoadRecords(records []models.PropertyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
	m.loaded = true
	m.logger.WithField("records", len(records)).Info("Property registry loaded")
}

// RegistryLoaded reports whether a registry has been loaded
func (m *Matcher) RegistryLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// RegistrySize returns the number of loaded registry rows
func (m *Matcher) RegistrySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// MatchByCertNumber matches a certificate number against the registry using
// an order-sensitive edit ratio.
func (m *Matcher) MatchByCertNumber(value string) ([]models.PropertyMatch, error) {
	return m.matchField(string(extractor.FieldCertNumber), value)
}

// MatchByAddress matches an address using the order-insensitive token ratio.
func (m *Matcher) MatchByAddress(value string) ([]models.PropertyMatch, error) {
	return m.matchField(string(extractor.FieldAddress), value)
}

// MatchByHouseNumber matches a house number using an order-sensitive edit ratio.
func (m *Matcher) MatchByHouseNumber(value string) ([]models.PropertyMatch, error) {
	return m.matchField(string(extractor.FieldHouseNumber), value)
}

func (m *Matcher) matchField(field, value string) ([]models.PropertyMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loaded {
		return nil, ErrRegistryNotLoaded
	}

	var matches []models.PropertyMatch
	for _, record := range m.records {
		column := recordColumn(record, field)
		if column == "" {
			continue
		}

		var similarity float64
		if field == string(extractor.FieldAddress) {
			similarity = m.scorer.TokenSortRatio(value, column)
		} else {
			similarity = m.scorer.Levenshtein(value, column)
		}

		if similarity >= m.config.SimilarityThreshold {
			matches = append(matches, models.PropertyMatch{
				PropertyID:   record.PropertyID,
				MatchedField: field,
				Similarity:   similarity,
				Record:       record,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > m.config.TopN {
		matches = matches[:m.config.TopN]
	}
	return matches, nil
}

// MatchDocument matches the extracted key fields against the registry and
// merges the per-field results. Missing fields skip their lookup; a row
// matched by several fields keeps its best single-field similarity.
func (m *Matcher) MatchDocument(ctx context.Context, keyFields map[string]string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.MatchDocument")
	defer span.End()

	if !m.RegistryLoaded() {
		return nil, ErrRegistryNotLoaded
	}

	result := &models.MatchResult{
		FieldMatches: make(map[string][]models.PropertyMatch),
	}

	var merged []models.PropertyMatch
	for _, field := range matchableFields {
		value, ok := keyFields[field]
		if !ok || value == "" {
			continue
		}

		matches, err := m.matchField(field, value)
		if err != nil {
			return nil, err
		}

		result.FieldMatches[field] = matches
		merged = append(merged, matches...)
	}

	// Sort the union descending and deduplicate by property id, keeping the
	// first (highest similarity) occurrence. Similarities are never summed
	// across fields.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	seen := make(map[string]bool, len(merged))
	for _, match := range merged {
		if seen[match.PropertyID] {
			continue
		}
		seen[match.PropertyID] = true
		result.AllMatches = append(result.AllMatches, match)
	}

	if len(result.AllMatches) > m.config.TopN {
		result.AllMatches = result.AllMatches[:m.config.TopN]
	}

	if len(result.AllMatches) > 0 {
		best := result.AllMatches[0]
		result.BestMatch = &best

		// The auto-match decision reuses the same shared threshold as the
		// field-level filter.
		if best.Similarity >= m.config.SimilarityThreshold {
			auto := best
			result.AutoMatch = &auto
		}
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"fields":  len(result.FieldMatches),
		"matches": len(result.AllMatches),
		"auto":    result.AutoMatch != nil,
	}).Debug("Matched document against registry")

	return result, nil
}

func recordColumn(record models.PropertyRecord, field string) string {
	switch field {
	case string(extractor.FieldCertNumber):
		return record.CertNumber
	case string(extractor.FieldAddress):
		return record.Address
	case string(extractor.FieldHouseNumber):
		return record.HouseNumber
	default:
		return ""
	}
}
