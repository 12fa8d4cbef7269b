// Package classifier implements hybrid document-type classification: rules
// first, learned-model fallback, with continual sample collection and full or
// incremental retraining.
package classifier

import (
	"context"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ruleset"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds classifier thresholds
type Config struct {
	// SampleScoreThreshold gates sample collection on the rules path
	SampleScoreThreshold float64
	// ModelConfidenceThreshold gates the model path result and its sample collection
	ModelConfidenceThreshold float64
}

// DefaultConfig returns the default classifier configuration
func DefaultConfig() Config {
	return Config{
		SampleScoreThreshold:     0.9,
		ModelConfidenceThreshold: 0.6,
	}
}

// ClassifyOptions control a single classification call
type ClassifyOptions struct {
	IsVerified    bool
	VerifiedLabel string
}

// HybridClassifier scores documents against the rule table and falls back to
// the learned model when no rule clears its threshold.
type HybridClassifier struct {
	rules      *ruleset.RuleSet
	samples    *SampleStore
	modelStore *ModelStore
	config     Config
	logger     ectologger.Logger

	mu    sync.RWMutex
	model *Model
}

// New creates a hybrid classifier. An absent model artifact disables the
// model path without error.
func New(rules *ruleset.RuleSet, samples *SampleStore, modelStore *ModelStore, config Config, logger ectologger.Logger) *HybridClassifier {
	c := &HybridClassifier{
		rules:      rules,
		samples:    samples,
		modelStore: modelStore,
		config:     config,
		logger:     logger,
	}

	if modelStore != nil {
		model, err := modelStore.Load()
		if err == nil && model != nil {
			c.model = model
			logger.WithField("classes", len(model.Classes)).Info("Loaded classification model")
		}
	}
	return c
}

// RulesAvailable reports whether a real rule configuration is loaded
func (c *HybridClassifier) RulesAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules != nil && c.rules.Available
}

// Rules returns the active rule set
func (c *HybridClassifier) Rules() *ruleset.RuleSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

// UpdateRules swaps in a new rule set
func (c *HybridClassifier) UpdateRules(rules *ruleset.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = rules
}

// ModelAvailable reports whether the learned model path is usable
func (c *HybridClassifier) ModelAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Classify determines the document type for the given text.
func (c *HybridClassifier) Classify(ctx context.Context, text string, opts ClassifyOptions) models.ClassificationResult {
	ctx, span := tracing.StartSpan(ctx, "classifier.HybridClassifier.Classify")
	defer span.End()

	// Verified shortcut: the only supervised-labeling entry point. Always
	// records a sample and never scores.
	if opts.IsVerified && opts.VerifiedLabel != "" {
		c.recordSample(ctx, text, opts.VerifiedLabel, 1.0, true)
		return models.ClassificationResult{
			DocType:    opts.VerifiedLabel,
			Confidence: 1.0,
			Method:     models.MethodVerified,
		}
	}

	docType, confidence, passed, scores := c.classifyByRules(text)

	if passed {
		c.recordSample(ctx, text, docType, confidence, false)
		return models.ClassificationResult{
			DocType:    docType,
			Confidence: confidence,
			Method:     models.MethodRules,
			RuleScores: scores,
		}
	}

	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if model != nil {
		probs := model.PredictProba(text)
		modelType, modelConfidence := model.Best(probs)

		if modelConfidence >= c.config.ModelConfidenceThreshold {
			c.recordSample(ctx, text, modelType, modelConfidence, false)
		}

		return models.ClassificationResult{
			DocType:            modelType,
			Confidence:         modelConfidence,
			Method:             models.MethodModel,
			RuleScores:         scores,
			ModelProbabilities: probs,
		}
	}

	return models.ClassificationResult{
		DocType:    models.DocTypeUnknown,
		Confidence: confidence,
		Method:     models.MethodRulesFallback,
		RuleScores: scores,
	}
}

// ClassifyPages classifies the whole document over concatenated page text
// and each page independently for page-type segmentation.
func (c *HybridClassifier) ClassifyPages(ctx context.Context, pages []models.PageText, opts ClassifyOptions) models.ClassificationResult {
	ctx, span := tracing.StartSpan(ctx, "classifier.HybridClassifier.ClassifyPages")
	defer span.End()

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.CleanedText
	}

	result := c.Classify(ctx, strings.Join(texts, "\n"), opts)

	for _, page := range pages {
		pageResult := c.Classify(ctx, page.CleanedText, ClassifyOptions{})
		result.PageTypes = append(result.PageTypes, models.PageClassification{
			PageIndex:  page.PageIndex,
			DocType:    pageResult.DocType,
			Confidence: pageResult.Confidence,
			Method:     pageResult.Method,
		})
	}
	return result
}

// classifyByRules scores the text against every rule. The max-score rule
// wins, ties going to table order. Below threshold the public label is
// unknown but the candidate type stays visible in the score map.
func (c *HybridClassifier) classifyByRules(text string) (string, float64, bool, map[string]float64) {
	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()

	scores := make(map[string]float64, len(rules.Rules))

	bestIndex := -1
	bestScore := -1.0
	for i := range rules.Rules {
		rule := &rules.Rules[i]

		mustHits := rule.CountMustHits(text)
		score := 0.0
		// Non-empty must keywords with zero hits force the score to zero
		// regardless of other signals.
		if !rule.HasMustKeywords() || mustHits > 0 {
			score = rule.ScoreWeights.MustKeyword*float64(mustHits) +
				rule.ScoreWeights.OptionalKeyword*float64(rule.CountOptionalHits(text)) +
				rule.ScoreWeights.RegexHit*float64(rule.CountRegexHits(text))
		}

		scores[rule.TypeName] = score
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex < 0 {
		return models.DocTypeUnknown, 0, false, scores
	}

	best := &rules.Rules[bestIndex]
	if best.Threshold <= 0 {
		return models.DocTypeUnknown, 0, false, scores
	}

	confidence := bestScore / best.Threshold
	if bestScore < best.Threshold {
		return models.DocTypeUnknown, confidence, false, scores
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return best.TypeName, confidence, true, scores
}

// recordSample appends to the pool when verified or when confidence clears
// the sample threshold. Persistence failures are logged, never raised.
func (c *HybridClassifier) recordSample(ctx context.Context, text, label string, confidence float64, isVerified bool) {
	if c.samples == nil {
		return
	}
	if !isVerified && confidence < c.config.SampleScoreThreshold {
		return
	}

	if err := c.samples.Append(text, label); err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to record training sample")
		return
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"label":      label,
		"confidence": confidence,
		"verified":   isVerified,
	}).Debug("Recorded training sample")
}

// TrainResult reports the outcome of a training run
type TrainResult struct {
	Trained     bool   `json:"trained"`
	SampleCount int    `json:"sample_count"`
	ClassCount  int    `json:"class_count"`
	Incremental bool   `json:"incremental"`
	Message     string `json:"message,omitempty"`
}

// Train retrains the model from the accumulated sample pool. Incremental
// mode reuses the current feature transform without refitting it. A failed
// fit leaves the active model untouched.
func (c *HybridClassifier) Train(ctx context.Context, incremental bool) (TrainResult, error) {
	ctx, span := tracing.StartSpan(ctx, "classifier.HybridClassifier.Train")
	defer span.End()

	pool, err := c.samples.Load()
	if err != nil {
		return TrainResult{Message: "sample pool unreadable"}, err
	}

	var model *Model
	if incremental {
		c.mu.RLock()
		current := c.model
		c.mu.RUnlock()
		model, err = TrainIncremental(current, pool)
	} else {
		model, err = Train(pool)
	}
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Training failed, previous model remains active")
		return TrainResult{SampleCount: pool.Count, Incremental: incremental, Message: err.Error()}, err
	}

	if err := c.modelStore.Save(model); err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to persist model, previous model remains active")
		return TrainResult{SampleCount: pool.Count, Incremental: incremental, Message: "persist failed"}, err
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"samples":     pool.Count,
		"classes":     len(model.Classes),
		"incremental": incremental,
	}).Info("Model trained")

	return TrainResult{
		Trained:     true,
		SampleCount: pool.Count,
		ClassCount:  len(model.Classes),
		Incremental: incremental,
	}, nil
}

// SampleCount returns the current pool size.
func (c *HybridClassifier) SampleCount() (int, error) {
	pool, err := c.samples.Load()
	if err != nil {
		return 0, err
	}
	return pool.Count, nil
}
