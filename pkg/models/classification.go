package models

// Classification methods
const (
	MethodVerified      = "verified"
	MethodRules         = "rules"
	MethodModel         = "model"
	MethodRulesFallback = "rules_fallback"
)

// ClassificationResult is the outcome of classifying one document
type ClassificationResult struct {
	DocType            string               `json:"doc_type"`
	Confidence         float64              `json:"confidence"`
	Method             string               `json:"method"`
	RuleScores         map[string]float64   `json:"rule_scores,omitempty"`
	ModelProbabilities map[string]float64   `json:"model_probabilities,omitempty"`
	PageTypes          []PageClassification `json:"page_types,omitempty"`
}

// PageClassification is the classification of a single page
type PageClassification struct {
	PageIndex  int     `json:"page_index"`
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// Candidate is one regex hit for a field with its surrounding context
type Candidate struct {
	Value       string `json:"value"`
	FullMatch   string `json:"full_match"`
	PreContext  string `json:"pre_context"`
	PostContext string `json:"post_context"`
	Start       int    `json:"start"`
	End         int    `json:"end"`

	// Money candidates carry the parsed amount and its unit
	Amount float64 `json:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// ExtractionResult is the outcome of extracting fields from one document
type ExtractionResult struct {
	KeyInfo  map[string]string      `json:"key_info"`
	AllInfo  map[string][]Candidate `json:"all_info"`
	PageInfo []PageExtraction       `json:"page_info,omitempty"`
}

// PageExtraction holds the per-page key fields
type PageExtraction struct {
	PageIndex int               `json:"page_index"`
	KeyInfo   map[string]string `json:"key_info"`
}
