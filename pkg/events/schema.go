package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Document pipeline events
	EventTypeDocumentClassified EventType = "document.classified"
	EventTypeDocumentExtracted  EventType = "document.extracted"
	EventTypeDocumentMatched    EventType = "document.matched"
	EventTypeDocumentFailed     EventType = "document.failed"

	// Model lifecycle events
	EventTypeModelTrained EventType = "model.trained"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// DocumentClassifiedEvent is emitted when a document type is decided
type DocumentClassifiedEvent struct {
	BaseEvent
	DocumentID string             `json:"document_id"`
	DocType    string             `json:"doc_type"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
	RuleScores map[string]float64 `json:"rule_scores,omitempty"`
}

// DocumentExtractedEvent is emitted after key information extraction
type DocumentExtractedEvent struct {
	BaseEvent
	DocumentID string            `json:"document_id"`
	DocType    string            `json:"doc_type"`
	KeyInfo    map[string]string `json:"key_info"`
}

// DocumentMatchedEvent is emitted after registry matching
type DocumentMatchedEvent struct {
	BaseEvent
	DocumentID string  `json:"document_id"`
	PropertyID string  `json:"property_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	AutoMatch  bool    `json:"auto_match"`
	Candidates int     `json:"candidates"`
}

// ModelTrainedEvent is emitted after a training run swaps in a new model
type ModelTrainedEvent struct {
	BaseEvent
	SampleCount int  `json:"sample_count"`
	ClassCount  int  `json:"class_count"`
	Incremental bool `json:"incremental"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
