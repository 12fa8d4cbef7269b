// Package events handles event emission for the document pipeline
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher is the producer side the emitter writes through
type Publisher interface {
	PublishDocumentEvent(ctx context.Context, event *kafka.DocumentEvent) error
}

// Emitter publishes pipeline events to the document events topic
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitDocumentClassified emits a document.classified event
func (e *Emitter) EmitDocumentClassified(ctx context.Context, doc *models.Document, result models.ClassificationResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentClassified")
	defer span.End()

	payload := DocumentClassifiedEvent{
		BaseEvent:  NewBaseEvent(EventTypeDocumentClassified, doc.TenantID),
		DocumentID: doc.ID,
		DocType:    result.DocType,
		Confidence: result.Confidence,
		Method:     result.Method,
		RuleScores: result.RuleScores,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DocumentEvent{
		EventType:  string(EventTypeDocumentClassified),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		DocType:    result.DocType,
		Confidence: result.Confidence,
		Method:     result.Method,
		Data:       data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.classified event")
		return err
	}

	return nil
}

// EmitDocumentExtracted emits a document.extracted event
func (e *Emitter) EmitDocumentExtracted(ctx context.Context, doc *models.Document, keyInfo map[string]string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentExtracted")
	defer span.End()

	payload := DocumentExtractedEvent{
		BaseEvent:  NewBaseEvent(EventTypeDocumentExtracted, doc.TenantID),
		DocumentID: doc.ID,
		DocType:    doc.DocType,
		KeyInfo:    keyInfo,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DocumentEvent{
		EventType:  string(EventTypeDocumentExtracted),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		DocType:    doc.DocType,
		Data:       data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.extracted event")
		return err
	}

	return nil
}

// EmitDocumentMatched emits a document.matched event. A nil auto match means
// candidates were proposed for manual review only.
func (e *Emitter) EmitDocumentMatched(ctx context.Context, doc *models.Document, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentMatched")
	defer span.End()

	payload := DocumentMatchedEvent{
		BaseEvent:  NewBaseEvent(EventTypeDocumentMatched, doc.TenantID),
		DocumentID: doc.ID,
		AutoMatch:  result.AutoMatch != nil,
		Candidates: len(result.AllMatches),
	}
	if result.AutoMatch != nil {
		payload.PropertyID = result.AutoMatch.PropertyID
		payload.Similarity = result.AutoMatch.Similarity
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DocumentEvent{
		EventType:  string(EventTypeDocumentMatched),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		DocType:    doc.DocType,
		PropertyID: payload.PropertyID,
		Data:       data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.matched event")
		return err
	}

	return nil
}

// EmitDocumentFailed emits a document.failed event
func (e *Emitter) EmitDocumentFailed(ctx context.Context, tenantID string, documentID string, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentFailed")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"reason":         reason,
	})

	event := &kafka.DocumentEvent{
		EventType:  string(EventTypeDocumentFailed),
		TenantID:   tenantID,
		DocumentID: documentID,
		Data:       data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.failed event")
		return err
	}

	return nil
}

// EmitModelTrained emits a model.trained event
func (e *Emitter) EmitModelTrained(ctx context.Context, tenantID string, sampleCount int, classCount int, incremental bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitModelTrained")
	defer span.End()

	payload := ModelTrainedEvent{
		BaseEvent:   NewBaseEvent(EventTypeModelTrained, tenantID),
		SampleCount: sampleCount,
		ClassCount:  classCount,
		Incremental: incremental,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DocumentEvent{
		EventType: string(EventTypeModelTrained),
		TenantID:  tenantID,
		Data:      data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit model.trained event")
		return err
	}

	return nil
}
