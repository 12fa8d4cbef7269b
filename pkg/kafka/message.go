package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	Submission *models.DocumentSubmission
}

// ParseSubmission parses the message value as a document submission
func (m *IncomingMessage) ParseSubmission() error {
	var sub models.DocumentSubmission
	if err := json.Unmarshal(m.Value, &sub); err != nil {
		return err
	}
	if len(sub.Pages) == 0 && sub.FilePath == "" {
		return fmt.Errorf("submission has neither pages nor a file path")
	}
	m.Submission = &sub
	return nil
}

// GetTenantID returns the tenant ID from the submission body or headers
func (m *IncomingMessage) GetTenantID() string {
	if m.Submission != nil && m.Submission.TenantID != "" {
		return m.Submission.TenantID
	}
	return m.Headers["tenant_id"]
}

// GetDocumentID returns the caller-supplied document ID, if any
func (m *IncomingMessage) GetDocumentID() string {
	if m.Submission != nil && m.Submission.DocumentID != "" {
		return m.Submission.DocumentID
	}
	return m.Key
}
