package models

import (
	"encoding/json"
	"time"
)

// DocumentStatus constants
const (
	DocumentStatusPending   = "pending"
	DocumentStatusProcessed = "processed"
	DocumentStatusFailed    = "failed"
)

// DocTypeUnknown is the public label for documents that no rule or model claims.
const DocTypeUnknown = "unknown/other"

// Document is a processed OCR document
type Document struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	FileName    string          `json:"file_name" db:"file_name"`
	Fingerprint string          `json:"fingerprint" db:"fingerprint"`
	Status      string          `json:"status" db:"status"`
	DocType     string          `json:"doc_type" db:"doc_type"`
	Confidence  float64         `json:"confidence" db:"confidence"`
	Method      string          `json:"method" db:"method"`
	KeyInfo     json.RawMessage `json:"key_info,omitempty" db:"key_info"`
	Content     string          `json:"-" db:"content"`
	PageCount   int             `json:"page_count" db:"page_count"`
	PropertyID  *string         `json:"property_id,omitempty" db:"property_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// PageText is one OCR'd page after cleaning
type PageText struct {
	PageIndex   int     `json:"page_index"`
	CleanedText string  `json:"cleaned_text"`
	Confidence  float64 `json:"confidence"`
}

// DocumentSubmission is an asynchronous processing request consumed from
// Kafka. Either inline page text or a file path for OCR must be present.
type DocumentSubmission struct {
	TenantID   string     `json:"tenant_id"`
	DocumentID string     `json:"document_id,omitempty"`
	FileName   string     `json:"file_name"`
	FilePath   string     `json:"file_path,omitempty"`
	Pages      []PageText `json:"pages,omitempty"`
}

// SubmitDocumentRequest is the request body for submitting a document by text
type SubmitDocumentRequest struct {
	FileName string     `json:"file_name" validate:"required"`
	Pages    []PageText `json:"pages" validate:"required,min=1,dive"`
}

// VerifyDocumentRequest assigns a verified label to a document
type VerifyDocumentRequest struct {
	DocType string `json:"doc_type" validate:"required"`
}
