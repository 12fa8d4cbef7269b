package document

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var documentColumns = []string{
	"id", "tenant_id", "file_name", "fingerprint", "status", "doc_type",
	"confidence", "method", "key_info", "content", "page_count", "property_id",
	"created_at", "updated_at",
}

// Repository handles document persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new document repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new pending document
func (r *Repository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Create")
	defer span.End()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	if doc.Status == "" {
		doc.Status = models.DocumentStatusPending
	}
	if doc.KeyInfo == nil {
		doc.KeyInfo = json.RawMessage("{}")
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("documents")
	sb.Cols(documentColumns...)
	sb.Values(doc.ID, doc.TenantID, doc.FileName, doc.Fingerprint, doc.Status, doc.DocType,
		doc.Confidence, doc.Method, []byte(doc.KeyInfo), doc.Content, doc.PageCount, doc.PropertyID,
		doc.CreatedAt, doc.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": doc.ID}).Error("Failed to create document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create document")
	}

	return doc, nil
}

// GetByID retrieves a document by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return &doc, nil
}

// GetByFingerprint finds an existing document with the same content hash
func (r *Repository) GetByFingerprint(ctx context.Context, tenantID string, fingerprint string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.GetByFingerprint")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("fingerprint", fingerprint),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil // no duplicate
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get document by fingerprint")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return &doc, nil
}

// List retrieves documents for a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string, limit int) ([]models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	return docs, nil
}

// UpdateResult stores the processing outcome for a document
func (r *Repository) UpdateResult(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.UpdateResult")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("documents")
	sb.Set(
		sb.Assign("status", doc.Status),
		sb.Assign("doc_type", doc.DocType),
		sb.Assign("confidence", doc.Confidence),
		sb.Assign("method", doc.Method),
		sb.Assign("key_info", []byte(doc.KeyInfo)),
		sb.Assign("property_id", doc.PropertyID),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", doc.ID),
		sb.Equal("tenant_id", doc.TenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": doc.ID}).Error("Failed to update document result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", doc.ID))
	}

	doc.UpdatedAt = now
	return nil
}

// UpdateClassification overwrites only the classification columns, used by
// the verify flow.
func (r *Repository) UpdateClassification(ctx context.Context, tenantID string, id string, docType string, confidence float64, method string) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.UpdateClassification")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("documents")
	sb.Set(
		sb.Assign("doc_type", docType),
		sb.Assign("confidence", confidence),
		sb.Assign("method", method),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update document classification")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update document")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
	}

	return nil
}
