package matchreview

import (
	"context"
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

var reviewColumns = []string{
	"id", "tenant_id", "document_id", "property_id", "matched_field",
	"similarity", "status", "created_at", "updated_at", "resolved_at", "resolved_by",
}

// Repository handles match review persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch stores the match candidates produced for a document. A
// re-processed document keeps the higher similarity for an existing
// (document, property) pair.
func (r *Repository) CreateBatch(ctx context.Context, reviews []*models.MatchReview) error {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.CreateBatch")
	defer span.End()

	if len(reviews) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_reviews")
	sb.Cols("id", "tenant_id", "document_id", "property_id", "matched_field", "similarity", "status", "created_at", "updated_at")

	for _, review := range reviews {
		if review.ID == "" {
			review.ID = uuid.New().String()
		}
		review.CreatedAt = now
		review.UpdatedAt = now
		if review.Status == "" {
			review.Status = models.MatchReviewStatusProposed
		}
		sb.Values(review.ID, review.TenantID, review.DocumentID, review.PropertyID, review.MatchedField, review.Similarity, review.Status, review.CreatedAt, review.UpdatedAt)
	}

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, document_id, property_id) DO UPDATE SET similarity = GREATEST(match_reviews.similarity, EXCLUDED.similarity), matched_field = EXCLUDED.matched_field, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create match reviews batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match reviews")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(reviews)}).Debug("Created match reviews batch")
	return nil
}

// Get retrieves a match review by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("match_reviews")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var review models.MatchReview
	if err := r.db.GetContext(ctx, &review, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match review %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match review")
	}

	return &review, nil
}

// ListByDocument retrieves the match candidates proposed for a document
func (r *Repository) ListByDocument(ctx context.Context, tenantID string, documentID string) ([]models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.ListByDocument")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("match_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("document_id", documentID),
	)
	sb.OrderBy("similarity DESC", "created_at DESC")

	query, args := sb.Build()
	var reviews []models.MatchReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match reviews by document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match reviews")
	}

	return reviews, nil
}

// ListProposed retrieves proposed match reviews for manual triage
func (r *Repository) ListProposed(ctx context.Context, tenantID string, limit int) ([]models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.ListProposed")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("match_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.MatchReviewStatusProposed),
	)
	sb.OrderBy("similarity DESC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var reviews []models.MatchReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list proposed match reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list proposed match reviews")
	}

	return reviews, nil
}

// Resolve confirms or rejects a match review. Confirming a review rejects
// every other proposed candidate on the same document.
func (r *Repository) Resolve(ctx context.Context, tenantID string, id string, status string, resolvedBy *string) (*models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.Resolve")
	defer span.End()

	if status != models.MatchReviewStatusConfirmed && status != models.MatchReviewStatusRejected {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid review status %q", status))
	}

	review, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to begin review transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve match review")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_reviews")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve match review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve match review")
	}

	if status == models.MatchReviewStatusConfirmed {
		reject := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		reject.Update("match_reviews")
		reject.Set(
			reject.Assign("status", models.MatchReviewStatusRejected),
			reject.Assign("resolved_at", now),
			reject.Assign("updated_at", now),
		)
		reject.Where(
			reject.Equal("tenant_id", tenantID),
			reject.Equal("document_id", review.DocumentID),
			reject.Equal("status", models.MatchReviewStatusProposed),
			reject.NotEqual("id", id),
		)

		query, args := reject.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to reject sibling match reviews")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve match review")
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit review transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve match review")
	}

	review.Status = status
	review.ResolvedAt = &now
	review.ResolvedBy = resolvedBy
	review.UpdatedAt = now
	return review, nil
}

// MarkAuto marks a review as auto-matched when similarity clears the
// auto-match threshold during processing.
func (r *Repository) MarkAuto(ctx context.Context, tenantID string, documentID string, propertyID string) error {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.MarkAuto")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_reviews")
	sb.Set(
		sb.Assign("status", models.MatchReviewStatusAuto),
		sb.Assign("resolved_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("document_id", documentID),
		sb.Equal("property_id", propertyID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark review as auto-matched")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark review as auto-matched")
	}

	return nil
}

// DeleteByDocument removes all reviews for a document
func (r *Repository) DeleteByDocument(ctx context.Context, tenantID string, documentID string) error {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.DeleteByDocument")
	defer span.End()

	query := `
		DELETE FROM match_reviews
		WHERE tenant_id = $1
		AND document_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, tenantID, documentID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete match reviews by document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete match reviews")
	}

	return nil
}
