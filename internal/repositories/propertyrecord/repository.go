package propertyrecord

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var propertyColumns = []string{
	"property_id", "tenant_id", "cert_number", "address", "house_number",
	"owner_name", "area", "created_at", "updated_at",
}

// Repository handles property registry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces registry rows keyed by (tenant_id, property_id).
// Used by registry reloads, so the whole batch goes in one statement per row
// inside a transaction.
func (r *Repository) Upsert(ctx context.Context, tenantID string, records []models.PropertyRecord) error {
	ctx, span := tracing.StartSpan(ctx, "propertyrecord.Repository.Upsert")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to begin registry transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store registry")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, record := range records {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("property_records")
		sb.Cols(propertyColumns...)
		sb.Values(record.PropertyID, tenantID, record.CertNumber, record.Address,
			record.HouseNumber, record.OwnerName, record.Area, now, now)
		sb.SQL(`ON CONFLICT (tenant_id, property_id) DO UPDATE SET
			cert_number = EXCLUDED.cert_number,
			address = EXCLUDED.address,
			house_number = EXCLUDED.house_number,
			owner_name = EXCLUDED.owner_name,
			area = EXCLUDED.area,
			updated_at = EXCLUDED.updated_at`)

		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"property_id": record.PropertyID}).Error("Failed to upsert property record")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store registry")
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit registry transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store registry")
	}

	return nil
}

// ListByTenant returns every registry row for a tenant. The matcher loads
// these wholesale into memory.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]models.PropertyRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrecord.Repository.ListByTenant")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("property_records")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("property_id")

	query, args := sb.Build()
	var records []models.PropertyRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list property records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list property records")
	}

	return records, nil
}

// Count returns the number of registry rows for a tenant
func (r *Repository) Count(ctx context.Context, tenantID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrecord.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("property_records")
	sb.Where(sb.Equal("tenant_id", tenantID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count property records")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count property records")
	}

	return count, nil
}
