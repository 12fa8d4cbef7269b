package models

import "time"

// PropertyRecord is one row of the property registry
type PropertyRecord struct {
	PropertyID  string    `json:"property_id" db:"property_id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	CertNumber  string    `json:"cert_number" db:"cert_number"`
	Address     string    `json:"address" db:"address"`
	HouseNumber string    `json:"house_number" db:"house_number"`
	OwnerName   string    `json:"owner_name" db:"owner_name"`
	Area        float64   `json:"area" db:"area"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// PropertyMatch is a registry row matched against an extracted field
type PropertyMatch struct {
	PropertyID   string         `json:"property_id"`
	MatchedField string         `json:"matched_field"`
	Similarity   float64        `json:"similarity"`
	Record       PropertyRecord `json:"record"`
}

// MatchResult is the outcome of matching a document against the registry
type MatchResult struct {
	AllMatches   []PropertyMatch            `json:"all_matches"`
	BestMatch    *PropertyMatch             `json:"best_match,omitempty"`
	AutoMatch    *PropertyMatch             `json:"auto_match,omitempty"`
	FieldMatches map[string][]PropertyMatch `json:"field_matches"`
}

// MatchReviewStatus constants for persisted match candidates
const (
	MatchReviewStatusProposed  = "proposed"
	MatchReviewStatusConfirmed = "confirmed"
	MatchReviewStatusRejected  = "rejected"
	MatchReviewStatusAuto      = "auto_matched"
)

// MatchReview is a persisted match candidate awaiting review
type MatchReview struct {
	ID           string     `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	DocumentID   string     `json:"document_id" db:"document_id"`
	PropertyID   string     `json:"property_id" db:"property_id"`
	MatchedField string     `json:"matched_field" db:"matched_field"`
	Similarity   float64    `json:"similarity" db:"similarity"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy   *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}
