package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// LinkService maintains Document and Property nodes and the MATCHED_TO edges
// between them
type LinkService struct {
	client *Client
	logger ectologger.Logger
}

// NewLinkService creates a new link service
func NewLinkService(client *Client, logger ectologger.Logger) *LinkService {
	return &LinkService{
		client: client,
		logger: logger,
	}
}

// UpsertDocument creates or updates a Document node
func (s *LinkService) UpsertDocument(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.UpsertDocument")
	defer span.End()

	cypher := `
		MERGE (d:Document {id: $id, tenant_id: $tenant_id})
		SET d.file_name = $file_name,
			d.doc_type = $doc_type,
			d.confidence = $confidence,
			d.method = $method
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":         doc.ID,
			"tenant_id":  doc.TenantID,
			"file_name":  doc.FileName,
			"doc_type":   doc.DocType,
			"confidence": doc.Confidence,
			"method":     doc.Method,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": doc.ID}).Error("Failed to upsert document node")
		return err
	}

	return nil
}

// UpsertProperty creates or updates a Property node from a registry row
func (s *LinkService) UpsertProperty(ctx context.Context, tenantID string, record models.PropertyRecord) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.UpsertProperty")
	defer span.End()

	cypher := `
		MERGE (p:Property {id: $id, tenant_id: $tenant_id})
		SET p.cert_number = $cert_number,
			p.address = $address,
			p.house_number = $house_number,
			p.owner_name = $owner_name
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":           record.PropertyID,
			"tenant_id":    tenantID,
			"cert_number":  record.CertNumber,
			"address":      record.Address,
			"house_number": record.HouseNumber,
			"owner_name":   record.OwnerName,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"property_id": record.PropertyID}).Error("Failed to upsert property node")
		return err
	}

	return nil
}

// LinkMatched merges a MATCHED_TO edge from a document to a property. Both
// nodes are merged first so links never dangle.
func (s *LinkService) LinkMatched(ctx context.Context, doc *models.Document, match *models.PropertyMatch, confirmed bool) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.LinkMatched")
	defer span.End()

	cypher := `
		MERGE (d:Document {id: $document_id, tenant_id: $tenant_id})
		MERGE (p:Property {id: $property_id, tenant_id: $tenant_id})
		MERGE (d)-[r:MATCHED_TO]->(p)
		SET r.similarity = $similarity,
			r.matched_field = $matched_field,
			r.confirmed = $confirmed
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"document_id":   doc.ID,
			"tenant_id":     doc.TenantID,
			"property_id":   match.PropertyID,
			"similarity":    match.Similarity,
			"matched_field": match.MatchedField,
			"confirmed":     confirmed,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"document_id": doc.ID,
			"property_id": match.PropertyID,
		}).Error("Failed to link document to property")
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id": doc.ID,
		"property_id": match.PropertyID,
		"similarity":  match.Similarity,
	}).Debug("Linked document to property")

	return nil
}

// UnlinkMatched removes the MATCHED_TO edge for a rejected match
func (s *LinkService) UnlinkMatched(ctx context.Context, tenantID string, documentID string, propertyID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.UnlinkMatched")
	defer span.End()

	cypher := `
		MATCH (d:Document {id: $document_id, tenant_id: $tenant_id})-[r:MATCHED_TO]->(p:Property {id: $property_id, tenant_id: $tenant_id})
		DELETE r
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"document_id": documentID,
			"tenant_id":   tenantID,
			"property_id": propertyID,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to unlink document from property")
		return err
	}

	return nil
}

// DocumentsForProperty returns the IDs of documents linked to a property
func (s *LinkService) DocumentsForProperty(ctx context.Context, tenantID string, propertyID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.LinkService.DocumentsForProperty")
	defer span.End()

	cypher := `
		MATCH (d:Document {tenant_id: $tenant_id})-[:MATCHED_TO]->(p:Property {id: $property_id, tenant_id: $tenant_id})
		RETURN d.id AS id
	`

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"tenant_id":   tenantID,
			"property_id": propertyID,
		})
		if err != nil {
			return nil, err
		}

		var ids []string
		for result.Next(ctx) {
			if v, ok := result.Record().Get("id"); ok {
				if id, ok := v.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, err
	}

	ids, _ := res.([]string)
	return ids, nil
}
