package matchreview

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	documentrepo "github.com/Ramsey-B/fern/internal/repositories/document"
	matchreviewrepo "github.com/Ramsey-B/fern/internal/repositories/matchreview"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers match review routes
func Register(g *echo.Group) {
	g.GET("", ListProposed)
	g.GET("/:id", GetReview)
	g.POST("/:id/confirm", ConfirmReview)
	g.POST("/:id/reject", RejectReview)
}

// ListProposed lists proposed match reviews for triage
func ListProposed(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*matchreviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	reviews, err := repo.ListProposed(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reviews)
}

// GetReview gets a match review by ID
func GetReview(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchreviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	review, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}

// ConfirmReview confirms a match candidate. The document gets the property
// assigned, sibling proposals are rejected and the graph link is marked
// confirmed.
func ConfirmReview(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")
	resolvedBy := resolvedBy(ctx)

	ctx, repo, err := ectoinject.GetContext[*matchreviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	review, err := repo.Resolve(ctx, tenantID, id, models.MatchReviewStatusConfirmed, resolvedBy)
	if err != nil {
		return err
	}

	ctx, docRepo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := docRepo.GetByID(ctx, tenantID, review.DocumentID)
	if err != nil {
		return err
	}
	doc.PropertyID = &review.PropertyID
	if err := docRepo.UpdateResult(ctx, doc); err != nil {
		return err
	}

	if ctx, links, err := ectoinject.GetContext[*graph.LinkService](ctx); err == nil && links != nil {
		match := &models.PropertyMatch{
			PropertyID:   review.PropertyID,
			MatchedField: review.MatchedField,
			Similarity:   review.Similarity,
		}
		// Graph is a projection; a write failure does not fail the confirm.
		_ = links.LinkMatched(ctx, doc, match, true)
	}

	return c.JSON(http.StatusOK, review)
}

// RejectReview rejects a match candidate. Rejecting the assigned property
// clears it from the document.
func RejectReview(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")
	resolvedBy := resolvedBy(ctx)

	ctx, repo, err := ectoinject.GetContext[*matchreviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	review, err := repo.Resolve(ctx, tenantID, id, models.MatchReviewStatusRejected, resolvedBy)
	if err != nil {
		return err
	}

	ctx, docRepo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := docRepo.GetByID(ctx, tenantID, review.DocumentID)
	if err != nil {
		return err
	}

	if doc.PropertyID != nil && *doc.PropertyID == review.PropertyID {
		doc.PropertyID = nil
		if err := docRepo.UpdateResult(ctx, doc); err != nil {
			return err
		}

		if ctx, links, err := ectoinject.GetContext[*graph.LinkService](ctx); err == nil && links != nil {
			_ = links.UnlinkMatched(ctx, tenantID, review.DocumentID, review.PropertyID)
		}
	}

	return c.JSON(http.StatusOK, review)
}

func resolvedBy(ctx context.Context) *string {
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return nil
	}
	return &userID
}
