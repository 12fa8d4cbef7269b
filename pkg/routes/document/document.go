package document

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	documentrepo "github.com/Ramsey-B/fern/internal/repositories/document"
	matchreviewrepo "github.com/Ramsey-B/fern/internal/repositories/matchreview"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
)

// Register registers document routes
func Register(g *echo.Group) {
	g.POST("", SubmitDocument)
	g.GET("", ListDocuments)
	g.GET("/:id", GetDocument)
	g.GET("/:id/candidates", GetCandidates)
	g.GET("/:id/reviews", ListReviews)
	g.POST("/:id/verify", VerifyDocument)
}

// SubmitDocument runs the pipeline synchronously. The body is either inline
// page text or a multipart file upload that goes through OCR first.
func SubmitDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return submitFile(c, ctx, proc, tenantID)
	}

	var req models.SubmitDocumentRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FileName == "" || len(req.Pages) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "file_name and at least one page are required")
	}

	result, err := proc.Process(ctx, tenantID, req.FileName, req.Pages)
	if err != nil {
		return err
	}

	return submissionResponse(c, result)
}

// submitFile stages the upload on disk and processes it through OCR
func submitFile(c echo.Context, ctx context.Context, proc *processor.Processor, tenantID string) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "failed to read upload")
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage upload")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage upload")
	}
	if err := tmp.Close(); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage upload")
	}

	result, err := proc.ProcessSubmission(ctx, &models.DocumentSubmission{
		TenantID: tenantID,
		FileName: fileHeader.Filename,
		FilePath: tmp.Name(),
	})
	if err != nil {
		return err
	}

	return submissionResponse(c, result)
}

func submissionResponse(c echo.Context, result *processor.Result) error {
	if result.Duplicate {
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(http.StatusCreated, result)
}

// ListDocuments lists documents for the tenant
func ListDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	docs, err := repo.List(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, docs)
}

// GetDocument gets a document by ID
func GetDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, doc)
}

// GetCandidates re-extracts the stored text and returns every field's scored
// candidates, not just the selected values.
func GetCandidates(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if doc.Content == "" {
		return httperror.NewHTTPError(http.StatusConflict, "document has no stored text")
	}

	ctx, extract, err := ectoinject.GetContext[*extractor.Extractor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, extract.ExtractAll(doc.Content))
}

// ListReviews lists the match candidates proposed for a document
func ListReviews(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchreviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	reviews, err := repo.ListByDocument(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reviews)
}

// VerifyDocument assigns a human-verified type to a document. The stored text
// becomes a supervised training sample.
func VerifyDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	id := c.Param("id")

	var req models.VerifyDocumentRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DocType == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "doc_type is required")
	}

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	ctx, hybrid, err := ectoinject.GetContext[*classifier.HybridClassifier](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result := hybrid.Classify(ctx, doc.Content, classifier.ClassifyOptions{
		IsVerified:    true,
		VerifiedLabel: req.DocType,
	})

	if err := repo.UpdateClassification(ctx, tenantID, id, result.DocType, result.Confidence, result.Method); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"document_id": id,
			"doc_type":    req.DocType,
		}).Info("Document verified")
	}

	doc.DocType = result.DocType
	doc.Confidence = result.Confidence
	doc.Method = result.Method
	return c.JSON(http.StatusOK, doc)
}
