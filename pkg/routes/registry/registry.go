package registry

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	propertyrecordrepo "github.com/Ramsey-B/fern/internal/repositories/propertyrecord"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/matching"
)

// Register registers property registry routes
func Register(g *echo.Group) {
	g.POST("/reload", ReloadRegistry)
	g.GET("/status", RegistryStatus)
}

// ReloadRegistryRequest optionally overrides the configured registry path
type ReloadRegistryRequest struct {
	Path string `json:"path,omitempty"`
}

// ReloadRegistry re-reads the registry file, replaces the in-memory records
// and upserts them into the database.
func ReloadRegistry(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	var req ReloadRegistryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	path := req.Path
	if path == "" {
		ctx2, cfg, err := ectoinject.GetContext[*config.Config](ctx)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
		}
		ctx = ctx2
		path = cfg.RegistryPath
	}
	if path == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "no registry path configured")
	}

	records, err := matching.LoadRegistryFile(path)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	matcher.LoadRecords(records)

	ctx, repo, err := ectoinject.GetContext[*propertyrecordrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := repo.Upsert(ctx, tenantID, records); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"path":    path,
			"records": len(records),
		}).Info("Registry reloaded")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"records": len(records),
	})
}

// RegistryStatus reports whether a registry is loaded and its size
func RegistryStatus(c echo.Context) error {
	ctx := c.Request().Context()

	_, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"loaded":  matcher.RegistryLoaded(),
		"records": matcher.RegistrySize(),
	})
}
