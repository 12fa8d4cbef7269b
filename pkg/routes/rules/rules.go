package rules

import (
	"io"
	"net/http"
	"os"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/ruleset"
)

// Register registers rule configuration routes
func Register(g *echo.Group) {
	g.GET("", GetRules)
	g.PUT("", UpdateRules)
}

// GetRules returns the active rule set
func GetRules(c echo.Context) error {
	ctx := c.Request().Context()

	_, hybrid, err := ectoinject.GetContext[*classifier.HybridClassifier](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, hybrid.Rules())
}

// UpdateRules validates a new rule configuration, persists it and swaps it
// into the classifier. A body that fails validation leaves the active rules
// untouched.
func UpdateRules(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	parsed, err := ruleset.Parse(body)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := os.WriteFile(cfg.RulesPath, body, 0o644); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to persist rules")
	}

	ctx, hybrid, err := ectoinject.GetContext[*classifier.HybridClassifier](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	hybrid.UpdateRules(parsed)

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("rules", len(parsed.Rules)).Info("Rule set updated")
	}

	return c.JSON(http.StatusOK, parsed)
}
