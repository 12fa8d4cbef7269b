package training

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/events"
)

// Register registers training routes
func Register(g *echo.Group) {
	g.POST("", TrainModel)
	g.GET("/status", TrainingStatus)
}

// TrainModel retrains the classification model from the sample pool.
// Query params: incremental=true reuses the frozen feature transform,
// force=true skips the minimum pool size check.
func TrainModel(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)

	incremental := c.QueryParam("incremental") == "true"
	force := c.QueryParam("force") == "true"

	ctx, hybrid, err := ectoinject.GetContext[*classifier.HybridClassifier](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if !force {
		ctx2, cfg, err := ectoinject.GetContext[*config.Config](ctx)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
		}
		ctx = ctx2

		count, err := hybrid.SampleCount()
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "sample pool unreadable")
		}
		if count < cfg.MinSamplesForTraining {
			return httperror.NewHTTPError(http.StatusConflict, "sample pool too small, use force=true to train anyway")
		}
	}

	result, err := hybrid.Train(ctx, incremental)
	if err != nil {
		if err == classifier.ErrInsufficientSamples {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "training failed")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil && emitter != nil {
		if emitErr := emitter.EmitModelTrained(ctx, tenantID, result.SampleCount, result.ClassCount, result.Incremental); emitErr != nil {
			if ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx); err == nil && logger != nil {
				logger.WithContext(ctx).WithError(emitErr).Warn("Failed to emit model trained event")
			}
		}
	}

	return c.JSON(http.StatusOK, result)
}

// TrainingStatus reports the classifier state and pool size
func TrainingStatus(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, hybrid, err := ectoinject.GetContext[*classifier.HybridClassifier](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	count, err := hybrid.SampleCount()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "sample pool unreadable")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"rules_available": hybrid.RulesAvailable(),
		"model_available": hybrid.ModelAvailable(),
		"sample_count":    count,
	})
}
