package middleware

import (
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Logger emits one structured entry per request after the handler returns.
// The request id comes from the context set by the Context middleware, with
// the header and a fresh uuid as fallbacks.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}
			latency := time.Since(start)

			ctx := c.Request().Context()
			requestID := appcontext.GetRequestID(ctx)
			if requestID == "" {
				requestID = req.Header.Get(echo.HeaderXRequestID)
			}
			if requestID == "" {
				requestID = uuid.New().String()
			}

			logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":    requestID,
				"trace_id":      tracing.GetTraceID(ctx),
				"tenant_id":     appcontext.GetTenantID(ctx),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"route":         c.Path(),
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"user_agent":    req.UserAgent(),
				"latency":       latency,
				"request_size":  req.Header.Get(echo.HeaderContentLength),
				"response_size": strconv.FormatInt(res.Size, 10),
			}).Info("Request")

			return nil
		}
	}
}
