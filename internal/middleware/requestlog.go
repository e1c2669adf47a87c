package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/lithammer/shortuuid/v3"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/metrics"
)

// RequestLogger assigns every request a correlation id, taken from the
// Correlation-ID header or generated, echoes it on the response and stores
// a logrus entry carrying it in the request context.  When the handler
// returns, one line is logged and the HTTP metrics are updated.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            cid := req.Header.Get(logging.CorrelationHeader)
            if cid == "" {
                cid = shortuuid.New()
            }
            c.Response().Header().Set(logging.CorrelationHeader, cid)

            entry := logrus.WithFields(logrus.Fields{
                "correlation_id": cid,
                "method":         req.Method,
                "path":           req.URL.Path,
            })
            ctx := logging.ContextWithCorrelationID(req.Context(), cid)
            ctx = logging.ToContext(ctx, entry)
            c.SetRequest(req.WithContext(ctx))

            err := next(c)
            if err != nil {
                // let echo write the error response so the status is final
                c.Error(err)
            }

            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            elapsed := time.Since(start)
            metrics.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
            metrics.HTTPDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

            fields := logrus.Fields{
                "status":     status,
                "latency_ms": elapsed.Milliseconds(),
                "route":      route,
            }
            log := logging.FromContext(c.Request().Context()).WithFields(fields)
            switch {
            case status >= 500:
                log.Error("request failed")
            case status >= 400:
                log.Warn("request rejected")
            default:
                log.Info("request served")
            }
            return nil
        }
    }
}
