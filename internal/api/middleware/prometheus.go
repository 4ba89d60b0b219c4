package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア
// パスはルート定義（/sections/:id/seats など）で集計し、未定義のパスはまとめる
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = api.ToHTTPError(err).Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequest(c.Request().Method, path, status, time.Since(start))

			return err
		}
	}
}
