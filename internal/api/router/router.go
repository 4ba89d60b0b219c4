package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health *handler.HealthHandler
	Seat   *handler.SeatHandler
	Order  *handler.OrderHandler
	Admin  *handler.AdminHandler
}

// Config はルーターの設定
type Config struct {
	Metrics     *metrics.Metrics
	JWTSecret   string
	MetricsAuth middleware.Credentials
	AdminAuth   middleware.Credentials
}

// New はルーティングを設定した Echo インスタンスを作成する
func New(h Handlers, cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e, cfg.Metrics, cfg.JWTSecret)

	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.MetricsAuth))
	}

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health.Check)
	v1.GET("/sections/:id/seats", h.Seat.GetSeatMap)

	requireUser := middleware.RequireUser()
	v1.POST("/seats/hold", h.Seat.Hold, requireUser)
	v1.POST("/seats/release", h.Seat.Release, requireUser)
	v1.POST("/seats/confirm", h.Seat.Confirm, requireUser)

	v1.POST("/orders/:event_id", h.Order.Create, requireUser)
	v1.GET("/orders/my", h.Order.ListMine, requireUser)
	v1.GET("/orders/:order_number", h.Order.Get, requireUser)

	admin := v1.Group("/admin", middleware.AdminBasicAuth(cfg.AdminAuth))
	admin.POST("/sections/:id/seats", h.Admin.InitializeSeats)
	admin.POST("/sweeps", h.Admin.Sweep)

	return e
}
