package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mlmcommerce/supplychain/internal/handler"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/reqctx"
	"github.com/mlmcommerce/supplychain/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

type Deps struct {
	Engine *service.Engine
	Orders *service.OrderService
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer  prometheus.Gatherer
	SHA       string
	BuildTime string
}

type Server struct {
	e *echo.Echo
}

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(reqctx.WithCorrelationID(req.Context(), id)))
		},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", echo.HeaderXRequestID},
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			return strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:"), nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.SHA,
			"build_time": d.BuildTime,
		})
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(obs.Handler(d.Gatherer)))
	}

	api := e.Group("/api")

	engineHandler := handler.NewEngineHandler(d.Engine)
	api.POST("/authorizations", engineHandler.Authorize)
	api.POST("/commissions/preview", engineHandler.PreviewCommission)
	api.POST("/commissions/distribute", engineHandler.Distribute)
	api.GET("/participants/:id/ancestors", engineHandler.Ancestors)
	api.GET("/participants/:id/supply-path", engineHandler.SupplyPath)
	api.GET("/participants/:id/higher-rank-ancestor", engineHandler.HigherRankAncestor)

	admin := api.Group("/admin")
	admin.GET("/cache", engineHandler.CacheStats)
	admin.DELETE("/cache", engineHandler.ClearCache)
	admin.DELETE("/cache/participants/:id", engineHandler.InvalidateParticipant)
	admin.DELETE("/cache/products/:id", engineHandler.InvalidateProduct)
	admin.GET("/performance", engineHandler.PerformanceStats)

	if d.Orders != nil {
		purchaseHandler := handler.NewPurchaseHandler(d.Orders)
		api.POST("/orders", purchaseHandler.Place)
		api.GET("/orders/:id", purchaseHandler.Get)
		api.GET("/orders/:id/commissions", purchaseHandler.Commissions)
		api.POST("/orders/:id/confirm", purchaseHandler.Confirm)
		api.POST("/orders/:id/process", purchaseHandler.StartProcessing)
		api.POST("/orders/:id/complete", purchaseHandler.Complete)
		api.POST("/orders/:id/cancel", purchaseHandler.Cancel)
		api.POST("/orders/:id/refund", purchaseHandler.Refund)
	}

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}
