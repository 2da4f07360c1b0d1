package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderflow/internal/handler/api"
	"orderflow/internal/handler/middleware"
	"orderflow/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, inventoryHandler *api.InventoryHandler, fulfillmentHandler *api.FulfillmentHandler) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, cfg, inventoryHandler, fulfillmentHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, cfg config.Config, inventoryHandler *api.InventoryHandler, fulfillmentHandler *api.FulfillmentHandler) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware(cfg.JWT))
	{
		inventory := apiGroup.Group("/inventory")
		{
			addRoutes(inventory, []route{
				{Method: http.MethodPost, Path: "/reservations", Handler: inventoryHandler.CreateReservation},
				{Method: http.MethodGet, Path: "/orders/:order_id/reservation", Handler: inventoryHandler.GetReservation},
				{Method: http.MethodPost, Path: "/orders/:order_id/commit", Handler: inventoryHandler.CommitReservation},
				{Method: http.MethodPost, Path: "/orders/:order_id/release", Handler: inventoryHandler.ReleaseReservation},
				{Method: http.MethodPost, Path: "/sweep", Handler: inventoryHandler.SweepExpired},
			})
		}

		fulfillment := apiGroup.Group("/fulfillment")
		{
			addRoutes(fulfillment, []route{
				{Method: http.MethodPost, Path: "/shipments", Handler: fulfillmentHandler.PrepareShipment},
				{Method: http.MethodGet, Path: "/orders/:order_id/shipment", Handler: fulfillmentHandler.GetShipment},
				{Method: http.MethodPost, Path: "/orders/:order_id/label", Handler: fulfillmentHandler.PurchaseLabel},
				{Method: http.MethodPost, Path: "/orders/:order_id/cancel", Handler: fulfillmentHandler.CancelShipment},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		case http.MethodPut:
			g.PUT(r.Path, r.Handler)
		case http.MethodDelete:
			g.DELETE(r.Path, r.Handler)
		default:
			g.Any(r.Path, r.Handler)
		}
	}
}
