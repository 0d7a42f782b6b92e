// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockd/internal/domain/approval"
	"stockd/internal/domain/audit"
	"stockd/internal/domain/documents"
	"stockd/internal/domain/ledger"
	"stockd/internal/infrastructure/http/v1/handlers"
	"stockd/internal/infrastructure/http/v1/middleware"
	"stockd/internal/infrastructure/storage/postgres"
	"stockd/pkg/logger"
)

// RouterConfig holds the wired services the API serves.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	JWTValidator middleware.JWTValidator

	// ApprovalPrivilegeLevel is the minimum privilege for approve and
	// cancel routes.
	ApprovalPrivilegeLevel int

	Documents *documents.Service
	Approval  *approval.Engine
	Ledger    *ledger.Service
	Audit     *audit.Service

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool.Unwrap(), cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))

	baseHandler := handlers.NewBaseHandler()

	// Documents: read surface plus approve/cancel transitions
	{
		handler := handlers.NewDocumentHandler(baseHandler, cfg.Documents, cfg.Approval, cfg.Audit)
		docs := protected.Group("/documents")

		docs.GET("", handler.List)
		docs.GET("/:id", handler.Get)
		docs.GET("/number/:number", handler.GetByNumber)
		docs.GET("/:id/movements", handler.Movements)
		docs.GET("/:id/activity", handler.Activity)

		approve := middleware.RequirePrivilege(cfg.ApprovalPrivilegeLevel)
		docs.POST("/:id/approve", approve, handler.Approve)
		docs.POST("/:id/cancel", approve, handler.Cancel)
	}

	// Stock register reads
	{
		handler := handlers.NewStockHandler(baseHandler, cfg.Ledger)
		stock := protected.Group("/stock")

		stock.GET("/balance", handler.GetBalance)
		stock.GET("/lots", handler.GetLots)
	}

	return router
}
