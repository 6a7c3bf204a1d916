package server

import (
	"github.com/gin-gonic/gin"

	"opsdashboard/exporting"
	"opsdashboard/internal/config"
	"opsdashboard/reporting"
	"opsdashboard/server/middleware"
)

// Server is the HTTP adapter over the consolidation and reporting core. It
// owns no business logic: handlers translate requests into core calls and
// core tables into responses.
type Server struct {
	config    *config.Config
	store     *Store
	reporting *reporting.Service
	exporter  *exporting.Exporter
	engine    *gin.Engine
}

// New builds the server with its middleware chain and routes.
func New(cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.SecurityHeaders(),
		middleware.RateLimit(cfg.RateLimitPerSec),
	)

	s := &Server{
		config: cfg,
		store:  NewStore(),
		reporting: reporting.NewService(reporting.Config{
			IssueRuleText:         cfg.IssueRuleText,
			NotFoundShippingLabel: cfg.NotFoundShippingLabel,
			ComparisonPeriodDays:  cfg.ComparisonPeriodDays,
		}),
		exporter: exporting.NewExporter(),
		engine:   engine,
	}
	s.registerRoutes()
	return s
}

// registerRoutes wires the API surface.
func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/upload/production", s.handleUploadProduction)
		api.POST("/upload/shipping", s.handleUploadShipping)
		api.POST("/consolidate", s.handleConsolidate)

		runs := api.Group("/runs/:id")
		{
			runs.GET("/consolidated", s.handleConsolidated)
			runs.GET("/flagged", s.handleFlagged)
			runs.GET("/conflicts", s.handleConflicts)
			runs.GET("/summary", s.handleSummary)
			runs.GET("/drilldown/line", s.handleDrillDownByLine)
			runs.GET("/drilldown/category", s.handleDrillDownByCategory)
			runs.GET("/export/summary.csv", s.handleExportSummaryCSV)
			runs.GET("/export/summary.xlsx", s.handleExportSummaryXLSX)
			runs.GET("/export/drilldown.csv", s.handleExportDrillDownCSV)
		}
	}
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP listener.
func (s *Server) Run() error {
	return s.engine.Run(":" + s.config.Port)
}
