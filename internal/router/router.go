package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docschema/internal/handler"
	"docschema/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger *zap.Logger,
	allowedOrigins []string,
	documentH *handler.DocumentHandler,
	tableH *handler.TableHandler,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	v1.POST("/documents", documentH.Upload)

	tables := v1.Group("/tables")
	tables.GET("", tableH.List)
	tables.DELETE("/:table", tableH.Drop)
	tables.GET("/:table/schema", tableH.Schema)
	tables.GET("/:table/analysis", tableH.Analysis)
	tables.GET("/:table/export", tableH.Export)
	tables.GET("/:table/rows", tableH.Rows)
	tables.POST("/:table/rows", tableH.AddRow)
	tables.GET("/:table/rows/:id", tableH.GetRow)
	tables.PUT("/:table/rows/:id", tableH.UpdateRow)
	tables.DELETE("/:table/rows/:id", tableH.DeleteRow)

	runs := v1.Group("/runs")
	runs.GET("", runH.List)
	runs.GET("/:id", runH.GetByID)

	return r
}
