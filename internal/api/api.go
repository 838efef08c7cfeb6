package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/rop-engine/internal/api/handlers"
	"github.com/andresuchdata/rop-engine/internal/api/middleware"
	"github.com/andresuchdata/rop-engine/internal/pipeline"
	"github.com/andresuchdata/rop-engine/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ROPService    *service.ROPService
	Orchestrator  *pipeline.Orchestrator
	ReportService *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ROPService != nil {
		ropHandler := handlers.NewROPHandler(services.ROPService, services.Orchestrator, services.ReportService)
		ropGroup := apiGroup.Group("/rop")
		{
			ropGroup.GET("/suggestions", ropHandler.ListSuggestions)
			ropGroup.POST("/suggestions/:id/dismiss", ropHandler.DismissSuggestion)
			ropGroup.POST("/purchase-orders", ropHandler.GeneratePurchaseOrder)

			ropGroup.GET("/parts/:id", ropHandler.GetPartDetails)
			ropGroup.POST("/parts/:id/calculate", ropHandler.CalculatePart)
			ropGroup.PUT("/parts/:id/policy", ropHandler.UpdatePolicy)

			ropGroup.POST("/calculate", ropHandler.CalculateAll)
			ropGroup.GET("/runs", ropHandler.ListRuns)
			ropGroup.POST("/reports/pending", ropHandler.ExportPending)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
