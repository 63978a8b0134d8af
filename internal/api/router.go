package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"pmtrack-backend/config"
	"pmtrack-backend/internal/mw"
	"pmtrack-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, logger *log.Logger) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	handler := NewHandler(s, cfg, logger)

	// Rate limit per client IP, shared by every data route
	rateLimiter := mw.RateLimiter(rate.Limit(handler.cfg.Server.RateLimitPerSec), handler.cfg.Server.RateLimitBurst)

	r.GET("/healthz", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/machines", handler.ListMachines)
		api.GET("/machine/:machineId", handler.GetMachine)
		api.GET("/search", handler.SearchMachines)

		api.POST("/machine/new", handler.CreateMachine)
		api.PUT("/machine/edit", handler.EditMachine)
		api.PUT("/machine/update-pm", handler.UpdatePM)
		api.PUT("/machine/complete-pm", handler.CompletePM)
		api.PUT("/machine/delete-pm", handler.ClearPM)
		api.PUT("/machine/notes", handler.UpdateNotes)
		api.DELETE("/machine/delete-all", handler.DeleteMachine)
	}

	files := r.Group("/")
	files.Use(rateLimiter)
	{
		files.POST("/import/excel", handler.ImportExcel)
		files.GET("/export/pdf", handler.ExportPDF)
		files.GET("/export/xlsx", handler.ExportXLSX)
	}

	return r
}
