package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pmtrack-backend/internal/mw"
	"pmtrack-backend/internal/report"
)

// ImportExcel reconciles an uploaded .xlsx workbook into the machine list.
func (h *Handler) ImportExcel(c *gin.Context) {
	maxBytes := h.cfg.Server.MaxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d MB", h.cfg.Server.MaxUploadMB))
			return
		}
		fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		fail(c, http.StatusBadRequest, "Only .xlsx files are supported")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, "import", err)
		return
	}
	defer file.Close()

	n, err := h.importer.Import(c.Request.Context(), file)
	if err != nil {
		h.writeError(c, "import", err)
		return
	}
	h.logger.Printf("[%s] imported %d records from %s", mw.GetRequestID(c), n, header.Filename)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"imported": n,
		"message":  fmt.Sprintf("Successfully imported %d records", n),
	})
}

// ExportPDF downloads the machine table as a PDF document.
func (h *Handler) ExportPDF(c *gin.Context) {
	h.export(c, report.FormatPDF)
}

// ExportXLSX downloads the machine table as a workbook.
func (h *Handler) ExportXLSX(c *gin.Context) {
	h.export(c, report.FormatXLSX)
}

func (h *Handler) export(c *gin.Context, format string) {
	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, "export", err)
		return
	}

	out, err := report.Render(format, h.cfg.Report.Title, records, time.Now())
	if err != nil {
		h.writeError(c, "export", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(format)))
	c.Data(http.StatusOK, report.ContentType(format), out)
}

// Health pings the database.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.Printf("[%s] health check failed: %v", mw.GetRequestID(c), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
