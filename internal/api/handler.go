package api

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"pmtrack-backend/config"
	"pmtrack-backend/internal/importer"
	"pmtrack-backend/internal/lifecycle"
	"pmtrack-backend/internal/mw"
	"pmtrack-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	importer *importer.Importer
	cfg      *config.Config
	logger   *log.Logger
}

// NewHandler creates a new API handler. A nil cfg or logger falls back to
// defaults.
func NewHandler(s store.Store, cfg *config.Config, logger *log.Logger) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.New(os.Stdout, "pmtrack ", log.LstdFlags)
	}
	return &Handler{
		store:    s,
		importer: importer.New(s),
		cfg:      cfg,
		logger:   logger,
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// writeError maps domain errors onto HTTP statuses. Unexpected failures are
// logged with the request id and hidden from the client.
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	var (
		validationErr *lifecycle.ValidationError
		missingErr    *importer.MissingColumnsError
		workbookErr   *importer.WorkbookError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, "Machine not found")
	case errors.Is(err, store.ErrDuplicateMachineID):
		fail(c, http.StatusConflict, "Machine ID already exists")
	case errors.As(err, &validationErr):
		fail(c, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &missingErr):
		fail(c, http.StatusBadRequest, "Missing columns in Excel file: "+strings.Join(missingErr.Columns, ", "))
	case errors.As(err, &workbookErr), errors.Is(err, importer.ErrEmptyWorkbook):
		fail(c, http.StatusBadRequest, "Invalid Excel file")
	default:
		h.logger.Printf("[%s] %s failed: %v", mw.GetRequestID(c), op, err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
