// Package dashboardapi serves dashboard aggregates over HTTP with gin.
package dashboardapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/dashboard"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Service is the dashboard behaviour the handlers depend on.
type Service interface {
	Summary(ctx context.Context, until *time.Time) (dashboard.Summary, error)
	Preview(ctx context.Context, until *time.Time, limit int) ([]domain.Incident, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.IngestRun, error)
	CheckReadiness(ctx context.Context) error
}

type Handler struct {
	service  Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the API on group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/summary", h.getSummary)
	api.GET("/incidents", h.listIncidents)
	api.GET("/runs", h.listRuns)
	api.GET("/health", h.healthCheck)
}

func (h *Handler) getSummary(c *gin.Context) {
	var q SummaryQuery
	if !h.bindQuery(c, &q) {
		return
	}
	until, err := parseUntil(q.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until date"})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), until)
	if err != nil {
		h.logger.Error("summary failed", "until", q.Until, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) listIncidents(c *gin.Context) {
	var q IncidentsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	until, err := parseUntil(q.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until date"})
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultPreviewLimit
	}

	incidents, err := h.service.Preview(c.Request.Context(), until, limit)
	if err != nil {
		h.logger.Error("incident preview failed", "until", q.Until, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	c.JSON(http.StatusOK, IncidentsResponse{Count: len(incidents), Incidents: incidents})
}

func (h *Handler) listRuns(c *gin.Context) {
	var q RunsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultRunsLimit
	}

	runs, err := h.service.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToResponse(run))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.service.CheckReadiness(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindQuery binds and validates query parameters, writing a 400 response on
// failure.
func (h *Handler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.logger.Warn("failed to bind query", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.logger.Warn("query validation failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
