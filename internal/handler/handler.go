package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ipscope/internal/codec"
	"ipscope/internal/domain"
	"ipscope/internal/logger"
	"ipscope/internal/lookup"
	"ipscope/internal/service"
)

// Handler serves the ipscope HTTP API
type Handler struct {
	scans       *service.ScanService
	live        *service.LiveService
	ranges      *service.RangeService
	assignments *lookup.AssignmentService
	exporters   *codec.Registry
	events      *service.EventBus
	scanEnabled bool
	log         logger.Logger
}

// New creates a handler. Scanning is enabled by default.
func New(scans *service.ScanService, live *service.LiveService, ranges *service.RangeService, assignments *lookup.AssignmentService, log logger.Logger) *Handler {
	return &Handler{
		scans:       scans,
		live:        live,
		ranges:      ranges,
		assignments: assignments,
		exporters:   codec.DefaultRegistry(),
		scanEnabled: true,
		log:         log.WithComponent("http"),
	}
}

// SetScanEnabled turns the scan endpoint on or off (passive mode)
func (h *Handler) SetScanEnabled(enabled bool) {
	h.scanEnabled = enabled
}

// SetEventBus publishes assignment changes to bus
func (h *Handler) SetEventBus(bus *service.EventBus) {
	h.events = bus
}

func (h *Handler) publish(t service.EventType, payload interface{}) {
	if h.events != nil {
		h.events.Publish(service.Event{Type: t, Payload: payload})
	}
}

// RegisterRoutes attaches all API routes to router
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)

	api := router.Group("/api")

	api.POST("/live/scan", h.TriggerScan)
	api.GET("/live", h.ListLive)
	api.GET("/live/export", h.ExportLive)
	api.GET("/live/:ip", h.GetLive)
	api.GET("/scan/last", h.LastScan)
	api.GET("/ip_map", h.RangeMap)

	api.GET("/history", h.ListHistory)
	api.GET("/history/:id", h.GetHistory)

	api.GET("/ranges", h.ListRanges)
	api.POST("/ranges", h.CreateRange)
	api.PUT("/ranges/:id", h.UpdateRange)
	api.DELETE("/ranges/:id", h.DeleteRange)

	api.GET("/assignments", h.ListAssignments)
	api.PUT("/assignments/:ip", h.PutAssignment)
	api.DELETE("/assignments/:ip", h.DeleteAssignment)
}

// ErrorResponse is the JSON body of every error
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health reports liveness and whether a scan is running
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"scan_running": h.scans != nil && h.scans.Running(),
		"scan_enabled": h.scanEnabled,
	})
}

// writeError maps domain errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, domain.ErrNoRangesConfigured):
		status, msg = http.StatusBadRequest, "No CIDR ranges configured for scanning."
	case errors.Is(err, domain.ErrInvalidRangeFormat):
		status, msg = http.StatusBadRequest, "Invalid CIDR range"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, "Already exists"
	case errors.Is(err, domain.ErrScanInProgress):
		status, msg = http.StatusConflict, "A scan is already in progress"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Details: err.Error()})
}

func (h *Handler) badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
