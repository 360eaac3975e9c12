package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ipscope/internal/domain"
)

// ScanResponse is returned by a completed scan request
type ScanResponse struct {
	Detail        string            `json:"detail"`
	RangesScanned []string          `json:"ranges_scanned"`
	RunID         string            `json:"run_id"`
	Failed        map[string]string `json:"failed,omitempty"`
}

// TriggerScan runs a scan over the CIDRs in the body, or the active ranges
// when the body is empty or an empty array
func (h *Handler) TriggerScan(c *gin.Context) {
	if !h.scanEnabled {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Scanning is disabled in passive mode"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.badRequest(c, "Failed to read request body", err)
		return
	}

	var cidrs []string
	if len(body) > 0 {
		if err := json.Unmarshal(body, &cidrs); err != nil {
			h.badRequest(c, "Body must be a JSON array of CIDR strings", err)
			return
		}
	}

	// A range scan runs to completion even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	run, err := h.scans.Run(ctx, cidrs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ScanResponse{
		Detail:        "Scan started",
		RangesScanned: run.Ranges,
		RunID:         run.ID,
		Failed:        run.Failed,
	})
}

// LastScan returns the summary of the most recent run
func (h *Handler) LastScan(c *gin.Context) {
	run := h.scans.LastRun()
	if run == nil {
		h.writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListLive returns the current state of all addresses
func (h *Handler) ListLive(c *gin.Context) {
	states, err := h.live.ListLive(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

// ExportLive renders the live table as ?format=json|yaml|ansible (default json)
func (h *Handler) ExportLive(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	exporter, ok := h.exporters.Get(format)
	if !ok {
		h.badRequest(c, "Unknown export format", fmt.Errorf("supported formats: %s", strings.Join(h.exporters.Formats(), ", ")))
		return
	}

	states, err := h.live.ListLive(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(states, &buf); err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, exporter.ContentType(), buf.Bytes())
}

// GetLive returns the current state of one address
func (h *Handler) GetLive(c *gin.Context) {
	state, err := h.live.GetLive(c.Request.Context(), c.Param("ip"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// RangeMap returns every host address of the active range ?range= with its owner
func (h *Handler) RangeMap(c *gin.Context) {
	cidr := c.Query("range")
	if cidr == "" {
		h.badRequest(c, "Missing range parameter", nil)
		return
	}

	slots, err := h.live.RangeMap(c.Request.Context(), cidr)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// ListHistory returns history records, filtered by ?ip= and paged by ?limit=&offset=
func (h *Handler) ListHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.badRequest(c, "Invalid limit", err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.badRequest(c, "Invalid offset", err)
		return
	}

	records, err := h.live.ListHistory(c.Request.Context(), domain.HistoryFilter{
		Address: c.Query("ip"),
		RunID:   c.Query("run_id"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetHistory returns a single history record
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.badRequest(c, "Invalid history ID", nil)
		return
	}

	rec, err := h.live.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
