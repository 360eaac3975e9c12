package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ipscope/internal/service"
)

// CreateRangeRequest is the body of POST /api/ranges
type CreateRangeRequest struct {
	CIDR   string `json:"cidr" binding:"required"`
	Active *bool  `json:"active,omitempty"`
}

// ListRanges returns all configured ranges
func (h *Handler) ListRanges(c *gin.Context) {
	ranges, err := h.ranges.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranges)
}

// CreateRange adds a range; new ranges are active unless stated otherwise
func (h *Handler) CreateRange(c *gin.Context) {
	var req CreateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rng, err := h.ranges.Create(c.Request.Context(), req.CIDR, active)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rng)
}

// UpdateRange changes the CIDR and/or active flag of a range
func (h *Handler) UpdateRange(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.badRequest(c, "Invalid range ID", nil)
		return
	}

	var upd service.RangeUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if upd.CIDR == nil && upd.Active == nil {
		h.badRequest(c, "Nothing to update", nil)
		return
	}

	rng, err := h.ranges.Update(c.Request.Context(), id, upd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rng)
}

// DeleteRange removes a range
func (h *Handler) DeleteRange(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.badRequest(c, "Invalid range ID", nil)
		return
	}

	if err := h.ranges.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
