package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ipscope/internal/domain"
	"ipscope/internal/service"
)

// AssignmentRequest is the body of PUT /api/assignments/:ip
type AssignmentRequest struct {
	OwnerType domain.OwnerType `json:"owner_type" binding:"required"`
	OwnerName string           `json:"owner_name" binding:"required"`
}

// ListAssignments returns all ownership assignments
func (h *Handler) ListAssignments(c *gin.Context) {
	list, err := h.assignments.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PutAssignment assigns an owner to an address
func (h *Handler) PutAssignment(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	a := domain.OwnershipAssignment{
		Address:   c.Param("ip"),
		OwnerType: req.OwnerType,
		OwnerName: req.OwnerName,
	}
	if err := h.assignments.Assign(c.Request.Context(), a); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(service.EventAssignmentSet, a)
	c.JSON(http.StatusOK, a)
}

// DeleteAssignment removes the assignment of an address
func (h *Handler) DeleteAssignment(c *gin.Context) {
	addr := c.Param("ip")
	if err := h.assignments.Unassign(c.Request.Context(), addr); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(service.EventAssignmentDel, gin.H{"ip_address": addr})
	c.Status(http.StatusNoContent)
}
