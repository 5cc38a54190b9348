package api

import (
	"net/http"

	"booking-service/internal/models"
	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

type slotQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type slotStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// createSlot handles slot creation
func (h *Handler) createSlot(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	slot, err := h.slotService.CreateSlot(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// getSlot handles get slot by ID. include_deleted=true also returns
// soft-deleted slots, for audit.
func (h *Handler) getSlot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var slot *models.AvailabilitySlot
	var err error
	if c.Query("include_deleted") == "true" {
		slot, err = h.slotService.GetForAudit(c.Request.Context(), id)
	} else {
		slot, err = h.slotService.Get(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// getSlotAvailability reports remaining capacity and bookability
func (h *Handler) getSlotAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	remaining, bookable, err := h.slotService.Availability(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slot_id":   id,
		"remaining": remaining,
		"bookable":  bookable,
	})
}

// bookSlot consumes capacity on a slot
func (h *Handler) bookSlot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	req := slotQuantityRequest{Quantity: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	slot, err := h.slotService.Book(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// unbookSlot releases previously consumed capacity
func (h *Handler) unbookSlot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	req := slotQuantityRequest{Quantity: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	slot, err := h.slotService.Unbook(c.Request.Context(), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// setSlotStatus moves a slot between available, blocked and cancelled
func (h *Handler) setSlotStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req slotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !models.ValidSlotStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown slot status",
			"code":  "validation_failed",
		})
		return
	}

	slot, err := h.slotService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// deleteSlot soft-deletes a slot
func (h *Handler) deleteSlot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.slotService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
