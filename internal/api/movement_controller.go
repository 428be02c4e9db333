package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wastebill/server/internal/models"
	"wastebill/server/internal/services"
)

// MovementController exposes the inward/outward movement endpoints.
type MovementController struct {
	movements   *services.MovementService
	allocations *services.AllocationService
}

func NewMovementController(movements *services.MovementService, allocations *services.AllocationService) *MovementController {
	return &MovementController{
		movements:   movements,
		allocations: allocations,
	}
}

// CreateMovement registers a consignment; serials and lot numbers are
// allocated server-side.
// POST /api/v1/movements
func (mc *MovementController) CreateMovement(c *gin.Context) {
	var req services.MovementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	record, err := mc.movements.CreateMovement(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create movement record")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetMovement returns one movement record.
// GET /api/v1/movements/:id
func (mc *MovementController) GetMovement(c *gin.Context) {
	record, err := mc.movements.GetMovement(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load movement record")
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListMovements returns records filtered by query parameters.
// unbilled=true narrows to the pool available for consolidation.
// GET /api/v1/movements
func (mc *MovementController) ListMovements(c *gin.Context) {
	filter := services.MovementFilter{
		Direction:     models.MovementDirection(c.Query("direction")),
		CompanyID:     c.Query("companyId"),
		TransporterID: c.Query("transporterId"),
		Unbilled:      c.Query("unbilled") == "true",
	}
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.From = from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.To = to
	}

	records, err := mc.movements.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list movement records")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// GetAllocation returns the record's projected share of its invoice.
// GET /api/v1/movements/:id/allocation
func (mc *MovementController) GetAllocation(c *gin.Context) {
	allocation, err := mc.allocations.AllocationForRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to project allocation")
		return
	}
	c.JSON(http.StatusOK, allocation)
}

// DeleteMovement removes an unbilled record.
// DELETE /api/v1/movements/:id
func (mc *MovementController) DeleteMovement(c *gin.Context) {
	if err := mc.movements.DeleteMovement(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete movement record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Movement record deleted"})
}
