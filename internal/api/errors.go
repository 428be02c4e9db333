package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wastebill/server/internal/services"
)

// respondError maps service errors onto HTTP statuses: validation to
// 400, missing entities to 404, linkage and number conflicts to 409,
// everything else to 500.
func respondError(c *gin.Context, err error, fallback string) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": validation.Error(),
			"field":   validation.Field,
		})
		return
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": notFound.Error(),
		})
		return
	}

	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		payload := gin.H{
			"error":   "Conflict",
			"details": conflict.Error(),
		}
		if conflict.ManifestNo != "" {
			payload["manifestNo"] = conflict.ManifestNo
		}
		if conflict.InvoiceNo != "" {
			payload["invoiceNo"] = conflict.InvoiceNo
		}
		c.JSON(http.StatusConflict, payload)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   fallback,
		"details": err.Error(),
	})
}
