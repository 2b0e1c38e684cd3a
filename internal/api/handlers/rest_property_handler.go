package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"renthub/internal/services"
)

// RestPropertyHandler handles the property endpoints used when a stay is closed out.
type RestPropertyHandler struct {
	availabilityService services.IAvailabilityService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(availabilityService services.IAvailabilityService) *RestPropertyHandler {
	return &RestPropertyHandler{availabilityService: availabilityService}
}

// ReviewEligibility handles GET /api/properties/:id/review-eligibility
func (h *RestPropertyHandler) ReviewEligibility(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	eligible, err := h.availabilityService.ReviewEligibility(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_id": id, "eligible": eligible})
}

// MarkAvailable handles PUT /api/properties/:id/available
func (h *RestPropertyHandler) MarkAvailable(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	property, err := h.availabilityService.MarkAvailableAfterReview(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}
