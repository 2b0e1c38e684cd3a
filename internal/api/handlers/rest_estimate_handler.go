package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/services"
)

// RestEstimateHandler handles REST requests for stay pricing.
type RestEstimateHandler struct {
	estimateService services.IEstimateService
}

// NewRestEstimateHandler creates a new RestEstimateHandler.
func NewRestEstimateHandler(estimateService services.IEstimateService) *RestEstimateHandler {
	return &RestEstimateHandler{estimateService: estimateService}
}

type stayRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Currency   string `json:"currency"`
}

func (h *RestEstimateHandler) bindStay(c *gin.Context) (*stayRequest, primitive.ObjectID, bool) {
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "property_id, check_in and check_out are required")
		return nil, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		badRequest(c, "invalid property_id format")
		return nil, primitive.NilObjectID, false
	}
	return &req, id, true
}

// Calculate handles POST /api/rental/calculate
func (h *RestEstimateHandler) Calculate(c *gin.Context) {
	req, id, ok := h.bindStay(c)
	if !ok {
		return
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		badRequest(c, "check_in: %v", err)
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		badRequest(c, "check_out: %v", err)
		return
	}

	breakdown, err := h.estimateService.Estimate(c.Request.Context(), id, checkIn, checkOut, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// GetPricing handles GET /api/rental/properties/:id/pricing
func (h *RestEstimateHandler) GetPricing(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	pricing, err := h.estimateService.Pricing(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing)
}

// ValidateDates handles POST /api/rental/validate-dates
func (h *RestEstimateHandler) ValidateDates(c *gin.Context) {
	req, id, ok := h.bindStay(c)
	if !ok {
		return
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		badRequest(c, "check_in: %v", err)
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		badRequest(c, "check_out: %v", err)
		return
	}

	res, err := h.estimateService.ValidateDates(c.Request.Context(), id, checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
