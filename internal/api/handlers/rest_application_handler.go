package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/models"
	"renthub/internal/services"
)

// RestApplicationHandler handles REST requests for rental applications.
type RestApplicationHandler struct {
	applicationService services.IApplicationService
}

// NewRestApplicationHandler creates a new RestApplicationHandler.
func NewRestApplicationHandler(applicationService services.IApplicationService) *RestApplicationHandler {
	return &RestApplicationHandler{applicationService: applicationService}
}

type submitApplicationRequest struct {
	PropertyID    string            `json:"property_id" binding:"required"`
	MoveInDate    string            `json:"move_in_date" binding:"required"`
	LeaseDuration int               `json:"lease_duration" binding:"required"`
	Message       string            `json:"message"`
	TenantInfo    models.TenantInfo `json:"tenant_info"`
}

// Submit handles POST /api/applications
func (h *RestApplicationHandler) Submit(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "property_id, move_in_date and lease_duration are required")
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		badRequest(c, "invalid property_id format")
		return
	}
	moveIn, err := parseDate(req.MoveInDate)
	if err != nil {
		badRequest(c, "move_in_date: %v", err)
		return
	}

	app, err := h.applicationService.Submit(c.Request.Context(), principal(c), services.SubmitApplicationInput{
		PropertyID:    propertyID,
		MoveInDate:    moveIn,
		LeaseDuration: req.LeaseDuration,
		Message:       req.Message,
		TenantInfo:    req.TenantInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *RestApplicationHandler) act(c *gin.Context, action func(id primitive.ObjectID) (*models.RentalApplication, error)) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	app, err := action(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Approve handles PUT /api/applications/:id/approve
func (h *RestApplicationHandler) Approve(c *gin.Context) {
	h.act(c, func(id primitive.ObjectID) (*models.RentalApplication, error) {
		return h.applicationService.Approve(c.Request.Context(), principal(c), id)
	})
}

// Reject handles PUT /api/applications/:id/reject
func (h *RestApplicationHandler) Reject(c *gin.Context) {
	h.act(c, func(id primitive.ObjectID) (*models.RentalApplication, error) {
		return h.applicationService.Reject(c.Request.Context(), principal(c), id)
	})
}

// Cancel handles PUT /api/applications/:id/cancel
func (h *RestApplicationHandler) Cancel(c *gin.Context) {
	h.act(c, func(id primitive.ObjectID) (*models.RentalApplication, error) {
		return h.applicationService.Cancel(c.Request.Context(), principal(c), id)
	})
}

// GetByID handles GET /api/applications/:id
func (h *RestApplicationHandler) GetByID(c *gin.Context) {
	h.act(c, func(id primitive.ObjectID) (*models.RentalApplication, error) {
		return h.applicationService.FindByID(c.Request.Context(), principal(c), id)
	})
}

func respondList[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

// ListMine handles GET /api/applications/mine
func (h *RestApplicationHandler) ListMine(c *gin.Context) {
	apps, err := h.applicationService.ListForTenant(c.Request.Context(), principal(c))
	respondList(c, apps, err)
}

// ListReceived handles GET /api/applications/received
func (h *RestApplicationHandler) ListReceived(c *gin.Context) {
	apps, err := h.applicationService.ListForLandlord(c.Request.Context(), principal(c))
	respondList(c, apps, err)
}

// ListAll handles GET /api/applications
func (h *RestApplicationHandler) ListAll(c *gin.Context) {
	apps, err := h.applicationService.ListAll(c.Request.Context(), principal(c), models.ApplicationStatus(c.Query("status")))
	respondList(c, apps, err)
}
