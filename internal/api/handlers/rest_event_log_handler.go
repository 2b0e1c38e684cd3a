package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"renthub/internal/db"
	"renthub/internal/models"
	"renthub/internal/services"
)

// RestEventLogHandler handles REST requests for the audit trail.
type RestEventLogHandler struct {
	eventLogService services.IEventLogService
}

// NewRestEventLogHandler creates a new RestEventLogHandler.
func NewRestEventLogHandler(eventLogService services.IEventLogService) *RestEventLogHandler {
	return &RestEventLogHandler{eventLogService: eventLogService}
}

// queryInt parses an optional integer query parameter; bad values fall back to zero, which means default.
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// List handles GET /api/event-logs
func (h *RestEventLogHandler) List(c *gin.Context) {
	start, ok := optionalDate(c, "startDate")
	if !ok {
		return
	}
	end, ok := optionalDate(c, "endDate")
	if !ok {
		return
	}
	q := db.EventLogQuery{
		EventType: models.EventType(c.Query("eventType")),
		Status:    models.EventStatus(c.Query("status")),
		UserRole:  models.Role(c.Query("userRole")),
		Start:     start,
		End:       end,
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
	}
	page, err := h.eventLogService.List(c.Request.Context(), principal(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Stats handles GET /api/event-logs/stats
func (h *RestEventLogHandler) Stats(c *gin.Context) {
	start, ok := optionalDate(c, "startDate")
	if !ok {
		return
	}
	end, ok := optionalDate(c, "endDate")
	if !ok {
		return
	}
	stats, err := h.eventLogService.Stats(c.Request.Context(), principal(c), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MyActivity handles GET /api/event-logs/my-activity
func (h *RestEventLogHandler) MyActivity(c *gin.Context) {
	page, err := h.eventLogService.MyActivity(c.Request.Context(), principal(c), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PurgeOld handles DELETE /api/event-logs/old?days=N
func (h *RestEventLogHandler) PurgeOld(c *gin.Context) {
	days := services.DefaultEventRetention
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "days must be a whole number")
			return
		}
		days = v
	}
	deleted, err := h.eventLogService.PurgeOlderThan(c.Request.Context(), principal(c), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "days": days})
}
