package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifa-backend/internal/middleware"
	"github.com/ArowuTest/rifa-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// My handles GET /api/notifications/my
func (h *NotificationHandler) My(c *gin.Context) {
	list, err := h.notifications.ListForUser(c.Request.Context(), middleware.GetActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
