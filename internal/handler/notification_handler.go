package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List handles GET /api/notifications with ?unread=true and pagination
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset := pageParams(c)
	unreadOnly := c.Query("unread") == "true"

	list, err := h.service.List(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}

// MarkAsRead handles PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	notificationID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	notification, err := h.service.MarkAsRead(c.Request.Context(), userID, notificationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notification": notification}, "notification marked as read")
}

// MarkAllAsRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "all notifications marked as read")
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"count": count})
}
