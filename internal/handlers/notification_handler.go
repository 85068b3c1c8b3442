package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetNotifications handles GET /api/v1/notifications?includeRead=
func (h *Handler) GetNotifications(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	includeRead, _ := strconv.ParseBool(c.DefaultQuery("includeRead", "false"))

	notifications, err := h.svc.Notifications.ListForUser(c.Request.Context(), userID, includeRead)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// GetUnreadCount handles GET /api/v1/notifications/unread/count
func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	count, err := h.svc.Notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkAsRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/v1/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	changed, err := h.svc.Notifications.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *Handler) DeleteNotification(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Notifications.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
