package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/service"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

const defaultInboxLimit = 50

type inbox interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationHandler exposes the caller's inbox.
type NotificationHandler struct {
	service inbox
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), callerID(c), c.Query("unread") == "true", queryInt(c, "limit", defaultInboxLimit))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(items))
	response.JSON(c, http.StatusOK, items, middleware.ExtractMeta(c))
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
