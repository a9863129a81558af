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

type makeupManager interface {
	Book(ctx context.Context, req models.BookMakeupRequest) (*models.MakeupSession, error)
	Cancel(ctx context.Context, id string) (*models.MakeupSession, error)
	Get(ctx context.Context, id string) (*models.MakeupSession, error)
	List(ctx context.Context, filter models.MakeupFilter) ([]models.MakeupSession, error)
}

// MakeupHandler exposes make-up session bookings.
type MakeupHandler struct {
	service makeupManager
}

// NewMakeupHandler constructs the handler.
func NewMakeupHandler(svc *service.MakeupService) *MakeupHandler {
	return &MakeupHandler{service: svc}
}

// Book godoc
// @Summary Book a make-up session
// @Tags Make-ups
// @Accept json
// @Produce json
// @Param payload body models.BookMakeupRequest true "Make-up payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /makeups [post]
func (h *MakeupHandler) Book(c *gin.Context) {
	var req models.BookMakeupRequest
	if !bindJSON(c, &req, "invalid make-up payload") {
		return
	}
	teacherID, err := ownTeacher(c, req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.TeacherID = teacherID

	makeup, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, makeup.ID)
	response.Created(c, makeup)
}

// List godoc
// @Summary List make-up sessions
// @Tags Make-ups
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param status query string false "confirmed or cancelled"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /makeups [get]
func (h *MakeupHandler) List(c *gin.Context) {
	teacherID, err := ownTeacher(c, c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	makeups, err := h.service.List(c.Request.Context(), models.MakeupFilter{
		TeacherID: teacherID,
		Status:    models.MakeupStatus(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(makeups))
	response.JSON(c, http.StatusOK, makeups, middleware.ExtractMeta(c))
}

// Cancel godoc
// @Summary Cancel a make-up session
// @Tags Make-ups
// @Produce json
// @Param id path string true "Make-up ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /makeups/{id}/cancel [post]
func (h *MakeupHandler) Cancel(c *gin.Context) {
	existing, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := ownTeacher(c, existing.TeacherID); err != nil {
		response.Error(c, err)
		return
	}
	makeup, err := h.service.Cancel(c.Request.Context(), existing.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, makeup)
}
