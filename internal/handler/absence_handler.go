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

type absenceManager interface {
	Declare(ctx context.Context, req models.DeclareAbsenceRequest) (*models.AbsenceResult, error)
	ListBlocks(ctx context.Context, teacherID string) ([]models.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id string) error
}

// AbsenceHandler exposes absence declarations and availability blocks.
type AbsenceHandler struct {
	service absenceManager
}

// NewAbsenceHandler constructs the handler.
func NewAbsenceHandler(svc *service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{service: svc}
}

// Declare godoc
// @Summary Declare a teacher absence
// @Description Cancels the teacher's sessions in the period, blocks the teacher and notifies affected groups and administrators.
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body models.DeclareAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /absences [post]
func (h *AbsenceHandler) Declare(c *gin.Context) {
	var req models.DeclareAbsenceRequest
	if !bindJSON(c, &req, "invalid absence payload") {
		return
	}
	teacherID, err := ownTeacher(c, req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.TeacherID = teacherID

	result, err := h.service.Declare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, result.Block.ID)
	middleware.AddAuditDetail(c, "cancelled_sessions", len(result.CancelledSessions))
	response.Created(c, result)
}

// List godoc
// @Summary List availability blocks
// @Tags Absences
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	teacherID, err := ownTeacher(c, c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	blocks, err := h.service.ListBlocks(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(blocks))
	response.JSON(c, http.StatusOK, blocks, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Lift an availability block
// @Description Cancelled sessions are not restored.
// @Tags Absences
// @Param id path string true "Block ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /absences/{id} [delete]
func (h *AbsenceHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteBlock(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
