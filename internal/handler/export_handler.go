package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/service"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

type timetableExporter interface {
	Timetable(ctx context.Context, req service.TimetableExportRequest) (*service.ExportFile, error)
}

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Export a timetable
// @Description CSV or PDF rendering of a group's or teacher's occupations. Students always receive their own group.
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param group_id query string false "Group ID"
// @Param teacher_id query string false "Teacher ID"
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/export [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	var req service.TimetableExportRequest
	if !bindQuery(c, &req, "invalid export query") {
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	switch claims.Role {
	case models.RoleStudent:
		if claims.GroupID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a group"))
			return
		}
		req.GroupID, req.TeacherID = claims.GroupID, ""
	case models.RoleTeacher:
		if req.TeacherID != "" && req.TeacherID != claims.TeacherID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "teachers can only export their own timetable"))
			return
		}
		if req.GroupID == "" {
			req.TeacherID = claims.TeacherID
		}
	}

	file, err := h.service.Timetable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
