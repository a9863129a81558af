package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/internal/service"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

type sessionManager interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Validate(ctx context.Context, req models.CreateSessionRequest) (scheduling.Result, error)
	Create(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Availability(ctx context.Context, req service.AvailabilityRequest) (*service.AvailabilityView, error)
}

// SessionHandler exposes the timetable.
type SessionHandler struct {
	service sessionManager
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List sessions
// @Description Students only see their group's sessions. Teachers see their own unless a group or room is requested.
// @Tags Sessions
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param group_id query string false "Group ID"
// @Param room_id query string false "Room ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	from, err := optionalDate(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := optionalDate(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SessionFilter{
		TeacherID: c.Query("teacher_id"),
		GroupID:   c.Query("group_id"),
		RoomID:    c.Query("room_id"),
		From:      from,
		To:        to,
	}

	claims := claimsFromContext(c)
	switch {
	case claims == nil:
		response.Error(c, appErrors.ErrUnauthorized)
		return
	case claims.Role == models.RoleStudent:
		if claims.GroupID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a group"))
			return
		}
		filter.GroupID = claims.GroupID
		filter.TeacherID = ""
	case claims.Role == models.RoleTeacher && filter.GroupID == "" && filter.RoomID == "":
		filter.TeacherID = claims.TeacherID
	}

	sessions, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(sessions))
	response.JSON(c, http.StatusOK, sessions, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && claims.GroupID != session.GroupID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Validate godoc
// @Summary Dry-run session validation
// @Description Runs every check without persisting. The result lists the failed checks in order.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/validate [post]
func (h *SessionHandler) Validate(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Create godoc
// @Summary Create a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, session.ID)
	response.Created(c, session)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Resource day view
// @Description Occupations of a room, teacher or group on a day and the free gaps between them.
// @Tags Sessions
// @Produce json
// @Param resource query string true "room, teacher or group"
// @Param id query string true "Resource ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /availability [get]
func (h *SessionHandler) Availability(c *gin.Context) {
	var req service.AvailabilityRequest
	if !bindQuery(c, &req, "invalid availability query") {
		return
	}
	view, err := h.service.Availability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}
