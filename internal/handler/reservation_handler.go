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

type reservationManager interface {
	Request(ctx context.Context, req models.CreateReservationRequest) (*models.Reservation, error)
	Approve(ctx context.Context, id, reviewerID string) (*models.Reservation, error)
	Reject(ctx context.Context, id, reviewerID string, req models.RejectReservationRequest) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
}

// ReservationHandler exposes room requests and their review.
type ReservationHandler struct {
	service reservationManager
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Request godoc
// @Summary Request a room
// @Description Stores a pending request. Requests need two hours of notice.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body models.CreateReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reservations [post]
func (h *ReservationHandler) Request(c *gin.Context) {
	var req models.CreateReservationRequest
	if !bindJSON(c, &req, "invalid reservation payload") {
		return
	}
	teacherID, err := ownTeacher(c, req.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.TeacherID = teacherID

	reservation, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, reservation.ID)
	response.Created(c, reservation)
}

// List godoc
// @Summary List reservations
// @Tags Reservations
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	teacherID, err := ownTeacher(c, c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	reservations, err := h.service.List(c.Request.Context(), models.ReservationFilter{
		TeacherID: teacherID,
		Status:    models.ReservationStatus(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(reservations))
	response.JSON(c, http.StatusOK, reservations, middleware.ExtractMeta(c))
}

// Approve godoc
// @Summary Approve a reservation
// @Description Re-checks conflicts under resource locks before approving.
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /reservations/{id}/approve [post]
func (h *ReservationHandler) Approve(c *gin.Context) {
	reservation, err := h.service.Approve(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation)
}

// Reject godoc
// @Summary Reject a reservation
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param payload body models.RejectReservationRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reservations/{id}/reject [post]
func (h *ReservationHandler) Reject(c *gin.Context) {
	var req models.RejectReservationRequest
	// An empty body is left to the service, which reports the missing reason.
	_ = c.ShouldBindJSON(&req)
	reservation, err := h.service.Reject(c.Request.Context(), c.Param("id"), callerID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation)
}
