package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/internal/service"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

type roomFinder interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	FindAvailable(ctx context.Context, req service.FindRoomsRequest) ([]models.Room, error)
	FindBestRoom(ctx context.Context, req service.BestRoomRequest) ([]scheduling.ScoredRoom, error)
	AssignRooms(ctx context.Context, req service.AssignRoomsRequest) (*service.AssignRoomsResult, error)
}

// RoomHandler exposes room lookups and searches.
type RoomHandler struct {
	service roomFinder
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.service.Rooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(rooms))
	response.JSON(c, http.StatusOK, rooms, middleware.ExtractMeta(c))
}

// Available godoc
// @Summary Find free rooms
// @Description Rooms free for the interval, honouring the pause between occupations, filtered by capacity and kind.
// @Tags Rooms
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param start_time query string true "Start (HH:MM)"
// @Param end_time query string true "End (HH:MM)"
// @Param min_capacity query int false "Minimum capacity"
// @Param kind query string false "classroom, amphitheater or laboratory"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/available [get]
func (h *RoomHandler) Available(c *gin.Context) {
	var req service.FindRoomsRequest
	if !bindQuery(c, &req, "invalid room search") {
		return
	}
	rooms, err := h.service.FindAvailable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(rooms))
	response.JSON(c, http.StatusOK, rooms, middleware.ExtractMeta(c))
}

// Best godoc
// @Summary Rank free rooms
// @Description Scores free rooms on capacity fit, kind and equipment, best first.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.BestRoomRequest true "Search payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/best [post]
func (h *RoomHandler) Best(c *gin.Context) {
	var req service.BestRoomRequest
	if !bindJSON(c, &req, "invalid room search") {
		return
	}
	ranked, err := h.service.FindBestRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranked)
}

// Assign godoc
// @Summary Give each group its own free room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.AssignRoomsRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/assign [post]
func (h *RoomHandler) Assign(c *gin.Context) {
	var req service.AssignRoomsRequest
	if !bindJSON(c, &req, "invalid room assignment request") {
		return
	}
	result, err := h.service.AssignRooms(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
