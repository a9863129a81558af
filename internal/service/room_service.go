package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

const roomsCacheKey = "rooms:all"

type roomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
}

// FindRoomsRequest is the query of the free-room search.
type FindRoomsRequest struct {
	Date        string          `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string          `form:"start_time" json:"start_time" validate:"required"`
	EndTime     string          `form:"end_time" json:"end_time" validate:"required"`
	MinCapacity int             `form:"min_capacity" json:"min_capacity" validate:"omitempty,min=0"`
	Kind        models.RoomKind `form:"kind" json:"kind" validate:"omitempty,oneof=classroom amphitheater laboratory"`
}

// BestRoomRequest asks for the most suitable free room.
type BestRoomRequest struct {
	FindRoomsRequest
	GroupSize int      `json:"group_size" validate:"omitempty,min=0"`
	Equipment []string `json:"equipment"`
}

// AssignRoomsRequest asks for one free room per group for the same slot.
type AssignRoomsRequest struct {
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string          `json:"start_time" validate:"required"`
	EndTime   string          `json:"end_time" validate:"required"`
	Kind      models.RoomKind `json:"kind" validate:"omitempty,oneof=classroom amphitheater laboratory"`
	GroupIDs  []string        `json:"group_ids" validate:"required,min=1,dive,required"`
}

// AssignRoomsResult lists the matched rooms and the groups left over.
type AssignRoomsResult struct {
	Assignments []scheduling.RoomAssignment `json:"assignments"`
	Unmatched   []string                    `json:"unmatched"`
}

// RoomService answers room lookups and free-room searches.
type RoomService struct {
	repo      roomRepository
	planner   *Planner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewRoomService constructs a RoomService. cache may be nil.
func NewRoomService(repo roomRepository, planner *Planner, cache *CacheService, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	return &RoomService{repo: repo, planner: planner, cache: cache, validator: validate, logger: nilLogger(logger), ttl: ttl}
}

// Rooms lists every room, served from the cache when enabled.
func (s *RoomService) Rooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := Remember(ctx, s.cache, roomsCacheKey, s.ttl, s.repo.List)
	if err != nil {
		return nil, internal(err, "failed to load rooms")
	}
	return rooms, nil
}

// Room resolves a room id, returning nil when it does not exist.
func (s *RoomService) Room(ctx context.Context, id string) (*models.Room, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	room, ok := lo.Find(rooms, func(room models.Room) bool { return room.ID == id })
	if !ok {
		return nil, nil
	}
	return &room, nil
}

// FindAvailable returns the rooms free for the slot that satisfy the
// capacity and kind filter.
func (s *RoomService) FindAvailable(ctx context.Context, req FindRoomsRequest) ([]models.Room, error) {
	query, err := s.query(req)
	if err != nil {
		return nil, err
	}
	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := s.planner.Validator(ctx, nil, query.Date, query.Date)
	if err != nil {
		return nil, err
	}
	return scheduling.FindFree(engine.Detector(), rooms, query), nil
}

// FindBestRoom scores the free rooms and returns the ranking, best first.
func (s *RoomService) FindBestRoom(ctx context.Context, req BestRoomRequest) ([]scheduling.ScoredRoom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid room search")
	}
	if req.MinCapacity < req.GroupSize {
		req.MinCapacity = req.GroupSize
	}
	free, err := s.FindAvailable(ctx, req.FindRoomsRequest)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no free room matches the request")
	}
	return scheduling.RankRooms(free, scheduling.ScoreRequest{
		GroupSize: req.GroupSize,
		Kind:      req.Kind,
		Equipment: req.Equipment,
	}), nil
}

// AssignRooms gives every requested group its own free room for the slot.
func (s *RoomService) AssignRooms(ctx context.Context, req AssignRoomsRequest) (*AssignRoomsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid room assignment request")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return nil, err
	}
	if !scheduling.IsValidRange(req.StartTime, req.EndTime) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid time range", []string{"invalid time range " + req.StartTime + "-" + req.EndTime})
	}

	groups := make([]models.Group, 0, len(req.GroupIDs))
	missing := make([]string, 0)
	for _, id := range lo.Uniq(req.GroupIDs) {
		group, err := s.planner.Group(ctx, id)
		if err != nil {
			return nil, err
		}
		if group == nil {
			missing = append(missing, "group "+id+" not found")
			continue
		}
		groups = append(groups, *group)
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown groups", missing)
	}

	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := s.planner.Validator(ctx, nil, date, date)
	if err != nil {
		return nil, err
	}
	assignments, unmatched, err := scheduling.MatchRooms(engine.Detector(), groups, rooms, scheduling.RoomQuery{
		Date:  date,
		Start: req.StartTime,
		End:   req.EndTime,
		Kind:  req.Kind,
	})
	if err != nil {
		if errors.Is(err, scheduling.ErrNoRoomMatching) {
			return nil, appErrors.Clone(appErrors.ErrSchedulingConflict, err.Error())
		}
		return nil, internal(err, "failed to match rooms")
	}
	return &AssignRoomsResult{Assignments: assignments, Unmatched: unmatched}, nil
}

// InvalidateRooms drops the cached room list.
func (s *RoomService) InvalidateRooms(ctx context.Context) error {
	return s.cache.Forget(ctx, roomsCacheKey)
}

func (s *RoomService) query(req FindRoomsRequest) (scheduling.RoomQuery, error) {
	if err := s.validator.Struct(req); err != nil {
		return scheduling.RoomQuery{}, invalidPayload(err, "invalid room search")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return scheduling.RoomQuery{}, err
	}
	if !scheduling.IsValidRange(req.StartTime, req.EndTime) {
		return scheduling.RoomQuery{}, appErrors.WithDetails(appErrors.ErrValidation, "invalid time range", []string{"invalid time range " + req.StartTime + "-" + req.EndTime})
	}
	return scheduling.RoomQuery{
		Date:        date,
		Start:       req.StartTime,
		End:         req.EndTime,
		MinCapacity: req.MinCapacity,
		Kind:        req.Kind,
	}, nil
}
