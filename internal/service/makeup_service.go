package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/repository"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/pkg/database"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

type makeupRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, makeup *models.MakeupSession) error
	FindByID(ctx context.Context, id string) (*models.MakeupSession, error)
	List(ctx context.Context, filter models.MakeupFilter) ([]models.MakeupSession, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.MakeupStatus) error
}

// MakeupService books and cancels make-up sessions.
type MakeupService struct {
	repo      makeupRepository
	planner   *Planner
	rooms     roomLookup
	notifier  eventDispatcher
	db        database.TxBeginner
	locker    lock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMakeupService constructs a MakeupService.
func NewMakeupService(repo makeupRepository, planner *Planner, rooms roomLookup, notifier eventDispatcher, db database.TxBeginner, locker lock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MakeupService {
	if validate == nil {
		validate = validator.New()
	}
	return &MakeupService{
		repo:      repo,
		planner:   planner,
		rooms:     rooms,
		notifier:  notifier,
		db:        db,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    nilLogger(logger),
	}
}

// Book checks the room, teacher and group against every committed
// occupation and stores the make-up session as confirmed. A storage
// uniqueness hit is reported as the room being taken.
func (s *MakeupService) Book(ctx context.Context, req models.BookMakeupRequest) (*models.MakeupSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid make-up payload")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return nil, err
	}
	candidate := scheduling.Candidate{
		Date:      date,
		Start:     req.StartTime,
		End:       req.EndTime,
		RoomID:    req.RoomID,
		TeacherID: req.TeacherID,
		GroupID:   req.GroupID,
	}
	room, err := s.rooms.Room(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	group, err := s.planner.Group(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	release, err := acquire(ctx, s.locker, s.metrics, resourceKeys(req.RoomID, req.TeacherID, req.GroupID)...)
	if err != nil {
		return nil, err
	}
	defer release()

	makeup := &models.MakeupSession{
		TeacherID:         req.TeacherID,
		GroupID:           req.GroupID,
		RoomID:            req.RoomID,
		Date:              date,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Reason:            req.Reason,
		Status:            models.MakeupConfirmed,
		OriginalSessionID: optional(req.OriginalSessionID),
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		engine, err := s.planner.Validator(ctx, tx, date, date)
		if err != nil {
			return err
		}
		if res := engine.ValidateMakeup(candidate, room, group); !res.OK {
			return rejection(res, s.metrics, "make-up session rejected")
		}
		if err := s.repo.Create(ctx, tx, makeup); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return appErrors.WithDetails(appErrors.ErrValidation, "make-up session rejected", []string{"room already booked for this slot"})
			}
			return internal(err, "failed to book make-up session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := s.notifier.Dispatch(ctx, []models.NotificationEvent{{
		Category: models.CategoryMakeupConfirmed,
		Audience: models.AudienceGroup,
		TargetID: makeup.GroupID,
		Title:    "Make-up session scheduled",
		Body:     fmt.Sprintf("A make-up session takes place on %s from %s to %s in room %s.", models.DateKey(date), makeup.StartTime, makeup.EndTime, roomName(room, makeup.RoomID)),
	}})
	s.logger.Info("make-up session booked",
		zap.String("makeup_id", makeup.ID),
		zap.String("room_id", makeup.RoomID),
		zap.Int("notified", report.Sent),
	)
	return makeup, nil
}

// Cancel releases a confirmed make-up session.
func (s *MakeupService) Cancel(ctx context.Context, id string) (*models.MakeupSession, error) {
	makeup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "make-up session not found", "failed to load make-up session")
	}
	if err := s.repo.UpdateStatus(ctx, nil, id, models.MakeupConfirmed, models.MakeupCancelled); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only confirmed make-up sessions can be cancelled")
		}
		return nil, internal(err, "failed to cancel make-up session")
	}
	makeup.Status = models.MakeupCancelled
	s.logger.Info("make-up session cancelled", zap.String("makeup_id", id))
	return makeup, nil
}

// Get returns one make-up session.
func (s *MakeupService) Get(ctx context.Context, id string) (*models.MakeupSession, error) {
	makeup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "make-up session not found", "failed to load make-up session")
	}
	return makeup, nil
}

// List returns make-up sessions by teacher and status.
func (s *MakeupService) List(ctx context.Context, filter models.MakeupFilter) ([]models.MakeupSession, error) {
	makeups, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list make-up sessions")
	}
	return makeups, nil
}

func roomName(room *models.Room, fallback string) string {
	if room == nil || room.Name == "" {
		return fallback
	}
	return room.Name
}
