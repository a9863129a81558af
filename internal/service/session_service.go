package service

import (
	"context"
	"errors"
	"time"

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

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// AvailabilityRequest selects a resource timeline for one day.
type AvailabilityRequest struct {
	Resource scheduling.Resource `form:"resource" validate:"required,oneof=room teacher group"`
	ID       string              `form:"id" validate:"required"`
	Date     string              `form:"date" validate:"required,datetime=2006-01-02"`
}

// AvailabilityView is a resource's day: what occupies it and where it is free.
type AvailabilityView struct {
	Resource     scheduling.Resource   `json:"resource"`
	ID           string                `json:"id"`
	Date         string                `json:"date"`
	OpeningHours scheduling.Interval   `json:"opening_hours"`
	Occupations  []models.Occupation   `json:"occupations"`
	FreeGaps     []scheduling.Interval `json:"free_gaps"`
}

// SessionService validates and commits manually planned sessions.
type SessionService struct {
	repo      sessionRepository
	planner   *Planner
	rooms     roomLookup
	db        database.TxBeginner
	locker    lock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, planner *Planner, rooms roomLookup, db database.TxBeginner, locker lock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{
		repo:      repo,
		planner:   planner,
		rooms:     rooms,
		db:        db,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    nilLogger(logger),
	}
}

// List returns sessions matching the filter.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	sessions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	return session, nil
}

// Validate runs every placement rule against the committed state without
// persisting anything.
func (s *SessionService) Validate(ctx context.Context, req models.CreateSessionRequest) (scheduling.Result, error) {
	candidate, err := s.candidate(req)
	if err != nil {
		return scheduling.Result{}, err
	}
	return s.check(ctx, nil, candidate)
}

// Create validates and persists a manual session under resource locks.
func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	candidate, err := s.candidate(req)
	if err != nil {
		return nil, err
	}
	// A new row never replaces a committed one.
	candidate.ExcludeID = ""
	release, err := acquire(ctx, s.locker, s.metrics, resourceKeys(req.RoomID, req.TeacherID, req.GroupID)...)
	if err != nil {
		return nil, err
	}
	defer release()

	kind := req.Kind
	if kind == "" {
		kind = models.SessionKindLecture
	}
	session := &models.Session{
		Title:     req.Title,
		Kind:      kind,
		Date:      candidate.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		RoomID:    req.RoomID,
		TeacherID: req.TeacherID,
		GroupID:   req.GroupID,
		Origin:    models.SessionOriginManual,
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := s.check(ctx, tx, candidate)
		if err != nil {
			return err
		}
		if !res.OK {
			return rejection(res, s.metrics, "session rejected")
		}
		if err := s.repo.Create(ctx, tx, session); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return appErrors.WithDetails(appErrors.ErrValidation, "session rejected", []string{"slot already taken for this room, teacher or group"})
			}
			return internal(err, "failed to create session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("room_id", session.RoomID),
		zap.String("teacher_id", session.TeacherID),
		zap.String("date", models.DateKey(session.Date)),
	)
	return session, nil
}

// Delete cancels a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, nil, id); err != nil {
		return notFoundOr(err, "session not found", "failed to delete session")
	}
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Availability returns a resource's occupations and free gaps for one day.
func (s *SessionService) Availability(ctx context.Context, req AvailabilityRequest) (*AvailabilityView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid availability query")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return nil, err
	}
	engine, err := s.planner.Validator(ctx, nil, date, date)
	if err != nil {
		return nil, err
	}
	opening := s.planner.Options().Template.OpeningHours()
	detector := engine.Detector()
	occupations := detector.Availability(date, req.Resource, req.ID)
	gaps := detector.FreeGaps(date, req.Resource, req.ID, opening.Start, opening.End)
	if gaps == nil {
		gaps = []scheduling.Interval{}
	}
	return &AvailabilityView{
		Resource:     req.Resource,
		ID:           req.ID,
		Date:         req.Date,
		OpeningHours: opening,
		Occupations:  occupations,
		FreeGaps:     gaps,
	}, nil
}

func (s *SessionService) candidate(req models.CreateSessionRequest) (scheduling.Candidate, error) {
	if err := s.validator.Struct(req); err != nil {
		return scheduling.Candidate{}, invalidPayload(err, "invalid session payload")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return scheduling.Candidate{}, err
	}
	return scheduling.Candidate{
		Date:      date,
		Start:     req.StartTime,
		End:       req.EndTime,
		RoomID:    req.RoomID,
		TeacherID: req.TeacherID,
		GroupID:   req.GroupID,
		ExcludeID: req.ExcludeID,
	}, nil
}

func (s *SessionService) check(ctx context.Context, exec sqlx.ExtContext, c scheduling.Candidate) (scheduling.Result, error) {
	room, err := s.rooms.Room(ctx, c.RoomID)
	if err != nil {
		return scheduling.Result{}, err
	}
	group, err := s.planner.Group(ctx, c.GroupID)
	if err != nil {
		return scheduling.Result{}, err
	}
	engine, err := s.planner.Validator(ctx, exec, c.Date, c.Date)
	if err != nil {
		return scheduling.Result{}, err
	}
	return engine.ValidateSession(c, room, group), nil
}

func dayRange(from time.Time, days int) (time.Time, time.Time) {
	return from, from.AddDate(0, 0, days-1)
}
