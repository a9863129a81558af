package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

type reservationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	Review(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error
}

// ReservationService runs the room request and review workflow.
type ReservationService struct {
	repo      reservationRepository
	planner   *Planner
	rooms     roomLookup
	notifier  eventDispatcher
	db        database.TxBeginner
	locker    lock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReservationService constructs a ReservationService.
func NewReservationService(repo reservationRepository, planner *Planner, rooms roomLookup, notifier eventDispatcher, db database.TxBeginner, locker lock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	return &ReservationService{
		repo:      repo,
		planner:   planner,
		rooms:     rooms,
		notifier:  notifier,
		db:        db,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    nilLogger(logger),
		now:       time.Now,
	}
}

// Request validates a room request, notice period included, and stores it
// as pending. Pending requests do not occupy the room.
func (s *ReservationService) Request(ctx context.Context, req models.CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid reservation payload")
	}
	date, err := parseDay(req.Date, "date")
	if err != nil {
		return nil, err
	}
	reservation := &models.Reservation{
		TeacherID: req.TeacherID,
		RoomID:    req.RoomID,
		GroupID:   optional(req.GroupID),
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    models.ReservationPending,
		Reason:    req.Reason,
	}
	res, err := s.check(ctx, nil, reservation, true)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, rejection(res, s.metrics, "reservation rejected")
	}
	if err := s.repo.Create(ctx, nil, reservation); err != nil {
		return nil, internal(err, "failed to store reservation")
	}
	s.logger.Info("reservation requested", zap.String("reservation_id", reservation.ID), zap.String("room_id", reservation.RoomID))
	return reservation, nil
}

// Approve re-checks the room, teacher and group, if any, against the
// current state and marks the reservation approved.
func (s *ReservationService) Approve(ctx context.Context, id, reviewerID string) (*models.Reservation, error) {
	reservation, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	release, err := acquire(ctx, s.locker, s.metrics, resourceKeys(reservation.RoomID, reservation.TeacherID, deref(reservation.GroupID))...)
	if err != nil {
		return nil, err
	}
	defer release()

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := s.check(ctx, tx, reservation, false)
		if err != nil {
			return err
		}
		if !res.OK {
			return rejection(res, s.metrics, "reservation can no longer be approved")
		}
		s.review(reservation, models.ReservationApproved, reviewerID, nil)
		return s.persistReview(ctx, tx, reservation)
	})
	if err != nil {
		return nil, err
	}

	room, _ := s.rooms.Room(ctx, reservation.RoomID)
	body := fmt.Sprintf("Room %s is reserved on %s from %s to %s.", roomName(room, reservation.RoomID), models.DateKey(reservation.Date), reservation.StartTime, reservation.EndTime)
	events := []models.NotificationEvent{{
		Category: models.CategoryReservationApproved,
		Audience: models.AudienceTeacher,
		TargetID: reservation.TeacherID,
		Title:    "Reservation approved",
		Body:     body,
	}}
	if reservation.GroupID != nil {
		events = append(events, models.NotificationEvent{
			Category: models.CategoryReservationApproved,
			Audience: models.AudienceGroup,
			TargetID: *reservation.GroupID,
			Title:    "New session booked",
			Body:     body,
		})
	}
	s.notifier.Dispatch(ctx, events)
	s.logger.Info("reservation approved", zap.String("reservation_id", id), zap.String("reviewer_id", reviewerID))
	return reservation, nil
}

// Reject marks a pending reservation rejected. The reason is mandatory and
// checked before anything is read or written.
func (s *ReservationService) Reject(ctx context.Context, id, reviewerID string, req models.RejectReservationRequest) (*models.Reservation, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "rejection reason is required", []string{"reason must not be empty"})
	}
	reservation, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	s.review(reservation, models.ReservationRejected, reviewerID, &req.Reason)
	if err := s.persistReview(ctx, nil, reservation); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, []models.NotificationEvent{{
		Category: models.CategoryReservationRejected,
		Audience: models.AudienceTeacher,
		TargetID: reservation.TeacherID,
		Title:    "Reservation rejected",
		Body:     fmt.Sprintf("Your reservation for %s %s-%s was rejected: %s", models.DateKey(reservation.Date), reservation.StartTime, reservation.EndTime, req.Reason),
	}})
	s.logger.Info("reservation rejected", zap.String("reservation_id", id), zap.String("reviewer_id", reviewerID))
	return reservation, nil
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation not found", "failed to load reservation")
	}
	return reservation, nil
}

// List returns reservations matching the filter.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	reservations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list reservations")
	}
	return reservations, nil
}

func (s *ReservationService) pending(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.ReservationPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("reservation is already %s", reservation.Status))
	}
	return reservation, nil
}

func (s *ReservationService) review(reservation *models.Reservation, status models.ReservationStatus, reviewerID string, reason *string) {
	now := s.now().UTC()
	reservation.Status = status
	reservation.RejectionReason = reason
	reservation.ReviewedBy = optional(reviewerID)
	reservation.ReviewedAt = &now
}

func (s *ReservationService) persistReview(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error {
	if err := s.repo.Review(ctx, exec, reservation); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation was reviewed concurrently")
		case errors.Is(err, repository.ErrUniqueViolation):
			return appErrors.WithDetails(appErrors.ErrValidation, "reservation can no longer be approved", []string{"room already booked for this slot"})
		}
		return internal(err, "failed to update reservation")
	}
	return nil
}

func (s *ReservationService) check(ctx context.Context, exec sqlx.ExtContext, r *models.Reservation, withNotice bool) (scheduling.Result, error) {
	room, err := s.rooms.Room(ctx, r.RoomID)
	if err != nil {
		return scheduling.Result{}, err
	}
	group, err := s.planner.Group(ctx, deref(r.GroupID))
	if err != nil {
		return scheduling.Result{}, err
	}
	engine, err := s.planner.Validator(ctx, exec, r.Date, r.Date)
	if err != nil {
		return scheduling.Result{}, err
	}
	return engine.ValidateReservation(scheduling.Candidate{
		Date:      r.Date,
		Start:     r.StartTime,
		End:       r.EndTime,
		RoomID:    r.RoomID,
		TeacherID: r.TeacherID,
		GroupID:   deref(r.GroupID),
		ExcludeID: r.ID,
	}, room, group, withNotice), nil
}
