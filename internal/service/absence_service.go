package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/pkg/database"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

type absenceSessionRepository interface {
	ListByTeacherInRange(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) ([]models.Session, error)
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error)
}

type availabilityBlockRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, block *models.AvailabilityBlock) error
	FindByID(ctx context.Context, id string) (*models.AvailabilityBlock, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityBlock, error)
	Delete(ctx context.Context, id string) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, events []models.NotificationEvent) models.DispatchReport
}

// AbsenceService runs the teacher absence cascade.
type AbsenceService struct {
	sessions  absenceSessionRepository
	blocks    availabilityBlockRepository
	teachers  teacherReader
	notifier  eventDispatcher
	db        database.TxBeginner
	locker    lock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsenceService constructs an AbsenceService.
func NewAbsenceService(sessions absenceSessionRepository, blocks availabilityBlockRepository, teachers teacherReader, notifier eventDispatcher, db database.TxBeginner, locker lock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	return &AbsenceService{
		sessions:  sessions,
		blocks:    blocks,
		teachers:  teachers,
		notifier:  notifier,
		db:        db,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    nilLogger(logger),
	}
}

// Declare records a teacher absence. Every session of the teacher in the
// period is cancelled, each affected group and the administrators are
// notified, and an availability block is stored even when nothing was
// cancelled. Notification failures are counted, never returned.
func (s *AbsenceService) Declare(ctx context.Context, req models.DeclareAbsenceRequest) (*models.AbsenceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid absence payload")
	}
	from, err := parseDay(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	to, err := parseDay(req.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, notFoundOr(err, "teacher not found", "failed to load teacher")
	}

	release, err := acquire(ctx, s.locker, s.metrics, lock.Teacher(teacher.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	block := &models.AvailabilityBlock{
		TeacherID: teacher.ID,
		StartDate: from,
		EndDate:   to,
		Reason:    optional(req.Reason),
	}
	var cancelled []models.Session
	var events []models.NotificationEvent
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		sessions, err := s.sessions.ListByTeacherInRange(ctx, tx, teacher.ID, from, to)
		if err != nil {
			return internal(err, "failed to load teacher sessions")
		}
		cancelled = sessions
		events = absenceEvents(*teacher, from, to, sessions)

		ids := lo.Map(sessions, func(session models.Session, _ int) string { return session.ID })
		if _, err := s.sessions.DeleteByIDs(ctx, tx, ids); err != nil {
			return internal(err, "failed to cancel sessions")
		}
		if err := s.blocks.Create(ctx, tx, block); err != nil {
			return internal(err, "failed to record availability block")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := s.notifier.Dispatch(ctx, events)
	groups := affectedGroups(cancelled)
	s.logger.Info("absence declared",
		zap.String("teacher_id", teacher.ID),
		zap.String("from", models.DateKey(from)),
		zap.String("to", models.DateKey(to)),
		zap.Int("cancelled", len(cancelled)),
		zap.Int("notifications_failed", report.Failed),
	)
	if cancelled == nil {
		cancelled = []models.Session{}
	}
	return &models.AbsenceResult{
		Block:               *block,
		CancelledSessions:   cancelled,
		AffectedGroups:      groups,
		NotificationsSent:   report.Sent,
		NotificationsFailed: report.Failed,
	}, nil
}

// ListBlocks returns the availability blocks of a teacher, or all blocks
// when teacherID is empty.
func (s *AbsenceService) ListBlocks(ctx context.Context, teacherID string) ([]models.AvailabilityBlock, error) {
	blocks, err := s.blocks.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, internal(err, "failed to list availability blocks")
	}
	return blocks, nil
}

// GetBlock returns one availability block.
func (s *AbsenceService) GetBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "availability block not found", "failed to load availability block")
	}
	return block, nil
}

// DeleteBlock lifts an availability block. Cancelled sessions are not
// restored.
func (s *AbsenceService) DeleteBlock(ctx context.Context, id string) error {
	if err := s.blocks.Delete(ctx, id); err != nil {
		return notFoundOr(err, "availability block not found", "failed to delete availability block")
	}
	return nil
}

func affectedGroups(sessions []models.Session) []string {
	return lo.Uniq(lo.Map(sessions, func(session models.Session, _ int) string { return session.GroupID }))
}

// absenceEvents builds one cancellation per distinct group, in order of
// first appearance, plus the administrator summary.
func absenceEvents(teacher models.Teacher, from, to time.Time, sessions []models.Session) []models.NotificationEvent {
	period := fmt.Sprintf("%s to %s", models.DateKey(from), models.DateKey(to))
	byGroup := lo.GroupBy(sessions, func(session models.Session) string { return session.GroupID })
	groups := affectedGroups(sessions)

	events := make([]models.NotificationEvent, 0, len(groups)+1)
	for _, groupID := range groups {
		lines := lo.Map(byGroup[groupID], func(session models.Session, _ int) string {
			return fmt.Sprintf("%s on %s %s-%s", session.Title, models.DateKey(session.Date), session.StartTime, session.EndTime)
		})
		events = append(events, models.NotificationEvent{
			Category: models.CategoryAbsenceCancellation,
			Audience: models.AudienceGroup,
			TargetID: groupID,
			Title:    "Sessions cancelled",
			Body:     fmt.Sprintf("%s is absent from %s. Cancelled: %s.", teacher.Name, period, strings.Join(lines, "; ")),
		})
	}

	summary := fmt.Sprintf("%s is absent from %s. %d session(s) cancelled.", teacher.Name, period, len(sessions))
	if len(groups) > 0 {
		summary += " Affected groups: " + strings.Join(groups, ", ") + "."
	}
	events = append(events, models.NotificationEvent{
		Category: models.CategoryAbsenceSummary,
		Audience: models.AudienceAdmins,
		Title:    "Teacher absence declared",
		Body:     summary,
	})
	return events
}
