package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

// SchedulingOptions carries the configured engine parameters.
type SchedulingOptions struct {
	PauseMinutes int
	Template     scheduling.SlotTemplate
	Limits       scheduling.Limits
	WeeklyCap    int
	Algorithm    string
}

type occupationReader interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.OccupationFilter) ([]models.Occupation, error)
}

type blockReader interface {
	ListOverlapping(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error)
}

type teacherReader interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type groupReader interface {
	List(ctx context.Context) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type roomLookup interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Room(ctx context.Context, id string) (*models.Room, error)
}

// Planner loads the committed state needed to validate placements between
// two dates and builds a ConstraintValidator over it.
type Planner struct {
	occupations occupationReader
	blocks      blockReader
	teachers    teacherReader
	groups      groupReader
	options     SchedulingOptions
	metrics     *MetricsService
	now         func() time.Time
}

// NewPlanner constructs a Planner.
func NewPlanner(occupations occupationReader, blocks blockReader, teachers teacherReader, groups groupReader, options SchedulingOptions) *Planner {
	return &Planner{
		occupations: occupations,
		blocks:      blocks,
		teachers:    teachers,
		groups:      groups,
		options:     options,
		now:         time.Now,
	}
}

// UseMetrics records the occupation query latency on m.
func (p *Planner) UseMetrics(m *MetricsService) {
	p.metrics = m
}

// Options returns the engine parameters.
func (p *Planner) Options() SchedulingOptions {
	return p.options
}

// Validator loads occupations, availability blocks and teacher caps for
// [from, to] and returns a validator over them. exec lets callers read
// inside their transaction; nil uses the repository default.
func (p *Planner) Validator(ctx context.Context, exec sqlx.ExtContext, from, to time.Time) (*scheduling.ConstraintValidator, error) {
	start := time.Now()
	occupations, err := p.occupations.List(ctx, exec, models.OccupationFilter{From: from, To: to})
	p.metrics.ObserveDBQuery("occupations", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupations")
	}
	blocks, err := p.blocks.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability blocks")
	}
	teachers, err := p.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	detector := scheduling.NewConflictDetector(occupations, p.options.PauseMinutes)
	return scheduling.NewConstraintValidator(detector, p.options.Template, p.options.Limits,
		scheduling.WithBlocks(blocks),
		scheduling.WithTeachers(teachers),
		scheduling.WithClock(p.now),
	), nil
}

// Group resolves a group id, returning nil when it does not exist.
func (p *Planner) Group(ctx context.Context, id string) (*models.Group, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	group, err := p.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// Groups lists every group.
func (p *Planner) Groups(ctx context.Context) ([]models.Group, error) {
	groups, err := p.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	return groups, nil
}

// acquire takes the resource locks for a workflow and records the wait.
func acquire(ctx context.Context, locker lock.Locker, metrics *MetricsService, keys ...string) (lock.Release, error) {
	start := time.Now()
	release, err := locker.Acquire(ctx, keys...)
	metrics.ObserveLockWait(time.Since(start), err)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, appErrors.Clone(appErrors.ErrLockTimeout, "resources are being modified by another request, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock resources")
	}
	return release, nil
}

func resourceKeys(roomID, teacherID, groupID string) []string {
	return []string{lock.Room(roomID), lock.Teacher(teacherID), lock.Group(groupID)}
}

// rejection turns a failed validation into an API error. Placements that
// collided with committed occupations surface as scheduling conflicts,
// everything else as validation errors.
func rejection(res scheduling.Result, metrics *MetricsService, message string) error {
	if len(res.Conflicts) > 0 {
		metrics.RecordConflicts(res.Conflicts)
		return appErrors.WithDetails(appErrors.ErrSchedulingConflict, message, res.Errors)
	}
	return appErrors.WithDetails(appErrors.ErrValidation, message, res.Errors)
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func internal(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internal(err, message)
}

func parseDay(value, field string) (time.Time, error) {
	day, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must use the YYYY-MM-DD format")
	}
	return day, nil
}

func nilLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
