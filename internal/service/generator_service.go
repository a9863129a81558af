package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/repository"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/pkg/database"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

// Generator algorithm labels. Only the greedy first-fit strategy exists;
// the backtracking label is accepted for configuration compatibility.
const (
	AlgorithmGreedy       = "greedy"
	AlgorithmBacktracking = "backtracking"
)

type sessionBatchWriter interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error
}

// GeneratorService previews and commits generated weekly timetables.
type GeneratorService struct {
	sessions  sessionBatchWriter
	planner   *Planner
	rooms     roomLookup
	db        database.TxBeginner
	locker    lock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	algorithm string
	now       func() time.Time
	newID     func() string
}

// NewGeneratorService constructs a GeneratorService. An unknown algorithm
// label falls back to greedy.
func NewGeneratorService(sessions sessionBatchWriter, planner *Planner, rooms roomLookup, db database.TxBeginner, locker lock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	logger = nilLogger(logger)
	algorithm := strings.ToLower(strings.TrimSpace(planner.Options().Algorithm))
	switch algorithm {
	case "", AlgorithmGreedy:
		algorithm = AlgorithmGreedy
	case AlgorithmBacktracking:
		logger.Warn("backtracking generator requested, running greedy first-fit instead")
		algorithm = AlgorithmGreedy
	default:
		logger.Warn("unknown generator algorithm, running greedy first-fit", zap.String("algorithm", algorithm))
		algorithm = AlgorithmGreedy
	}
	return &GeneratorService{
		sessions:  sessions,
		planner:   planner,
		rooms:     rooms,
		db:        db,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		algorithm: algorithm,
		now:       time.Now,
	}
}

// Preview runs the generator against the committed state without
// persisting anything.
func (s *GeneratorService) Preview(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error) {
	weekStart, err := s.weekStart(req)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	outcomes, err := s.run(ctx, nil, weekStart, req.Requirements)
	if err != nil {
		return nil, err
	}
	s.observe("preview", outcomes, time.Since(started))
	return s.result(weekStart, outcomes, false), nil
}

// Commit regenerates the week under resource locks inside one transaction,
// re-validates every placed session against the fresh state and persists
// them together.
func (s *GeneratorService) Commit(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error) {
	weekStart, err := s.weekStart(req)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	keys := lo.Map(rooms, func(room models.Room, _ int) string { return lock.Room(room.ID) })
	for _, r := range req.Requirements {
		keys = append(keys, lock.Teacher(r.TeacherID), lock.Group(r.GroupID))
	}
	release, err := acquire(ctx, s.locker, s.metrics, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	var outcomes []models.RequirementOutcome
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var runErr error
		outcomes, runErr = s.run(ctx, tx, weekStart, req.Requirements)
		if runErr != nil {
			return runErr
		}
		placed := lo.FlatMap(outcomes, func(o models.RequirementOutcome, _ int) []models.Session { return o.Sessions })
		if len(placed) == 0 {
			return nil
		}
		if err := s.revalidate(ctx, tx, weekStart, placed); err != nil {
			return err
		}
		if err := s.sessions.CreateBatch(ctx, tx, placed); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return appErrors.WithDetails(appErrors.ErrSchedulingConflict, "generated timetable rejected", []string{"a generated slot was taken concurrently"})
			}
			return internal(err, "failed to persist generated sessions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe("commit", outcomes, time.Since(started))

	result := s.result(weekStart, outcomes, true)
	s.logger.Info("generated timetable committed",
		zap.String("week_start", models.DateKey(weekStart)),
		zap.Int("requirements", len(outcomes)),
		zap.Int("sessions", result.Placed),
	)
	return result, nil
}

func (s *GeneratorService) run(ctx context.Context, exec sqlx.ExtContext, weekStart time.Time, requirements []models.CourseRequirement) ([]models.RequirementOutcome, error) {
	from, to := dayRange(weekStart, 7)
	engine, err := s.planner.Validator(ctx, exec, from, to)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.planner.Groups(ctx)
	if err != nil {
		return nil, err
	}

	load := make(map[string]int)
	for _, teacherID := range lo.Uniq(lo.Map(requirements, func(r models.CourseRequirement, _ int) string { return r.TeacherID })) {
		for day := 0; day < 7; day++ {
			load[teacherID] += engine.Detector().TeacherMinutes(weekStart.AddDate(0, 0, day), teacherID, "")
		}
	}

	opts := []scheduling.GeneratorOption{scheduling.WithWeeklyLoad(load)}
	if s.newID != nil {
		opts = append(opts, scheduling.WithIDGenerator(s.newID))
	}
	generator := scheduling.NewGenerator(engine, s.planner.Options().Template, rooms, groups, s.planner.Options().WeeklyCap, opts...)
	return generator.Run(weekStart, requirements), nil
}

// revalidate checks the placed sessions one by one against a validator
// built from the transaction's view, adding each accepted one.
func (s *GeneratorService) revalidate(ctx context.Context, tx sqlx.ExtContext, weekStart time.Time, placed []models.Session) error {
	from, to := dayRange(weekStart, 7)
	engine, err := s.planner.Validator(ctx, tx, from, to)
	if err != nil {
		return err
	}
	for _, session := range placed {
		room, err := s.rooms.Room(ctx, session.RoomID)
		if err != nil {
			return err
		}
		group, err := s.planner.Group(ctx, session.GroupID)
		if err != nil {
			return err
		}
		res := engine.ValidateSession(scheduling.Candidate{
			Date:      session.Date,
			Start:     session.StartTime,
			End:       session.EndTime,
			RoomID:    session.RoomID,
			TeacherID: session.TeacherID,
			GroupID:   session.GroupID,
		}, room, group)
		if !res.OK {
			details := lo.Map(res.Errors, func(msg string, _ int) string {
				return fmt.Sprintf("%s on %s %s-%s: %s", session.Title, models.DateKey(session.Date), session.StartTime, session.EndTime, msg)
			})
			res.Errors = details
			return rejection(res, s.metrics, "generated timetable rejected")
		}
		engine.Detector().Add(session.Occupation())
	}
	return nil
}

func (s *GeneratorService) weekStart(req models.GenerateRequest) (time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, invalidPayload(err, "invalid generator request")
	}
	if req.WeekStart == "" {
		return scheduling.NextMonday(s.now()), nil
	}
	return parseDay(req.WeekStart, "week_start")
}

func (s *GeneratorService) result(weekStart time.Time, outcomes []models.RequirementOutcome, committed bool) *models.GenerateResult {
	return &models.GenerateResult{
		WeekStart: weekStart,
		Algorithm: s.algorithm,
		Outcomes:  outcomes,
		Placed:    lo.SumBy(outcomes, func(o models.RequirementOutcome) int { return len(o.Sessions) }),
		Committed: committed,
	}
}

func (s *GeneratorService) observe(mode string, outcomes []models.RequirementOutcome, duration time.Duration) {
	states := lo.Map(outcomes, func(o models.RequirementOutcome, _ int) string { return string(o.State) })
	s.metrics.ObserveGeneratorRun(mode, states, duration)
}
