package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// MaxGeneratedDays bounds the candidate days of one week.
const MaxGeneratedDays = 5

// DefaultWeeklyCapMinutes caps a teacher's generated load per week.
const DefaultWeeklyCapMinutes = 480

// Generator greedily places course requirements into the slot template.
// It is first-fit: accepted placements are never revisited, so input order
// decides priority.
type Generator struct {
	validator *ConstraintValidator
	template  SlotTemplate
	rooms     []models.Room
	groups    map[string]models.Group
	weekly    map[string]int
	weeklyCap int
	newID     func() string
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithIDGenerator overrides the id assigned to placed sessions.
func WithIDGenerator(fn func() string) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// WithWeeklyLoad seeds the minutes a teacher already teaches this week.
func WithWeeklyLoad(load map[string]int) GeneratorOption {
	return func(g *Generator) {
		for teacherID, minutes := range load {
			g.weekly[teacherID] += minutes
		}
	}
}

// NewGenerator builds a generator over the validator's occupation set.
func NewGenerator(validator *ConstraintValidator, template SlotTemplate, rooms []models.Room, groups []models.Group, weeklyCap int, opts ...GeneratorOption) *Generator {
	if weeklyCap <= 0 {
		weeklyCap = DefaultWeeklyCapMinutes
	}
	g := &Generator{
		validator: validator,
		template:  template,
		rooms:     rooms,
		groups:    make(map[string]models.Group, len(groups)),
		weekly:    make(map[string]int),
		weeklyCap: weeklyCap,
		newID:     uuid.NewString,
	}
	for _, group := range groups {
		g.groups[group.ID] = group
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WeeklyLoad returns the minutes tracked for a teacher in this run.
func (g *Generator) WeeklyLoad(teacherID string) int {
	return g.weekly[teacherID]
}

// Run places every requirement in order and reports one outcome each.
func (g *Generator) Run(weekStart time.Time, requirements []models.CourseRequirement) []models.RequirementOutcome {
	outcomes := make([]models.RequirementOutcome, 0, len(requirements))
	for _, req := range requirements {
		outcomes = append(outcomes, g.place(weekStart, req))
	}
	return outcomes
}

func (g *Generator) place(weekStart time.Time, req models.CourseRequirement) models.RequirementOutcome {
	outcome := models.RequirementOutcome{
		Requirement: req,
		State:       models.RequirementUnscheduled,
		Sessions:    []models.Session{},
	}
	blocked := func(format string, args ...any) models.RequirementOutcome {
		outcome.State = models.RequirementBlocked
		outcome.Reasons = append(outcome.Reasons, fmt.Sprintf(format, args...))
		return outcome
	}

	if req.SessionsPerWeek <= 0 || req.DurationMinutes <= 0 {
		return blocked("requirement needs a positive duration and session count")
	}
	limits := g.validator.limits
	if req.DurationMinutes < limits.MinSessionMinutes || req.DurationMinutes > limits.MaxSessionMinutes {
		return blocked("duration %d min is outside %d-%d min", req.DurationMinutes, limits.MinSessionMinutes, limits.MaxSessionMinutes)
	}

	needed := req.SessionsPerWeek * req.DurationMinutes
	if current := g.weekly[req.TeacherID]; current+needed > g.weeklyCap {
		return blocked("teacher %s weekly load would reach %d min, above the generator cap of %d min", req.TeacherID, current+needed, g.weeklyCap)
	}

	group, ok := g.groups[req.GroupID]
	if !ok {
		return blocked("group %s not found", req.GroupID)
	}
	rooms := SmallestFirst(g.rooms, group.Size)
	if len(rooms) == 0 {
		return blocked("no room can hold group %s (%d students)", group.ID, group.Size)
	}

	kind := req.Kind
	if kind == "" {
		kind = models.SessionKindLecture
	}

	days := Weekdays(weekStart, min(req.SessionsPerWeek, MaxGeneratedDays))
	for occurrence := 0; occurrence < req.SessionsPerWeek; occurrence++ {
		if occurrence >= len(days) {
			outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("occurrence %d: no candidate day left in the week", occurrence+1))
			continue
		}
		date := days[occurrence]
		if g.validator.IsBlocked(req.TeacherID, date) {
			outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("occurrence %d: teacher %s is unavailable on %s", occurrence+1, req.TeacherID, models.DateKey(date)))
			continue
		}
		session, found := g.firstFit(date, req, kind, group, rooms)
		if !found {
			outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("occurrence %d: no free slot and room on %s", occurrence+1, models.DateKey(date)))
			continue
		}
		g.validator.detector.Add(session.Occupation())
		g.weekly[req.TeacherID] += req.DurationMinutes
		outcome.Sessions = append(outcome.Sessions, session)
	}

	switch placed := len(outcome.Sessions); {
	case placed == req.SessionsPerWeek:
		outcome.State = models.RequirementScheduled
	case placed > 0:
		outcome.State = models.RequirementPartiallyScheduled
	}
	return outcome
}

func (g *Generator) firstFit(date time.Time, req models.CourseRequirement, kind models.SessionKind, group models.Group, rooms []models.Room) (models.Session, bool) {
	for _, start := range g.template.Starts() {
		end, ok := AddMinutes(start, req.DurationMinutes)
		if !ok || !IsValidRange(start, end) {
			continue
		}
		for i := range rooms {
			room := rooms[i]
			candidate := Candidate{
				Date:      date,
				Start:     start,
				End:       end,
				RoomID:    room.ID,
				TeacherID: req.TeacherID,
				GroupID:   group.ID,
			}
			if !g.validator.ValidateSession(candidate, &room, &group).OK {
				continue
			}
			return models.Session{
				ID:        g.newID(),
				Title:     req.Title,
				Kind:      kind,
				Date:      date,
				StartTime: start,
				EndTime:   end,
				RoomID:    room.ID,
				TeacherID: req.TeacherID,
				GroupID:   group.ID,
				Origin:    models.SessionOriginGenerated,
			}, true
		}
	}
	return models.Session{}, false
}

// Weekdays returns the first n dates from start onwards that fall Monday to
// Friday. A weekend start rolls over to the following Monday.
func Weekdays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for date := start; len(days) < n; date = date.AddDate(0, 0, 1) {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, date)
	}
	return days
}

// NextMonday returns the Monday strictly after now, at midnight UTC.
func NextMonday(now time.Time) time.Time {
	daysAhead := (7 - (int(now.Weekday())+6)%7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	next := now.AddDate(0, 0, daysAhead)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
}
