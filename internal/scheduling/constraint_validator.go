package scheduling

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// Result is the outcome of a validation: OK iff Errors is empty. Errors keep
// the order in which the checks ran.
type Result struct {
	OK        bool       `json:"ok"`
	Errors    []string   `json:"errors"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) done() Result {
	r.OK = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return *r
}

// Limits are the business bounds applied by the validator.
type Limits struct {
	MinSessionMinutes int
	MaxSessionMinutes int
	DailyCapMinutes   int
	ReservationNotice time.Duration
}

// DefaultLimits mirrors the institution defaults.
func DefaultLimits() Limits {
	return Limits{
		MinSessionMinutes: 30,
		MaxSessionMinutes: 240,
		DailyCapMinutes:   models.DefaultDailyCapMinutes,
		ReservationNotice: 2 * time.Hour,
	}
}

// ConstraintValidator layers business rules over a ConflictDetector.
type ConstraintValidator struct {
	detector *ConflictDetector
	template SlotTemplate
	limits   Limits
	blocks   []models.AvailabilityBlock
	teachers map[string]models.Teacher
	now      func() time.Time
}

// ValidatorOption customises a ConstraintValidator.
type ValidatorOption func(*ConstraintValidator)

// WithBlocks registers teacher availability blocks.
func WithBlocks(blocks []models.AvailabilityBlock) ValidatorOption {
	return func(v *ConstraintValidator) {
		v.blocks = append(v.blocks, blocks...)
	}
}

// WithTeachers registers teacher records so their own daily caps apply.
func WithTeachers(teachers []models.Teacher) ValidatorOption {
	return func(v *ConstraintValidator) {
		for _, teacher := range teachers {
			v.teachers[teacher.ID] = teacher
		}
	}
}

// WithClock overrides the clock used for the reservation notice.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *ConstraintValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewConstraintValidator builds a validator. Zero limits take the defaults.
func NewConstraintValidator(detector *ConflictDetector, template SlotTemplate, limits Limits, opts ...ValidatorOption) *ConstraintValidator {
	defaults := DefaultLimits()
	if limits.MinSessionMinutes <= 0 {
		limits.MinSessionMinutes = defaults.MinSessionMinutes
	}
	if limits.MaxSessionMinutes <= 0 {
		limits.MaxSessionMinutes = defaults.MaxSessionMinutes
	}
	if limits.DailyCapMinutes <= 0 {
		limits.DailyCapMinutes = defaults.DailyCapMinutes
	}
	if limits.ReservationNotice < 0 {
		limits.ReservationNotice = defaults.ReservationNotice
	}
	if detector == nil {
		detector = NewConflictDetector(nil, DefaultPauseMinutes)
	}
	v := &ConstraintValidator{
		detector: detector,
		template: template,
		limits:   limits,
		teachers: make(map[string]models.Teacher),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Detector exposes the underlying conflict detector.
func (v *ConstraintValidator) Detector() *ConflictDetector { return v.detector }

// ValidateSession runs every check for a committed session. room and group
// are the records resolved for the candidate ids; nil means not found.
func (v *ConstraintValidator) ValidateSession(c Candidate, room *models.Room, group *models.Group) Result {
	var res Result
	if !v.checkRange(&res, c) {
		return res.done()
	}
	v.checkOpeningHours(&res, c)
	v.checkDuration(&res, c)
	v.checkConflicts(&res, c)
	v.checkBlocked(&res, c)
	v.checkDailyCap(&res, c)
	checkCapacity(&res, room, group)
	checkRequired(&res, c)
	checkReferences(&res, c, room, group)
	return res.done()
}

// ValidateMakeup checks a make-up booking: time range, conflicts on room,
// teacher and group, availability blocks, the daily cap, capacity and
// references.
func (v *ConstraintValidator) ValidateMakeup(c Candidate, room *models.Room, group *models.Group) Result {
	var res Result
	if !v.checkRange(&res, c) {
		return res.done()
	}
	v.checkConflicts(&res, c)
	v.checkBlocked(&res, c)
	v.checkDailyCap(&res, c)
	checkCapacity(&res, room, group)
	checkRequired(&res, c)
	checkReferences(&res, c, room, group)
	return res.done()
}

// ValidateReservation checks a room request: time range, advance notice,
// capacity when a group is given, conflicts on room and teacher (and group
// when set), blocks and the daily cap. It is run on request and again on
// approval.
func (v *ConstraintValidator) ValidateReservation(c Candidate, room *models.Room, group *models.Group, checkNotice bool) Result {
	var res Result
	if !v.checkRange(&res, c) {
		return res.done()
	}
	if checkNotice {
		v.checkNotice(&res, c)
	}
	if group != nil {
		checkCapacity(&res, room, group)
	}
	v.checkConflicts(&res, c)
	v.checkBlocked(&res, c)
	v.checkDailyCap(&res, c)
	if c.RoomID != "" && room == nil {
		res.fail("room %s not found", c.RoomID)
	}
	if c.GroupID != "" && group == nil {
		res.fail("group %s not found", c.GroupID)
	}
	return res.done()
}

func (v *ConstraintValidator) checkRange(res *Result, c Candidate) bool {
	if IsValidRange(c.Start, c.End) {
		return true
	}
	res.fail("invalid time range %s-%s", c.Start, c.End)
	return false
}

func (v *ConstraintValidator) checkOpeningHours(res *Result, c Candidate) {
	hours := v.template.OpeningHours()
	start, _ := ToMinutes(c.Start)
	end, _ := ToMinutes(c.End)
	open, _ := ToMinutes(hours.Start)
	closing, _ := ToMinutes(hours.End)
	if start < open {
		res.fail("session starts at %s, before opening time %s", c.Start, hours.Start)
	}
	if end > closing {
		res.fail("session ends at %s, after closing time %s", c.End, hours.End)
	}
}

func (v *ConstraintValidator) checkDuration(res *Result, c Candidate) {
	minutes := Duration(c.Start, c.End)
	if minutes < v.limits.MinSessionMinutes {
		res.fail("session lasts %d min, shorter than the minimum of %d min", minutes, v.limits.MinSessionMinutes)
	}
	if minutes > v.limits.MaxSessionMinutes {
		res.fail("session lasts %d min, longer than the maximum of %d min", minutes, v.limits.MaxSessionMinutes)
	}
}

func (v *ConstraintValidator) checkConflicts(res *Result, c Candidate) {
	for _, conflict := range v.detector.Detect(c) {
		res.Conflicts = append(res.Conflicts, conflict)
		res.Errors = append(res.Errors, conflict.Message)
	}
}

func (v *ConstraintValidator) checkBlocked(res *Result, c Candidate) {
	if c.TeacherID != "" && v.IsBlocked(c.TeacherID, c.Date) {
		res.fail("teacher %s declared unavailability on %s", c.TeacherID, models.DateKey(c.Date))
	}
}

func (v *ConstraintValidator) checkDailyCap(res *Result, c Candidate) {
	if c.TeacherID == "" {
		return
	}
	limit := v.DailyCap(c.TeacherID)
	total := v.detector.TeacherMinutes(c.Date, c.TeacherID, c.ExcludeID) + Duration(c.Start, c.End)
	if total > limit {
		res.fail("teacher %s would teach %d min on %s, above the daily cap of %d min", c.TeacherID, total, models.DateKey(c.Date), limit)
	}
}

func (v *ConstraintValidator) checkNotice(res *Result, c Candidate) {
	startMin, _ := ToMinutes(c.Start)
	now := v.now()
	startsAt := time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), startMin/60, startMin%60, 0, 0, now.Location())
	remaining := startsAt.Sub(now)
	if remaining < v.limits.ReservationNotice {
		res.fail("reservations require %s notice, this one starts %s", HumanDuration(v.limits.ReservationNotice), describeRemaining(remaining))
	}
}

func checkCapacity(res *Result, room *models.Room, group *models.Group) {
	if room == nil || group == nil {
		return
	}
	if room.Capacity < group.Size {
		res.fail("room capacity (%d) is insufficient for group (%d students)", room.Capacity, group.Size)
	}
}

func checkRequired(res *Result, c Candidate) {
	if c.RoomID == "" {
		res.fail("room is required")
	}
	if c.TeacherID == "" {
		res.fail("teacher is required")
	}
	if c.GroupID == "" {
		res.fail("group is required")
	}
}

func checkReferences(res *Result, c Candidate, room *models.Room, group *models.Group) {
	if c.RoomID != "" && room == nil {
		res.fail("room %s not found", c.RoomID)
	}
	if c.GroupID != "" && group == nil {
		res.fail("group %s not found", c.GroupID)
	}
}

// IsBlocked reports whether an availability block covers the date.
func (v *ConstraintValidator) IsBlocked(teacherID string, date time.Time) bool {
	return lo.ContainsBy(v.blocks, func(block models.AvailabilityBlock) bool {
		return block.TeacherID == teacherID && block.Covers(date)
	})
}

// DailyCap returns the teacher's cap or the configured default.
func (v *ConstraintValidator) DailyCap(teacherID string) int {
	if teacher, ok := v.teachers[teacherID]; ok && teacher.DailyCapMinutes > 0 {
		return teacher.DailyCapMinutes
	}
	return v.limits.DailyCapMinutes
}

// HumanDuration renders a duration as "2h", "45 min" or "1h30".
func HumanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 0 {
		minutes = -minutes
	}
	hours, rest := minutes/60, minutes%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", rest)
	case rest == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh%02d", hours, rest)
	}
}

func describeRemaining(d time.Duration) string {
	if d <= 0 {
		return HumanDuration(d) + " ago"
	}
	return "in " + HumanDuration(d)
}
