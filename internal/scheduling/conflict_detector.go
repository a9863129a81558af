package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// Resource names the dimension a conflict was found on.
type Resource string

const (
	ResourceTime    Resource = "time"
	ResourceRoom    Resource = "room"
	ResourceTeacher Resource = "teacher"
	ResourceGroup   Resource = "group"
)

// Candidate is a proposed occupation. Empty resource ids are not checked.
// ExcludeID skips the occupation being edited in place.
type Candidate struct {
	Date      time.Time
	Start     string
	End       string
	RoomID    string
	TeacherID string
	GroupID   string
	ExcludeID string
}

// Conflict describes one failed resource check.
type Conflict struct {
	Resource Resource           `json:"resource"`
	Message  string             `json:"message"`
	With     *models.Occupation `json:"with,omitempty"`
}

// ConflictDetector checks candidates against committed occupations, indexed
// by calendar day.
type ConflictDetector struct {
	pause int
	byDay map[string][]models.Occupation
}

// NewConflictDetector indexes occupations. A negative pause falls back to
// DefaultPauseMinutes.
func NewConflictDetector(occupations []models.Occupation, pause int) *ConflictDetector {
	if pause < 0 {
		pause = DefaultPauseMinutes
	}
	d := &ConflictDetector{pause: pause, byDay: make(map[string][]models.Occupation)}
	for _, occ := range occupations {
		d.Add(occ)
	}
	return d
}

// Pause returns the configured pause in minutes.
func (d *ConflictDetector) Pause() int { return d.pause }

// Add registers a committed occupation so later checks see it.
func (d *ConflictDetector) Add(occ models.Occupation) {
	key := models.DateKey(occ.Date)
	d.byDay[key] = append(d.byDay[key], occ)
}

// Detect returns every conflict for the candidate in room, teacher, group
// order, at most one per resource. An invalid range is reported alone.
func (d *ConflictDetector) Detect(c Candidate) []Conflict {
	if !IsValidRange(c.Start, c.End) {
		return []Conflict{{
			Resource: ResourceTime,
			Message:  fmt.Sprintf("invalid time range %s-%s", c.Start, c.End),
		}}
	}

	var conflicts []Conflict
	checks := []struct {
		resource Resource
		id       string
	}{
		{ResourceRoom, c.RoomID},
		{ResourceTeacher, c.TeacherID},
		{ResourceGroup, c.GroupID},
	}
	for _, check := range checks {
		if check.id == "" {
			continue
		}
		if hit, ok := d.firstOverlap(c, check.resource, check.id); ok {
			conflicts = append(conflicts, Conflict{
				Resource: check.resource,
				Message:  d.message(check.resource, check.id, hit),
				With:     &hit,
			})
		}
	}
	return conflicts
}

// IsFree reports whether the candidate has no conflicts.
func (d *ConflictDetector) IsFree(c Candidate) bool {
	return len(d.Detect(c)) == 0
}

func (d *ConflictDetector) firstOverlap(c Candidate, resource Resource, id string) (models.Occupation, bool) {
	for _, occ := range d.byDay[models.DateKey(c.Date)] {
		if c.ExcludeID != "" && occ.ID == c.ExcludeID {
			continue
		}
		if !uses(occ, resource, id) {
			continue
		}
		if OverlapsWithPause(c.Start, c.End, occ.Start, occ.End, d.pause) {
			return occ, true
		}
	}
	return models.Occupation{}, false
}

func (d *ConflictDetector) message(resource Resource, id string, hit models.Occupation) string {
	around := fmt.Sprintf("%s %s-%s", models.DateKey(hit.Date), hit.Start, hit.End)
	switch resource {
	case ResourceRoom:
		return fmt.Sprintf("room %s is occupied or within the %d min pause around %s", id, d.pause, around)
	case ResourceTeacher:
		return fmt.Sprintf("teacher %s is busy or within the %d min pause around %s", id, d.pause, around)
	default:
		return fmt.Sprintf("group %s is busy or within the %d min pause around %s", id, d.pause, around)
	}
}

func uses(occ models.Occupation, resource Resource, id string) bool {
	switch resource {
	case ResourceRoom:
		return occ.RoomID == id
	case ResourceTeacher:
		return occ.TeacherID == id
	case ResourceGroup:
		return occ.GroupID != nil && *occ.GroupID == id
	}
	return false
}

// Availability lists the occupations of one resource on a day, sorted by
// start time.
func (d *ConflictDetector) Availability(date time.Time, resource Resource, id string) []models.Occupation {
	busy := lo.Filter(d.byDay[models.DateKey(date)], func(occ models.Occupation, _ int) bool {
		return uses(occ, resource, id)
	})
	sort.SliceStable(busy, func(i, j int) bool {
		a, _ := ToMinutes(busy[i].Start)
		b, _ := ToMinutes(busy[j].Start)
		return a < b
	})
	return busy
}

// FreeGaps returns the intervals between open and closing where a new
// occupation of the resource would not conflict, honouring the pause.
func (d *ConflictDetector) FreeGaps(date time.Time, resource Resource, id, open, closing string) []Interval {
	openMin, ok1 := ToMinutes(open)
	closeMin, ok2 := ToMinutes(closing)
	if !ok1 || !ok2 || openMin >= closeMin {
		return nil
	}

	var gaps []Interval
	cursor := openMin
	for _, occ := range d.Availability(date, resource, id) {
		start, okS := ToMinutes(occ.Start)
		end, okE := ToMinutes(occ.End)
		if !okS || !okE {
			continue
		}
		gapEnd := min(start-d.pause, closeMin)
		if gapEnd > cursor {
			gaps = append(gaps, Interval{Start: FormatMinutes(cursor), End: FormatMinutes(gapEnd)})
		}
		cursor = max(cursor, end+d.pause)
	}
	if cursor < closeMin {
		gaps = append(gaps, Interval{Start: FormatMinutes(cursor), End: FormatMinutes(closeMin)})
	}
	return gaps
}

// TeacherMinutes sums the teacher's committed minutes on a day, skipping
// excludeID.
func (d *ConflictDetector) TeacherMinutes(date time.Time, teacherID, excludeID string) int {
	return lo.SumBy(d.byDay[models.DateKey(date)], func(occ models.Occupation) int {
		if occ.TeacherID != teacherID || (excludeID != "" && occ.ID == excludeID) {
			return 0
		}
		return Duration(occ.Start, occ.End)
	})
}

// Occupations returns every indexed occupation for a day in insertion order.
func (d *ConflictDetector) Occupations(date time.Time) []models.Occupation {
	return append([]models.Occupation(nil), d.byDay[models.DateKey(date)]...)
}
