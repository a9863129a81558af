package scheduling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func newTestGenerator(occs []models.Occupation, rooms []models.Room, groups []models.Group, opts ...ValidatorOption) *Generator {
	v := newTestValidator(occs, opts...)
	return NewGenerator(v, NewSlotTemplate(nil), rooms, groups, 480, WithIDGenerator(sequentialIDs()))
}

func TestGeneratorPlacesSmallestRoomFirstSlot(t *testing.T) {
	g := newTestGenerator(nil, sampleRooms(), []models.Group{{ID: "G1", Size: 30}})

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "Algebra", DurationMinutes: 90, SessionsPerWeek: 2},
	})
	require.Len(t, outcomes, 1)
	out := outcomes[0]
	assert.Equal(t, models.RequirementScheduled, out.State)
	require.Len(t, out.Sessions, 2)

	first := out.Sessions[0]
	assert.Equal(t, "L1", first.RoomID)
	assert.Equal(t, "08:00", first.StartTime)
	assert.Equal(t, "09:30", first.EndTime)
	assert.Equal(t, monday, first.Date)
	assert.Equal(t, models.SessionKindLecture, first.Kind)
	assert.Equal(t, models.SessionOriginGenerated, first.Origin)
	assert.Equal(t, monday.AddDate(0, 0, 1), out.Sessions[1].Date)
	assert.Equal(t, 180, g.WeeklyLoad("T1"))
}

func TestGeneratorLaterRequirementsSeeEarlierPlacements(t *testing.T) {
	rooms := []models.Room{{ID: "R1", Capacity: 40}}
	g := newTestGenerator(nil, rooms, []models.Group{{ID: "G1", Size: 30}, {ID: "G2", Size: 25}})

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "A", DurationMinutes: 90, SessionsPerWeek: 1},
		{GroupID: "G2", TeacherID: "T2", Title: "B", DurationMinutes: 90, SessionsPerWeek: 1},
	})
	require.Equal(t, models.RequirementScheduled, outcomes[1].State)
	assert.Equal(t, "09:40", outcomes[1].Sessions[0].StartTime)
}

func TestGeneratorBlocksOnWeeklyCap(t *testing.T) {
	g := newTestGenerator(nil, sampleRooms(), []models.Group{{ID: "G1", Size: 30}})

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "A", DurationMinutes: 120, SessionsPerWeek: 3},
		{GroupID: "G1", TeacherID: "T1", Title: "B", DurationMinutes: 90, SessionsPerWeek: 2},
	})
	assert.Equal(t, models.RequirementScheduled, outcomes[0].State)
	assert.Equal(t, models.RequirementBlocked, outcomes[1].State)
	assert.Empty(t, outcomes[1].Sessions)
	assert.Contains(t, outcomes[1].Reasons[0], "above the generator cap of 480 min")
}

func TestGeneratorBlockedRequirements(t *testing.T) {
	g := newTestGenerator(nil, []models.Room{{ID: "R1", Capacity: 20}}, []models.Group{{ID: "G1", Size: 30}})

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G404", TeacherID: "T1", Title: "A", DurationMinutes: 90, SessionsPerWeek: 1},
		{GroupID: "G1", TeacherID: "T1", Title: "B", DurationMinutes: 90, SessionsPerWeek: 1},
		{GroupID: "G1", TeacherID: "T1", Title: "C", DurationMinutes: 300, SessionsPerWeek: 1},
	})
	for _, out := range outcomes {
		assert.Equal(t, models.RequirementBlocked, out.State)
	}
	assert.Equal(t, []string{"group G404 not found"}, outcomes[0].Reasons)
	assert.Equal(t, []string{"no room can hold group G1 (30 students)"}, outcomes[1].Reasons)
}

func TestGeneratorPartialWhenTeacherBlocked(t *testing.T) {
	g := newTestGenerator(nil, sampleRooms(), []models.Group{{ID: "G1", Size: 30}},
		WithBlocks([]models.AvailabilityBlock{{TeacherID: "T1", StartDate: monday.AddDate(0, 0, 1), EndDate: monday.AddDate(0, 0, 1)}}))

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "A", DurationMinutes: 60, SessionsPerWeek: 3},
	})
	out := outcomes[0]
	assert.Equal(t, models.RequirementPartiallyScheduled, out.State)
	assert.Len(t, out.Sessions, 2)
	assert.Equal(t, []string{"occurrence 2: teacher T1 is unavailable on 2025-01-07"}, out.Reasons)
	assert.Equal(t, 120, g.WeeklyLoad("T1"))
}

func TestGeneratorUnscheduledWhenNothingFits(t *testing.T) {
	var busy []models.Occupation
	for _, slot := range DefaultSlots {
		busy = append(busy, occupation("x"+slot.Start, slot.Start, slot.End, "R1", "T9", ""))
	}
	g := newTestGenerator(busy, []models.Room{{ID: "R1", Capacity: 40}}, []models.Group{{ID: "G1", Size: 30}})

	outcomes := g.Run(monday, []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "A", DurationMinutes: 90, SessionsPerWeek: 1},
	})
	assert.Equal(t, models.RequirementUnscheduled, outcomes[0].State)
	assert.Equal(t, []string{"occurrence 1: no free slot and room on 2025-01-06"}, outcomes[0].Reasons)
}

func TestGeneratorNeverProducesUnsafeSchedule(t *testing.T) {
	rooms := []models.Room{{ID: "R1", Capacity: 40}, {ID: "R2", Capacity: 60}}
	groups := []models.Group{{ID: "G1", Size: 30}, {ID: "G2", Size: 50}, {ID: "G3", Size: 20}}
	reqs := []models.CourseRequirement{
		{GroupID: "G1", TeacherID: "T1", Title: "A", DurationMinutes: 90, SessionsPerWeek: 3},
		{GroupID: "G2", TeacherID: "T1", Title: "B", DurationMinutes: 120, SessionsPerWeek: 2},
		{GroupID: "G3", TeacherID: "T2", Title: "C", DurationMinutes: 60, SessionsPerWeek: 5},
		{GroupID: "G1", TeacherID: "T2", Title: "D", DurationMinutes: 90, SessionsPerWeek: 2},
		{GroupID: "G2", TeacherID: "T3", Title: "E", DurationMinutes: 180, SessionsPerWeek: 2},
	}
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}

	for _, order := range orders {
		g := newTestGenerator(nil, rooms, groups)
		ordered := make([]models.CourseRequirement, 0, len(order))
		for _, i := range order {
			ordered = append(ordered, reqs[i])
		}
		var placed []models.Session
		for _, out := range g.Run(monday, ordered) {
			placed = append(placed, out.Sessions...)
		}
		assertSafe(t, placed, 10)
	}
}

func assertSafe(t *testing.T, sessions []models.Session, pause int) {
	t.Helper()
	for i := range sessions {
		for j := i + 1; j < len(sessions); j++ {
			a, b := sessions[i], sessions[j]
			if !a.Date.Equal(b.Date) {
				continue
			}
			shared := a.RoomID == b.RoomID || a.TeacherID == b.TeacherID || a.GroupID == b.GroupID
			if shared {
				assert.False(t, OverlapsWithPause(a.StartTime, a.EndTime, b.StartTime, b.EndTime, pause),
					"%s and %s collide", a.ID, b.ID)
			}
		}
	}
}

func TestNextMonday(t *testing.T) {
	wednesday := time.Date(2025, time.January, 8, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC), NextMonday(wednesday))

	mondayNoon := time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC), NextMonday(mondayNoon))

	sunday := time.Date(2025, time.January, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC), NextMonday(sunday))
}

func TestWeekdaysSkipWeekend(t *testing.T) {
	saturday := time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)
	days := Weekdays(saturday, 3)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-01-13", models.DateKey(days[0]))
	assert.Equal(t, "2025-01-15", models.DateKey(days[2]))

	thursday := time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)
	keys := []string{}
	for _, day := range Weekdays(thursday, 5) {
		keys = append(keys, models.DateKey(day))
	}
	assert.Equal(t, []string{"2025-01-09", "2025-01-10", "2025-01-13", "2025-01-14", "2025-01-15"}, keys)
	assert.Empty(t, Weekdays(thursday, 0))
}
