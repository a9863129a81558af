package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// Room B01 holds 35, group G1 has 30 students, teacher T1 has the default
// daily cap. Each accepted booking is added to the detector before the next.
func TestBookingSequenceHonoursPause(t *testing.T) {
	room := &models.Room{ID: "B01", Capacity: 35, Kind: models.RoomKindClassroom}
	group := &models.Group{ID: "G1", Size: 30}
	v := NewConstraintValidator(NewConflictDetector(nil, DefaultPauseMinutes), NewSlotTemplate(nil), DefaultLimits(),
		WithTeachers([]models.Teacher{{ID: "T1", DailyCapMinutes: 480}}))

	book := func(id, start, end string) Result {
		c := Candidate{Date: monday, Start: start, End: end, RoomID: "B01", TeacherID: "T1", GroupID: "G1"}
		res := v.ValidateSession(c, room, group)
		if res.OK {
			v.Detector().Add(models.Session{
				ID: id, Date: monday, StartTime: start, EndTime: end, RoomID: "B01", TeacherID: "T1", GroupID: "G1",
			}.Occupation())
		}
		return res
	}

	first := book("s1", "09:00", "10:30")
	require.True(t, first.OK, first.Errors)

	second := book("s2", "10:35", "12:00")
	assert.False(t, second.OK)
	assert.Contains(t, second.Errors, "room B01 is occupied or within the 10 min pause around 2025-01-06 09:00-10:30")

	third := book("s3", "10:45", "12:15")
	assert.True(t, third.OK, third.Errors)
	assert.Len(t, v.Detector().Occupations(monday), 2)
}
