package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

func newTestValidator(occs []models.Occupation, opts ...ValidatorOption) *ConstraintValidator {
	return NewConstraintValidator(NewConflictDetector(occs, 10), NewSlotTemplate(nil), DefaultLimits(), opts...)
}

func TestValidateSessionCapacity(t *testing.T) {
	v := newTestValidator(nil)
	room := &models.Room{ID: "R01", Capacity: 35}
	group := &models.Group{ID: "G1", Size: 40}

	res := v.ValidateSession(Candidate{Date: monday, Start: "09:00", End: "10:30", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, group)
	assert.False(t, res.OK)
	assert.Equal(t, []string{"room capacity (35) is insufficient for group (40 students)"}, res.Errors)
}

func TestValidateSessionInvalidRangeShortCircuits(t *testing.T) {
	v := newTestValidator(nil)
	res := v.ValidateSession(Candidate{Date: monday, Start: "10:00", End: "09:00"}, nil, nil)
	assert.False(t, res.OK)
	assert.Equal(t, []string{"invalid time range 10:00-09:00"}, res.Errors)
}

func TestValidateSessionAccumulatesInOrder(t *testing.T) {
	v := newTestValidator([]models.Occupation{
		occupation("s1", "07:00", "07:30", "R01", "T9", ""),
	})
	res := v.ValidateSession(Candidate{Date: monday, Start: "07:30", End: "07:50", RoomID: "R01", GroupID: "G404"}, &models.Room{ID: "R01", Capacity: 10}, nil)

	require.False(t, res.OK)
	assert.Equal(t, []string{
		"session starts at 07:30, before opening time 08:00",
		"session lasts 20 min, shorter than the minimum of 30 min",
		"room R01 is occupied or within the 10 min pause around 2025-01-06 07:00-07:30",
		"teacher is required",
		"group G404 not found",
	}, res.Errors)
	require.Len(t, res.Conflicts, 1)
}

func TestValidateSessionHoursAndMaxDuration(t *testing.T) {
	v := newTestValidator(nil)
	room := &models.Room{ID: "R01", Capacity: 40}
	group := &models.Group{ID: "G1", Size: 20}

	res := v.ValidateSession(Candidate{Date: monday, Start: "14:00", End: "19:00", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, group)
	assert.Equal(t, []string{
		"session ends at 19:00, after closing time 18:50",
		"session lasts 300 min, longer than the maximum of 240 min",
	}, res.Errors)

	res = v.ValidateSession(Candidate{Date: monday, Start: "08:00", End: "18:50", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, group)
	assert.NotContains(t, res.Errors, "session ends at 18:50, after closing time 18:50")
}

func TestValidateSessionDailyCapAndBlocks(t *testing.T) {
	busy := []models.Occupation{
		occupation("a", "08:00", "11:00", "R02", "T1", ""),
		occupation("b", "11:20", "14:20", "R03", "T1", ""),
	}
	v := newTestValidator(busy,
		WithTeachers([]models.Teacher{{ID: "T1", DailyCapMinutes: 420}}),
		WithBlocks([]models.AvailabilityBlock{{TeacherID: "T2", StartDate: monday, EndDate: monday.AddDate(0, 0, 2)}}),
	)
	room := &models.Room{ID: "R01", Capacity: 40}
	group := &models.Group{ID: "G1", Size: 20}

	res := v.ValidateSession(Candidate{Date: monday, Start: "15:00", End: "16:30", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, group)
	assert.Equal(t, []string{"teacher T1 would teach 450 min on 2025-01-06, above the daily cap of 420 min"}, res.Errors)

	res = v.ValidateSession(Candidate{Date: monday.AddDate(0, 0, 1), Start: "09:00", End: "10:30", RoomID: "R01", TeacherID: "T2", GroupID: "G1"}, room, group)
	assert.Equal(t, []string{"teacher T2 declared unavailability on 2025-01-07"}, res.Errors)
	assert.False(t, v.IsBlocked("T2", monday.AddDate(0, 0, 3)))
	assert.Equal(t, DefaultLimits().DailyCapMinutes, v.DailyCap("T2"))
}

func TestDailyCapAppliesToEveryOccupationKind(t *testing.T) {
	v := newTestValidator(
		[]models.Occupation{occupation("a", "08:00", "09:30", "R02", "T3", "")},
		WithTeachers([]models.Teacher{{ID: "T3", DailyCapMinutes: 120}}),
	)
	room := &models.Room{ID: "R01", Capacity: 40}
	group := &models.Group{ID: "G1", Size: 20}
	candidate := Candidate{Date: monday, Start: "10:00", End: "11:30", RoomID: "R01", TeacherID: "T3", GroupID: "G1"}
	want := []string{"teacher T3 would teach 180 min on 2025-01-06, above the daily cap of 120 min"}

	assert.Equal(t, want, v.ValidateSession(candidate, room, group).Errors)
	assert.Equal(t, want, v.ValidateMakeup(candidate, room, group).Errors)

	res := v.ValidateReservation(candidate, room, group, false)
	assert.False(t, res.OK)
	assert.Equal(t, want, res.Errors)

	candidate.End = "10:30"
	assert.True(t, v.ValidateMakeup(candidate, room, group).OK)
}

func TestValidateReservationNotice(t *testing.T) {
	now := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)
	v := newTestValidator(nil, WithClock(func() time.Time { return now }))
	room := &models.Room{ID: "R01", Capacity: 30}

	res := v.ValidateReservation(Candidate{Date: monday, Start: "09:00", End: "10:00", RoomID: "R01", TeacherID: "T1"}, room, nil, true)
	assert.False(t, res.OK)
	assert.Equal(t, []string{"reservations require 2h notice, this one starts in 1h"}, res.Errors)

	res = v.ValidateReservation(Candidate{Date: monday, Start: "10:00", End: "11:00", RoomID: "R01", TeacherID: "T1"}, room, nil, true)
	assert.True(t, res.OK)
	assert.Empty(t, res.Errors)

	res = v.ValidateReservation(Candidate{Date: monday, Start: "09:00", End: "10:00", RoomID: "R01", TeacherID: "T1"}, room, nil, false)
	assert.True(t, res.OK)
}

func TestValidateReservationCapacityOnlyWithGroup(t *testing.T) {
	now := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	v := newTestValidator([]models.Occupation{
		occupation("s1", "09:00", "10:30", "R01", "T2", "G2"),
	}, WithClock(func() time.Time { return now }))
	room := &models.Room{ID: "R01", Capacity: 30}

	res := v.ValidateReservation(Candidate{Date: monday, Start: "10:00", End: "11:00", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, &models.Group{ID: "G1", Size: 45}, true)
	assert.Equal(t, []string{
		"room capacity (30) is insufficient for group (45 students)",
		"room R01 is occupied or within the 10 min pause around 2025-01-06 09:00-10:30",
	}, res.Errors)
}

func TestValidateMakeupSkipsOpeningHours(t *testing.T) {
	v := newTestValidator(nil)
	room := &models.Room{ID: "R01", Capacity: 30}
	group := &models.Group{ID: "G1", Size: 25}

	res := v.ValidateMakeup(Candidate{Date: monday, Start: "19:00", End: "20:00", RoomID: "R01", TeacherID: "T1", GroupID: "G1"}, room, group)
	assert.True(t, res.OK)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "2h", HumanDuration(2*time.Hour))
	assert.Equal(t, "45 min", HumanDuration(45*time.Minute))
	assert.Equal(t, "1h30", HumanDuration(90*time.Minute))
}
