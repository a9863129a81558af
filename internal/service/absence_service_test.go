package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

func newAbsenceService(f *fixture) *AbsenceService {
	return NewAbsenceService(sessionStub{store: f.store}, blockStub{store: f.store}, teacherStub(sampleTeachers()), f.notifier, f.db, f.locker, nil, nil, nil)
}

func TestAbsenceServiceDeclareCascades(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "08:00", "09:30", "B01", "T1", "G1")
	f.addSession("S2", "2025-01-06", "09:40", "11:10", "B02", "T1", "G2")
	f.addSession("S3", "2025-01-07", "08:00", "09:30", "B01", "T1", "G1")
	f.addSession("S4", "2025-01-07", "08:00", "09:30", "B02", "T2", "G2")
	f.addSession("S5", "2025-01-09", "08:00", "09:30", "B01", "T1", "G1")
	svc := newAbsenceService(f)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T1", StartDate: "2025-01-06", EndDate: "2025-01-07", Reason: "conference"})
	require.NoError(t, err)

	assert.Len(t, result.CancelledSessions, 3)
	assert.Equal(t, []string{"G1", "G2"}, result.AffectedGroups)
	assert.Equal(t, 3, result.NotificationsSent)
	assert.Zero(t, result.NotificationsFailed)

	remaining, err := sessionStub{store: f.store}.ListByTeacherInRange(context.Background(), nil, "T1", monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Len(t, f.store.sessions, 2)

	cancellations := f.notifier.byCategory(models.CategoryAbsenceCancellation)
	require.Len(t, cancellations, 2)
	assert.Equal(t, "G1", cancellations[0].TargetID)
	assert.Contains(t, cancellations[0].Body, "Course S1")
	assert.Contains(t, cancellations[0].Body, "Course S3")
	summaries := f.notifier.byCategory(models.CategoryAbsenceSummary)
	require.Len(t, summaries, 1)
	assert.Equal(t, models.AudienceAdmins, summaries[0].Audience)
	assert.Contains(t, summaries[0].Body, "3 session(s) cancelled")

	require.Len(t, f.store.blocks, 1)
	assert.Equal(t, "conference", *f.store.blocks[0].Reason)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAbsenceServiceDeclareKeepsMakeupsAndReservations(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "08:00", "09:30", "B01", "T1", "G1")
	group := "G2"
	f.store.makeups = append(f.store.makeups, models.MakeupSession{ID: "M1", TeacherID: "T1", GroupID: "G2", RoomID: "B02", Date: monday, StartTime: "14:00", EndTime: "15:30", Status: models.MakeupConfirmed})
	f.store.reservations = append(f.store.reservations, models.Reservation{ID: "R1", TeacherID: "T1", RoomID: "B01", GroupID: &group, Date: monday, StartTime: "16:00", EndTime: "17:00", Status: models.ReservationApproved})
	svc := newAbsenceService(f)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T1", StartDate: "2025-01-06", EndDate: "2025-01-06"})
	require.NoError(t, err)

	assert.Len(t, result.CancelledSessions, 1)
	assert.Empty(t, f.store.sessions)
	require.Len(t, f.store.makeups, 1)
	assert.Equal(t, models.MakeupConfirmed, f.store.makeups[0].Status)
	require.Len(t, f.store.reservations, 1)
	assert.Equal(t, models.ReservationApproved, f.store.reservations[0].Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAbsenceServiceDeclareWithoutSessionsStillBlocks(t *testing.T) {
	f := newFixture(t)
	svc := newAbsenceService(f)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T2", StartDate: "2025-01-06", EndDate: "2025-01-06"})
	require.NoError(t, err)
	assert.Empty(t, result.CancelledSessions)
	assert.Empty(t, result.AffectedGroups)
	assert.Nil(t, result.Block.Reason)
	require.Len(t, f.store.blocks, 1)
	assert.Len(t, f.notifier.events, 1)

	// the block now keeps the teacher off that day
	sessions := newSessionService(f)
	req := sessionRequest("09:00", "10:30")
	req.TeacherID = "T2"
	res, err := sessions.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Errors, "teacher T2 declared unavailability on 2025-01-06")
}

func TestAbsenceServiceCountsNotificationFailures(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "08:00", "09:30", "B01", "T1", "G1")
	f.addSession("S2", "2025-01-06", "09:40", "11:10", "B02", "T1", "G2")
	f.notifier.fail = map[string]bool{"G2": true}
	svc := newAbsenceService(f)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T1", StartDate: "2025-01-06", EndDate: "2025-01-06"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NotificationsSent)
	assert.Equal(t, 1, result.NotificationsFailed)
	assert.Empty(t, f.store.sessions)
}

func TestAbsenceServiceDeclareValidation(t *testing.T) {
	f := newFixture(t)
	svc := newAbsenceService(f)

	_, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T1", StartDate: "2025-01-07", EndDate: "2025-01-06"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T404", StartDate: "2025-01-06", EndDate: "2025-01-06"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAbsenceServiceBlocks(t *testing.T) {
	f := newFixture(t)
	svc := newAbsenceService(f)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := svc.Declare(context.Background(), models.DeclareAbsenceRequest{TeacherID: "T1", StartDate: "2025-01-06", EndDate: "2025-01-10"})
	require.NoError(t, err)

	blocks, err := svc.ListBlocks(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	require.NoError(t, svc.DeleteBlock(context.Background(), result.Block.ID))
	err = svc.DeleteBlock(context.Background(), result.Block.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
