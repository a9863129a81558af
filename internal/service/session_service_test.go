package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/repository"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

func newSessionService(f *fixture) *SessionService {
	return NewSessionService(sessionStub{store: f.store}, f.planner, f.rooms, f.db, f.locker, nil, nil, nil)
}

func sessionRequest(start, end string) models.CreateSessionRequest {
	return models.CreateSessionRequest{
		Title:     "Algorithms",
		Date:      "2025-01-06",
		StartTime: start,
		EndTime:   end,
		RoomID:    "B01",
		TeacherID: "T1",
		GroupID:   "G1",
	}
}

func TestSessionServiceEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	first, err := svc.Create(ctx, sessionRequest("09:00", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, models.SessionKindLecture, first.Kind)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = svc.Create(ctx, sessionRequest("10:35", "12:00"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErr.Code)
	require.NotEmpty(t, appErr.Details)
	assert.Contains(t, appErr.Details[0], "room B01 is occupied")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = svc.Create(ctx, sessionRequest("10:45", "12:15"))
	require.NoError(t, err)

	assert.Len(t, f.store.sessions, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSessionServiceCreateIgnoresExcludeID(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	first, err := svc.Create(ctx, sessionRequest("09:00", "10:30"))
	require.NoError(t, err)

	req := sessionRequest("09:15", "10:45")
	req.ExcludeID = first.ID

	res, err := svc.Validate(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.OK, "validate may preview an in-place edit")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = svc.Create(ctx, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, f.store.sessions, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSessionServiceValidateReportsCapacity(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)

	req := sessionRequest("09:00", "10:30")
	req.GroupID = "G4"
	res, err := svc.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Errors, "room capacity (40) is insufficient for group (110 students)")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSessionServiceValidateUnknownReferences(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)

	req := sessionRequest("09:00", "10:30")
	req.RoomID = "Z99"
	req.GroupID = "G99"
	res, err := svc.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Errors, "room Z99 not found")
	assert.Contains(t, res.Errors, "group G99 not found")
}

func TestSessionServiceRejectsBadPayload(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)

	req := sessionRequest("09:00", "10:30")
	req.Date = "06/01/2025"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceUniqueViolationBecomesValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(sessionStub{store: f.store, createErr: fmt.Errorf("create session: %w", repository.ErrUniqueViolation)}, f.planner, f.rooms, f.db, f.locker, nil, nil, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := svc.Create(context.Background(), sessionRequest("09:00", "10:30"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, []string{"slot already taken for this room, teacher or group"}, appErr.Details)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSessionServiceLockTimeout(t *testing.T) {
	f := newFixture(t)
	locker := lock.NewLocalLocker(20 * time.Millisecond)
	svc := NewSessionService(sessionStub{store: f.store}, f.planner, f.rooms, f.db, locker, nil, nil, nil)

	release, err := locker.Acquire(context.Background(), lock.Room("B01"))
	require.NoError(t, err)
	defer release()

	_, err = svc.Create(context.Background(), sessionRequest("09:00", "10:30"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLockTimeout.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.store.sessions)
}

func TestSessionServiceAvailability(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "09:00", "10:30", "B01", "T1", "G1")
	f.addSession("S2", "2025-01-06", "14:00", "15:30", "B02", "T2", "G2")
	svc := newSessionService(f)

	view, err := svc.Availability(context.Background(), AvailabilityRequest{Resource: scheduling.ResourceRoom, ID: "B01", Date: "2025-01-06"})
	require.NoError(t, err)
	require.Len(t, view.Occupations, 1)
	assert.Equal(t, "S1", view.Occupations[0].ID)
	assert.Equal(t, []scheduling.Interval{{Start: "08:00", End: "08:50"}, {Start: "10:40", End: "18:50"}}, view.FreeGaps)
	assert.Equal(t, scheduling.Interval{Start: "08:00", End: "18:50"}, view.OpeningHours)
}

func TestSessionServiceDelete(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "09:00", "10:30", "B01", "T1", "G1")
	svc := newSessionService(f)

	require.NoError(t, svc.Delete(context.Background(), "S1"))
	err := svc.Delete(context.Background(), "S1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
