package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

var sessionRowColumns = []string{"id", "title", "kind", "date", "start_time", "end_time", "room_id", "teacher_id", "group_id", "origin", "created_at"}

func TestSessionListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sessionRowColumns).
		AddRow("s1", "Algebra", "lecture", day, "09:00", "10:30", "B01", "T1", "G1", "manual", day)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE teacher_id = $1 AND date >= $2 ORDER BY date, start_time")).
		WithArgs("T1", day).
		WillReturnRows(rows)

	sessions, err := repo.List(context.Background(), models.SessionFilter{TeacherID: "T1", From: &day})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "B01", sessions[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), nil, &models.Session{Title: "A", Date: time.Now(), StartTime: "09:00", EndTime: "10:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreateDefaultsOrigin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{Title: "A", Date: time.Now(), StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, repo.Create(context.Background(), nil, session))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionOriginManual, session.Origin)
}

func TestSessionDeleteByIDsInsideTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	deleted, err := repo.DeleteByIDs(context.Background(), tx, []string{"s1", "s2"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionDeleteByIDsEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	deleted, err := repo.DeleteByIDs(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
