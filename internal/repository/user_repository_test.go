package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "teacher_id", "group_id", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "teacher@example.com", "hash", "Teacher", string(models.RoleTeacher), "T1", nil, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("teacher@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "teacher@example.com")
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", user.Email)
	require.NotNil(t, user.TeacherID)
	assert.Equal(t, "T1", *user.TeacherID)
	assert.Nil(t, user.GroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFoundPassesThrough(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListActiveStudentsByGroup(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("s1", "a@example.com", "hash", "A", string(models.RoleStudent), nil, "G1", true, nil, now, now).
		AddRow("s2", "b@example.com", "hash", "B", string(models.RoleStudent), nil, "G1", true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE group_id = $1 AND role = $2 AND active = TRUE")).
		WithArgs("G1", models.RoleStudent).
		WillReturnRows(rows)

	users, err := repo.ListActiveStudentsByGroup(context.Background(), "G1")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u1", TokenHash: "hash", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("rt1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "rt1", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
