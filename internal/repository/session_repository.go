package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const sessionColumns = `id, title, kind, date, start_time, end_time, room_id, teacher_id, group_id, origin, created_at`

// SessionRepository persists committed sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns sessions matching the filter ordered by date and start.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var conditions []string
	var args []interface{}
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.TeacherID != "" {
		add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.GroupID != "" {
		add("group_id = $%d", filter.GroupID)
	}
	if filter.RoomID != "" {
		add("room_id = $%d", filter.RoomID)
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date, start_time`

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// ListByTeacherInRange returns the teacher's sessions whose date falls in
// [from, to], locking the rows when run inside a transaction.
func (r *SessionRepository) ListByTeacherInRange(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE teacher_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date, start_time FOR UPDATE`
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list teacher sessions in range: %w", err)
	}
	return sessions, nil
}

// Create inserts a session. A unique index hit wraps ErrUniqueViolation.
func (r *SessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Origin == "" {
		session.Origin = models.SessionOriginManual
	}
	const query = `INSERT INTO sessions (` + sessionColumns + `)
VALUES (:id, :title, :kind, :date, :start_time, :end_time, :room_id, :teacher_id, :group_id, :origin, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create session: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateBatch inserts sessions one by one on the same executor.
func (r *SessionRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error {
	for i := range sessions {
		if err := r.Create(ctx, exec, &sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByIDs removes sessions and returns the number deleted.
func (r *SessionRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM sessions WHERE id = ANY($1)`
	res, err := r.exec(exec).ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes one session, returning sql.ErrNoRows when it is missing.
func (r *SessionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	affected, err := r.DeleteByIDs(ctx, exec, []string{id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
