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

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const makeupColumns = `id, teacher_id, group_id, room_id, date, start_time, end_time, reason, status, rejection_reason, original_session_id, created_at`

// MakeupRepository persists make-up sessions. Confirmed rows are unique on
// (room_id, date, start_time).
type MakeupRepository struct {
	db *sqlx.DB
}

// NewMakeupRepository constructs the repository.
func NewMakeupRepository(db *sqlx.DB) *MakeupRepository {
	return &MakeupRepository{db: db}
}

func (r *MakeupRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a make-up session. A unique index hit wraps
// ErrUniqueViolation.
func (r *MakeupRepository) Create(ctx context.Context, exec sqlx.ExtContext, makeup *models.MakeupSession) error {
	if makeup.ID == "" {
		makeup.ID = uuid.NewString()
	}
	if makeup.CreatedAt.IsZero() {
		makeup.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO makeup_sessions (` + makeupColumns + `)
VALUES (:id, :teacher_id, :group_id, :room_id, :date, :start_time, :end_time, :reason, :status, :rejection_reason, :original_session_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, makeup); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create makeup session: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("create makeup session: %w", err)
	}
	return nil
}

// FindByID returns a make-up session by id.
func (r *MakeupRepository) FindByID(ctx context.Context, id string) (*models.MakeupSession, error) {
	const query = `SELECT ` + makeupColumns + ` FROM makeup_sessions WHERE id = $1`
	var makeup models.MakeupSession
	if err := r.db.GetContext(ctx, &makeup, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find makeup session: %w", err)
	}
	return &makeup, nil
}

// List returns make-up sessions by date.
func (r *MakeupRepository) List(ctx context.Context, filter models.MakeupFilter) ([]models.MakeupSession, error) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + makeupColumns + ` FROM makeup_sessions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date, start_time`

	var makeups []models.MakeupSession
	if err := r.db.SelectContext(ctx, &makeups, query, args...); err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}
	return makeups, nil
}

// UpdateStatus moves a make-up session from one status to another,
// returning ErrStaleStatus when it is not in the expected status.
func (r *MakeupRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.MakeupStatus) error {
	const query = `UPDATE makeup_sessions SET status = $3 WHERE id = $1 AND status = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, id, from, to)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update makeup status: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("update makeup status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update makeup status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}
