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

const reservationColumns = `id, teacher_id, room_id, group_id, date, start_time, end_time, status, reason, rejection_reason, reviewed_by, reviewed_at, created_at`

// ReservationRepository persists room requests.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a reservation.
func (r *ReservationRepository) Create(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	if reservation.Status == "" {
		reservation.Status = models.ReservationPending
	}
	const query = `INSERT INTO reservations (` + reservationColumns + `)
VALUES (:id, :teacher_id, :room_id, :group_id, :date, :start_time, :end_time, :status, :reason, :rejection_reason, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// FindByID returns a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &reservation, nil
}

// List returns reservations, newest first.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
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
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Review moves a pending reservation to approved or rejected. It returns
// ErrStaleStatus when the reservation is no longer pending and wraps
// ErrUniqueViolation when the approved slot is already taken.
func (r *ReservationRepository) Review(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error {
	const query = `UPDATE reservations
SET status = :status, rejection_reason = :rejection_reason, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at
WHERE id = :id AND status = 'pending'`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, reservation)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review reservation: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("review reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review reservation rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}
