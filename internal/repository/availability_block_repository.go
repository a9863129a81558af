package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const blockColumns = `id, teacher_id, start_date, end_date, reason, created_at`

// AvailabilityBlockRepository persists declared teacher absences.
type AvailabilityBlockRepository struct {
	db *sqlx.DB
}

// NewAvailabilityBlockRepository constructs the repository.
func NewAvailabilityBlockRepository(db *sqlx.DB) *AvailabilityBlockRepository {
	return &AvailabilityBlockRepository{db: db}
}

func (r *AvailabilityBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a block.
func (r *AvailabilityBlockRepository) Create(ctx context.Context, exec sqlx.ExtContext, block *models.AvailabilityBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_blocks (` + blockColumns + `) VALUES (:id, :teacher_id, :start_date, :end_date, :reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, block); err != nil {
		return fmt.Errorf("create availability block: %w", err)
	}
	return nil
}

// FindByID returns a block by id.
func (r *AvailabilityBlockRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	const query = `SELECT ` + blockColumns + ` FROM availability_blocks WHERE id = $1`
	var block models.AvailabilityBlock
	if err := r.db.GetContext(ctx, &block, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find availability block: %w", err)
	}
	return &block, nil
}

// ListByTeacher returns a teacher's blocks, most recent first. An empty
// teacher id lists every block.
func (r *AvailabilityBlockRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM availability_blocks`
	var args []interface{}
	if teacherID != "" {
		query += ` WHERE teacher_id = $1`
		args = append(args, teacherID)
	}
	query += ` ORDER BY start_date DESC`
	var blocks []models.AvailabilityBlock
	if err := r.db.SelectContext(ctx, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}
	return blocks, nil
}

// ListOverlapping returns blocks intersecting [from, to].
func (r *AvailabilityBlockRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error) {
	const query = `SELECT ` + blockColumns + ` FROM availability_blocks WHERE start_date <= $2 AND end_date >= $1`
	var blocks []models.AvailabilityBlock
	if err := r.db.SelectContext(ctx, &blocks, query, from, to); err != nil {
		return nil, fmt.Errorf("list overlapping availability blocks: %w", err)
	}
	return blocks, nil
}

// Delete removes a block.
func (r *AvailabilityBlockRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM availability_blocks WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete availability block: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
