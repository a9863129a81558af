package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// GroupRepository reads student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns all groups.
func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, size, program, created_at FROM groups ORDER BY name`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, name, size, program, created_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}
