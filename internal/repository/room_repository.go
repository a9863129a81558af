package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const roomColumns = `id, name, capacity, kind, equipment, created_at`

// RoomRepository reads rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns every room ordered by name.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID returns a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}
