package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// occupationUnion is the single source of committed occupations: sessions,
// approved reservations and confirmed make-up sessions.
const occupationUnion = `
SELECT id, 'session' AS source_kind, date, start_time, end_time, room_id, teacher_id, group_id, title AS label
FROM sessions
UNION ALL
SELECT id, 'reservation' AS source_kind, date, start_time, end_time, room_id, teacher_id, group_id, reason AS label
FROM reservations WHERE status = 'approved'
UNION ALL
SELECT id, 'make-up' AS source_kind, date, start_time, end_time, room_id, teacher_id, group_id, reason AS label
FROM makeup_sessions WHERE status = 'confirmed'`

// OccupationRepository derives occupations from the rows that hold them.
type OccupationRepository struct {
	db *sqlx.DB
}

// NewOccupationRepository constructs an occupation repository.
func NewOccupationRepository(db *sqlx.DB) *OccupationRepository {
	return &OccupationRepository{db: db}
}

func (r *OccupationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns occupations between From and To (inclusive). When resource
// ids are given, an occupation is kept if it uses any of them.
func (r *OccupationRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.OccupationFilter) ([]models.Occupation, error) {
	args := []interface{}{filter.From, filter.To}
	var resources []string
	addResource := func(column string, ids []string) {
		if len(ids) == 0 {
			return
		}
		args = append(args, pq.Array(ids))
		resources = append(resources, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	addResource("room_id", filter.RoomIDs)
	addResource("teacher_id", filter.TeacherIDs)
	addResource("group_id", filter.GroupIDs)

	query := `SELECT id, source_kind, date, start_time, end_time, room_id, teacher_id, group_id, label FROM (` +
		occupationUnion + `
) occ WHERE date BETWEEN $1 AND $2`
	if len(resources) > 0 {
		query += ` AND (` + strings.Join(resources, " OR ") + `)`
	}
	query += ` ORDER BY date, start_time`

	var occupations []models.Occupation
	if err := sqlx.SelectContext(ctx, r.exec(exec), &occupations, query, args...); err != nil {
		return nil, fmt.Errorf("list occupations: %w", err)
	}
	return occupations, nil
}
