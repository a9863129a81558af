package models

import "time"

// DefaultDailyCapMinutes bounds a teacher's same-day teaching time when the
// teacher record does not override it.
const DefaultDailyCapMinutes = 480

// Teacher represents an instructor who can be assigned sessions.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Specialty       string    `db:"specialty" json:"specialty"`
	DailyCapMinutes int       `db:"daily_cap_minutes" json:"daily_cap_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// DailyCap returns the configured cap, falling back to the default.
func (t Teacher) DailyCap() int {
	if t.DailyCapMinutes <= 0 {
		return DefaultDailyCapMinutes
	}
	return t.DailyCapMinutes
}
