package models

import "time"

// Group is a cohort of students attending sessions together.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Size      int       `db:"size" json:"size"`
	Program   string    `db:"program" json:"program"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
