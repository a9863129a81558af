package models

import "time"

// SourceKind tags where an occupation comes from.
type SourceKind string

const (
	SourceSession     SourceKind = "session"
	SourceReservation SourceKind = "reservation"
	SourceMakeup      SourceKind = "make-up"
)

// Occupation is any committed use of a room, teacher and group for an
// interval: a session, an approved reservation or a confirmed make-up
// session. It is derived from those rows and never stored.
type Occupation struct {
	ID        string     `db:"id" json:"id"`
	Kind      SourceKind `db:"source_kind" json:"source_kind"`
	Date      time.Time  `db:"date" json:"date"`
	Start     string     `db:"start_time" json:"start_time"`
	End       string     `db:"end_time" json:"end_time"`
	RoomID    string     `db:"room_id" json:"room_id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	GroupID   *string    `db:"group_id" json:"group_id,omitempty"`
	Label     string     `db:"label" json:"label"`
}

// OccupationFilter bounds the occupation query by date and resources. Empty
// resource ids are ignored; when several are set any match is returned.
type OccupationFilter struct {
	From       time.Time
	To         time.Time
	RoomIDs    []string
	TeacherIDs []string
	GroupIDs   []string
}

// DateLayout is the calendar-day layout used in requests and comparisons.
const DateLayout = "2006-01-02"

// DateKey renders the calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar day in DateLayout.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
