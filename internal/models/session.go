package models

import "time"

// SessionKind enumerates teaching formats.
type SessionKind string

const (
	SessionKindLecture  SessionKind = "lecture"
	SessionKindTutorial SessionKind = "tutorial"
	SessionKindLab      SessionKind = "lab"
	SessionKindExam     SessionKind = "exam"
	SessionKindMakeup   SessionKind = "make-up"
	SessionKindDefense  SessionKind = "defense"
)

// SessionOrigin records how a session was created.
type SessionOrigin string

const (
	SessionOriginManual    SessionOrigin = "manual"
	SessionOriginGenerated SessionOrigin = "generated"
)

// Session is a committed teaching session.
type Session struct {
	ID        string        `db:"id" json:"id"`
	Title     string        `db:"title" json:"title"`
	Kind      SessionKind   `db:"kind" json:"kind"`
	Date      time.Time     `db:"date" json:"date"`
	StartTime string        `db:"start_time" json:"start_time"`
	EndTime   string        `db:"end_time" json:"end_time"`
	RoomID    string        `db:"room_id" json:"room_id"`
	TeacherID string        `db:"teacher_id" json:"teacher_id"`
	GroupID   string        `db:"group_id" json:"group_id"`
	Origin    SessionOrigin `db:"origin" json:"origin"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Occupation projects the session into the uniform conflict-check shape.
func (s Session) Occupation() Occupation {
	group := s.GroupID
	return Occupation{
		ID:        s.ID,
		Kind:      SourceSession,
		Date:      s.Date,
		Start:     s.StartTime,
		End:       s.EndTime,
		RoomID:    s.RoomID,
		TeacherID: s.TeacherID,
		GroupID:   &group,
		Label:     s.Title,
	}
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	TeacherID string
	GroupID   string
	RoomID    string
	From      *time.Time
	To        *time.Time
}

// CreateSessionRequest is the payload for manual session creation and
// validation.
type CreateSessionRequest struct {
	Title     string      `json:"title" validate:"required"`
	Kind      SessionKind `json:"kind" validate:"omitempty,oneof=lecture tutorial lab exam make-up defense"`
	Date      string      `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string      `json:"start_time" validate:"required"`
	EndTime   string      `json:"end_time" validate:"required"`
	RoomID    string      `json:"room_id"`
	TeacherID string      `json:"teacher_id"`
	GroupID   string      `json:"group_id"`
	ExcludeID string      `json:"exclude_id,omitempty"`
}
