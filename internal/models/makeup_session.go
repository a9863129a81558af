package models

import "time"

// MakeupStatus tracks a make-up session. Only confirmed rows occupy rooms.
type MakeupStatus string

const (
	MakeupPending   MakeupStatus = "pending"
	MakeupConfirmed MakeupStatus = "confirmed"
	MakeupCancelled MakeupStatus = "cancelled"
	MakeupRejected  MakeupStatus = "rejected"
)

// MakeupSession replaces a cancelled session.
type MakeupSession struct {
	ID                string       `db:"id" json:"id"`
	TeacherID         string       `db:"teacher_id" json:"teacher_id"`
	GroupID           string       `db:"group_id" json:"group_id"`
	RoomID            string       `db:"room_id" json:"room_id"`
	Date              time.Time    `db:"date" json:"date"`
	StartTime         string       `db:"start_time" json:"start_time"`
	EndTime           string       `db:"end_time" json:"end_time"`
	Reason            string       `db:"reason" json:"reason"`
	Status            MakeupStatus `db:"status" json:"status"`
	RejectionReason   *string      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	OriginalSessionID *string      `db:"original_session_id" json:"original_session_id,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// Occupation projects the make-up session into the uniform conflict-check
// shape.
func (m MakeupSession) Occupation() Occupation {
	group := m.GroupID
	return Occupation{
		ID:        m.ID,
		Kind:      SourceMakeup,
		Date:      m.Date,
		Start:     m.StartTime,
		End:       m.EndTime,
		RoomID:    m.RoomID,
		TeacherID: m.TeacherID,
		GroupID:   &group,
		Label:     m.Reason,
	}
}

// MakeupFilter narrows make-up listings.
type MakeupFilter struct {
	TeacherID string
	Status    MakeupStatus
}

// BookMakeupRequest is the payload for booking a make-up session.
type BookMakeupRequest struct {
	TeacherID         string `json:"teacher_id" validate:"required"`
	GroupID           string `json:"group_id" validate:"required"`
	RoomID            string `json:"room_id" validate:"required"`
	Date              string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime         string `json:"start_time" validate:"required"`
	EndTime           string `json:"end_time" validate:"required"`
	Reason            string `json:"reason"`
	OriginalSessionID string `json:"original_session_id"`
}
