package models

import "time"

// ReservationStatus tracks the review lifecycle of a room request.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationApproved ReservationStatus = "approved"
	ReservationRejected ReservationStatus = "rejected"
)

// Reservation is an ad-hoc room request submitted by a teacher. Only
// approved reservations occupy the room.
type Reservation struct {
	ID              string            `db:"id" json:"id"`
	TeacherID       string            `db:"teacher_id" json:"teacher_id"`
	RoomID          string            `db:"room_id" json:"room_id"`
	GroupID         *string           `db:"group_id" json:"group_id,omitempty"`
	Date            time.Time         `db:"date" json:"date"`
	StartTime       string            `db:"start_time" json:"start_time"`
	EndTime         string            `db:"end_time" json:"end_time"`
	Status          ReservationStatus `db:"status" json:"status"`
	Reason          string            `db:"reason" json:"reason"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}

// Occupation projects the reservation into the uniform conflict-check shape.
func (r Reservation) Occupation() Occupation {
	return Occupation{
		ID:        r.ID,
		Kind:      SourceReservation,
		Date:      r.Date,
		Start:     r.StartTime,
		End:       r.EndTime,
		RoomID:    r.RoomID,
		TeacherID: r.TeacherID,
		GroupID:   r.GroupID,
		Label:     r.Reason,
	}
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	TeacherID string
	Status    ReservationStatus
}

// CreateReservationRequest is the payload for a new room request.
type CreateReservationRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"required"`
	GroupID   string `json:"group_id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// RejectReservationRequest carries the mandatory rejection reason.
type RejectReservationRequest struct {
	Reason string `json:"reason" validate:"required"`
}
