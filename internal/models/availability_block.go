package models

import "time"

// AvailabilityBlock is a declared period during which a teacher cannot be
// assigned any occupation. Both dates are inclusive.
type AvailabilityBlock struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the block includes the calendar day of date.
func (b AvailabilityBlock) Covers(date time.Time) bool {
	day := DateKey(date)
	return day >= DateKey(b.StartDate) && day <= DateKey(b.EndDate)
}

// DeclareAbsenceRequest is the payload of an absence declaration.
type DeclareAbsenceRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"`
}

// AbsenceResult summarises an absence cascade.
type AbsenceResult struct {
	Block               AvailabilityBlock `json:"block"`
	CancelledSessions   []Session         `json:"cancelled_sessions"`
	AffectedGroups      []string          `json:"affected_groups"`
	NotificationsSent   int               `json:"notifications_sent"`
	NotificationsFailed int               `json:"notifications_failed"`
}
