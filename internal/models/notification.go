package models

import "time"

// NotificationCategory classifies inbox messages.
type NotificationCategory string

const (
	CategoryAbsenceCancellation NotificationCategory = "absence-cancellation"
	CategoryAbsenceSummary      NotificationCategory = "absence-summary"
	CategoryMakeupConfirmed     NotificationCategory = "make-up-confirmed"
	CategoryReservationApproved NotificationCategory = "reservation-approved"
	CategoryReservationRejected NotificationCategory = "reservation-rejected"
)

// Audience selects who receives a NotificationEvent.
type Audience string

const (
	AudienceUser    Audience = "user"
	AudienceTeacher Audience = "teacher"
	AudienceGroup   Audience = "group"
	AudienceAdmins  Audience = "admins"
)

// Notification is a persisted inbox message.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Category  NotificationCategory `db:"category" json:"category"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Read      bool                 `db:"read" json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationEvent is produced by a workflow and dispatched after commit.
// TargetID is a user id, teacher id or group id depending on Audience.
type NotificationEvent struct {
	Category NotificationCategory `json:"category"`
	Audience Audience             `json:"audience"`
	TargetID string               `json:"target_id,omitempty"`
	Title    string               `json:"title"`
	Body     string               `json:"body"`
}

// DispatchReport counts delivered and failed notifications.
type DispatchReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Add merges another report into r.
func (r *DispatchReport) Add(other DispatchReport) {
	r.Sent += other.Sent
	r.Failed += other.Failed
}
