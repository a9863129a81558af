package models

import "time"

// RequirementState is the generator state of one course requirement.
type RequirementState string

const (
	RequirementUnscheduled        RequirementState = "unscheduled"
	RequirementPartiallyScheduled RequirementState = "partially-scheduled"
	RequirementScheduled          RequirementState = "scheduled"
	RequirementBlocked            RequirementState = "blocked"
)

// CourseRequirement asks the generator for SessionsPerWeek sessions of
// DurationMinutes each for a group and teacher.
type CourseRequirement struct {
	GroupID         string      `json:"group_id" validate:"required"`
	TeacherID       string      `json:"teacher_id" validate:"required"`
	Title           string      `json:"title" validate:"required"`
	Kind            SessionKind `json:"kind" validate:"omitempty,oneof=lecture tutorial lab exam make-up defense"`
	DurationMinutes int         `json:"duration_minutes" validate:"required,min=1"`
	SessionsPerWeek int         `json:"sessions_per_week" validate:"required,min=1"`
}

// RequirementOutcome reports what the generator did with one requirement.
type RequirementOutcome struct {
	Requirement CourseRequirement `json:"requirement"`
	State       RequirementState  `json:"state"`
	Sessions    []Session         `json:"sessions"`
	Reasons     []string          `json:"reasons,omitempty"`
}

// GenerateRequest is the payload of preview and commit.
type GenerateRequest struct {
	WeekStart    string              `json:"week_start" validate:"omitempty,datetime=2006-01-02"`
	Requirements []CourseRequirement `json:"requirements" validate:"required,min=1,dive"`
}

// GenerateResult is the outcome of a generator run.
type GenerateResult struct {
	WeekStart time.Time            `json:"week_start"`
	Algorithm string               `json:"algorithm"`
	Outcomes  []RequirementOutcome `json:"outcomes"`
	Placed    int                  `json:"placed"`
	Committed bool                 `json:"committed"`
}
