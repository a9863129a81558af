package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Client identifies where a credential exchange came from.
type Client struct {
	IP        string
	UserAgent string
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Client   `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	Client       `json:"-"`
}

// TokenPair is issued by login and refresh. User is only set on login.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	User         *UserInfo `json:"user,omitempty"`
}

// UserInfo describes the authenticated user. Scope names the timetable the
// user sees by default: "all", "teacher:<id>" or "group:<id>".
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Role      UserRole `json:"role"`
	TeacherID *string  `json:"teacher_id,omitempty"`
	GroupID   *string  `json:"group_id,omitempty"`
	Scope     string   `json:"scope"`
}

// JWTClaims is the access token payload.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	TeacherID string   `json:"teacher_id,omitempty"`
	GroupID   string   `json:"group_id,omitempty"`
	jwt.RegisteredClaims
}

// TimetableScope returns the default timetable scope of a role.
func TimetableScope(role UserRole, teacherID, groupID string) string {
	switch {
	case role == RoleTeacher && teacherID != "":
		return "teacher:" + teacherID
	case role == RoleStudent && groupID != "":
		return "group:" + groupID
	case role == RoleAdmin:
		return "all"
	}
	return "none"
}
