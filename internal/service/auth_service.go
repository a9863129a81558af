package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool
}

// AuthService issues and validates the tokens that carry a caller's
// scheduling scope: role, teacher record and student group.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: nilLogger(logger), config: config, now: time.Now}
}

// Login authenticates a user and returns issued tokens. Teacher and student
// accounts must be linked to the record that scopes their timetable.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internal(err, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := usable(user); err != nil {
		return nil, err
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	pair, err := s.issue(ctx, user, req.Client)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, pair.IssuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, map[string]string{"role": string(user.Role)}, req.Client)

	info := userInfo(user)
	pair.User = &info
	return pair, nil
}

// RefreshToken rotates a refresh token and issues a new access token.
// Presenting a token that was already rotated revokes every token of its
// owner.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid refresh payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, hashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, internal(err, "failed to fetch refresh token")
	}
	now := s.now().UTC()
	if stored.RevokedAt != nil {
		s.logger.Warn("revoked refresh token presented", zap.String("user_id", stored.UserID), zap.String("token_id", stored.ID))
		if err := s.repo.RevokeUserRefreshTokens(ctx, stored.UserID); err != nil {
			s.logger.Error("failed to revoke tokens after reuse", zap.String("user_id", stored.UserID), zap.Error(err))
		}
		s.audit(ctx, stored.UserID, models.AuditActionTokenReuse, map[string]string{"token_id": stored.ID}, req.Client)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token was already used")
	}
	if !stored.Usable(now) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, internal(err, "failed to load user")
	}
	if err := usable(user); err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		return nil, internal(err, "failed to revoke used refresh token")
	}
	return s.issue(ctx, user, req.Client)
}

// Logout revokes the provided refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken, userID string, client models.Client) error {
	stored, err := s.repo.FindRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return notFoundOr(err, "refresh token not found", "failed to load refresh token")
	}
	if stored.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if stored.RevokedAt != nil {
		return nil
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now().UTC()); err != nil {
		return internal(err, "failed to revoke refresh token")
	}
	s.audit(ctx, userID, models.AuditActionLogout, nil, client)
	return nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ValidateToken parses an access token and returns its claims. Claims whose
// role is missing the scoping id are refused.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.config.Issuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	switch {
	case claims.Role == models.RoleTeacher && claims.TeacherID == "":
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "teacher token carries no teacher id")
	case claims.Role == models.RoleStudent && claims.GroupID == "":
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student token carries no group id")
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, client models.Client) (*models.TokenPair, error) {
	now := s.now().UTC()
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, internal(err, "failed to create access token")
	}
	raw, err := generateRefreshTokenString()
	if err != nil {
		return nil, internal(err, "failed to create refresh token")
	}
	if err := s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}); err != nil {
		return nil, internal(err, "failed to persist refresh token")
	}
	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     now,
	}, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action string, details map[string]string, client models.Client) {
	var payload []byte
	if len(details) > 0 {
		payload, _ = json.Marshal(details)
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

// usable refuses inactive accounts and accounts whose role lacks the link
// that scopes their timetable.
func usable(user *models.User) error {
	if !user.Active {
		return appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	switch user.Role {
	case models.RoleTeacher:
		if deref(user.TeacherID) == "" {
			return appErrors.Clone(appErrors.ErrForbidden, "teacher account is not linked to a teacher record")
		}
	case models.RoleStudent:
		if deref(user.GroupID) == "" {
			return appErrors.Clone(appErrors.ErrForbidden, "student account is not linked to a group")
		}
	case models.RoleAdmin:
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unknown role "+string(user.Role))
	}
	return nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Email:     user.Email,
		FullName:  user.FullName,
		TeacherID: deref(user.TeacherID),
		GroupID:   deref(user.GroupID),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		TeacherID: user.TeacherID,
		GroupID:   user.GroupID,
		Scope:     models.TimetableScope(user.Role, deref(user.TeacherID), deref(user.GroupID)),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
