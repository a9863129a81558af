package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/service"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

type authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken, userID string, client models.Client) error
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
}

// AuthHandler exposes login and the token lifecycle.
type AuthHandler struct {
	service authenticator
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate with email and password
// @Description The returned user carries the default timetable scope of the account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.Client = clientOf(c)
	h.respondPair(c, func(ctx context.Context) (*models.TokenPair, error) { return h.service.Login(ctx, req) })
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Reusing a rotated token revokes every session of the user.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	req.Client = clientOf(c)
	h.respondPair(c, func(ctx context.Context) (*models.TokenPair, error) { return h.service.RefreshToken(ctx, req) })
}

// Logout godoc
// @Summary Revoke a refresh token
// @Tags Auth
// @Accept json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "refresh token required") {
		return
	}
	if err := h.service.Logout(c.Request.Context(), req.RefreshToken, callerID(c), clientOf(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user and timetable scope
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

func (h *AuthHandler) respondPair(c *gin.Context, issue func(ctx context.Context) (*models.TokenPair, error)) {
	pair, err := issue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.JSON(c, http.StatusOK, pair)
}

func clientOf(c *gin.Context) models.Client {
	return models.Client{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
