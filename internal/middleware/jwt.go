package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

// Context keys set by JWT. UserIDKey and RoleKey are plain strings so the
// request logger can read them without importing models.
const (
	ContextUserKey = "currentUser"
	UserIDKey      = "user_id"
	RoleKey        = "role"
)

// TokenValidator parses access tokens into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT requires a valid bearer token and stores its claims on the context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			deny(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed bearer token"))
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			deny(c, err)
			return
		}
		c.Set(ContextUserKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, string(claims.Role))
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles. Scoping
// to a teacher's own records or a student's own group is left to handlers.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		switch {
		case claims == nil:
			deny(c, appErrors.ErrUnauthorized)
		case !allowed[claims.Role]:
			deny(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
		default:
			c.Next()
		}
	}
}

// Claims returns the authenticated caller, or nil.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func deny(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
