package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// ownTeacher resolves the teacher a request acts for. Admins act for the
// requested teacher; teachers only for themselves.
func ownTeacher(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin:
		return requested, nil
	case models.RoleTeacher:
		if claims.TeacherID == "" {
			return "", appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a teacher")
		}
		if requested != "" && requested != claims.TeacherID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "teachers can only act on their own schedule")
		}
		return claims.TeacherID, nil
	default:
		return "", appErrors.ErrForbidden
	}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		return failBinding(c, err, message)
	}
	return true
}

func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		return failBinding(c, err, message)
	}
	return true
}

func failBinding(c *gin.Context, err error, message string) bool {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
	return false
}

func optionalDate(c *gin.Context, key string) (*time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	day, err := models.ParseDate(value)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must use the YYYY-MM-DD format")
	}
	return &day, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func callerID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
