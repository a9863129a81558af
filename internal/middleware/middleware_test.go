package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

type validatorStub struct{}

func (validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher, TeacherID: "T1"}, nil
}

type auditStub struct{ logs []models.AuditLog }

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAndRBAC(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(validatorStub{}))
	router.GET("/teacher", RequireRoles(models.RoleTeacher, models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).TeacherID)
	})
	router.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/teacher", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/teacher", "bad").Code)

	w := serve(router, http.MethodGet, "/teacher", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/admin", "good").Code)
}

func TestAuditRecordsSuccessfulWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &auditStub{}
	router := gin.New()
	router.Use(JWT(validatorStub{}))
	router.DELETE("/sessions/:id", Audit(audit, models.AuditActionSessionDelete, "session"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	serve(router, http.MethodDelete, "/sessions/S1", "good")
	serve(router, http.MethodDelete, "/sessions/missing", "good")

	require.Len(t, audit.logs, 1)
	log := audit.logs[0]
	assert.Equal(t, models.AuditActionSessionDelete, log.Action)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "S1", *log.ResourceID)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "u-1", *log.UserID)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "count", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodGet, "/", "")
	assert.Equal(t, 3, meta["count"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestAuditUsesCreatedResourceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &auditStub{}
	router := gin.New()
	router.Use(JWT(validatorStub{}))
	router.POST("/makeups", Audit(audit, models.AuditActionMakeupBook, "makeup"), func(c *gin.Context) {
		SetAuditResource(c, "MK-1")
		AddAuditDetail(c, "room_id", "B01")
		c.Status(http.StatusCreated)
	})

	serve(router, http.MethodPost, "/makeups", "good")

	require.Len(t, audit.logs, 1)
	require.NotNil(t, audit.logs[0].ResourceID)
	assert.Equal(t, "MK-1", *audit.logs[0].ResourceID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(audit.logs[0].NewValues, &payload))
	assert.Equal(t, "/makeups", payload["route"])
	assert.Equal(t, "T1", payload["teacher_id"])
	assert.Equal(t, map[string]interface{}{"room_id": "B01"}, payload["details"])
}

func TestBearerParsing(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"standard":      {header: "Bearer abc", token: "abc", ok: true},
		"lower scheme":  {header: "bearer abc", token: "abc", ok: true},
		"padded":        {header: "  Bearer   abc  ", token: "abc", ok: true},
		"basic scheme":  {header: "Basic abc"},
		"missing token": {header: "Bearer "},
		"no separator":  {header: "Bearerabc"},
		"empty":         {header: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := bearer(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestJWTExposesCallerForLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(validatorStub{}))
	var userID, role string
	router.GET("/", func(c *gin.Context) {
		userID, role = c.GetString(UserIDKey), c.GetString(RoleKey)
	})

	serve(router, http.MethodGet, "/", "good")
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "TEACHER", role)
}
