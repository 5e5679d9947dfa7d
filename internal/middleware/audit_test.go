package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
)

func TestAuditTarget(t *testing.T) {
	tests := []struct {
		path    string
		entity  string
		idParam string
	}{
		{"/api/v1/principal/students", "students", ""},
		{"/api/v1/principal/students/:id", "students", "id"},
		{"/api/v1/principal/students/import", "students", ""},
		{"/api/v1/principal/mentor-assignments/auto-assign", "mentor-assignments", ""},
		{"/api/v1/principal/grievances/:id/escalate", "grievances", "id"},
		{"/api/v1/system-admin/users/:id/active", "users", "id"},
		{"/api/v1/faculty/documents/:id/verify", "documents", "id"},
		{"/api/v1/shared/report-templates/:id", "report-templates", "id"},
		{"/api/v1/auth/password", "password", ""},
		{"/api/v1/student/profile/phone", "profile", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			entity, idParam := auditTarget(tt.path)
			assert.Equal(t, tt.entity, entity)
			assert.Equal(t, tt.idParam, idParam)
		})
	}
}

func TestAuditAction(t *testing.T) {
	assert.Equal(t, models.AuditActionCreate, auditAction(http.MethodPost, false))
	assert.Equal(t, models.AuditActionUpdate, auditAction(http.MethodPost, true))
	assert.Equal(t, models.AuditActionUpdate, auditAction(http.MethodPut, true))
	assert.Equal(t, models.AuditActionUpdate, auditAction(http.MethodPatch, true))
	assert.Equal(t, models.AuditActionDelete, auditAction(http.MethodDelete, true))
}

type capturedAudit struct {
	entries []*models.AuditLog
}

func (c *capturedAudit) Write(_ context.Context, entry *models.AuditLog) {
	c.entries = append(c.entries, entry)
}

func TestAuditTrail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captured := &capturedAudit{}
	cfg := AuditConfig{
		Enabled:      true,
		Methods:      []string{"POST", "PUT", "PATCH", "DELETE"},
		ExcludePaths: []string{"/api/v1/shared/notifications"},
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserID, int64(7))
		c.Set(ContextRoleType, string(models.RolePrincipal))
	}, AuditTrail(cfg, captured))
	r.POST("/api/v1/principal/grievances/:id/escalate", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/principal/grievances/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PUT("/api/v1/shared/notifications/:id/read", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/principal/grievances/42/escalate", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/principal/grievances/42", nil),
		httptest.NewRequest(http.MethodPut, "/api/v1/shared/notifications/3/read", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, captured.entries, 1)
	entry := captured.entries[0]
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.Equal(t, "grievances", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, "42", *entry.EntityID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, int64(7), *entry.UserID)
	assert.Equal(t, models.RolePrincipal, *entry.RoleType)
	assert.Equal(t, http.StatusOK, *entry.StatusCode)
}

func TestAuditTrailDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captured := &capturedAudit{}
	r := gin.New()
	r.Use(AuditTrail(AuditConfig{Enabled: false, Methods: []string{"POST"}}, captured))
	r.POST("/api/v1/student/grievances", func(c *gin.Context) { c.Status(http.StatusCreated) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/student/grievances", nil))
	assert.Empty(t, captured.entries)
}
