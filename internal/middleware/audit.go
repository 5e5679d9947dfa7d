package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/placeintern/backend/internal/app/models"
)

// AuditWriter stores audit entries
type AuditWriter interface {
	Write(ctx context.Context, entry *models.AuditLog)
}

// AuditConfig selects the requests that are audited
type AuditConfig struct {
	Enabled      bool
	Methods      []string
	ExcludePaths []string
}

const apiPrefix = "/api/v1/"

var routeGroups = map[string]bool{
	"auth": true, "system-admin": true, "principal": true, "faculty": true,
	"student": true, "state": true, "shared": true,
}

// collection-level verbs that never name an entity
var collectionActions = map[string]bool{
	"import": true, "auto-assign": true, "read-all": true, "extend": true,
	"login": true, "logout": true, "refresh": true, "phone": true, "password": true,
}

// auditTarget derives the entity type and the name of its ID parameter from a
// gin route such as /api/v1/principal/grievances/:id/escalate
func auditTarget(fullPath string) (entity, idParam string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(fullPath, apiPrefix), "/"), "/")
	if len(segments) > 1 && routeGroups[segments[0]] {
		segments = segments[1:]
	}

	afterParam := false
	for _, seg := range segments {
		switch {
		case seg == "":
			continue
		case strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*"):
			if entity != "" && idParam == "" {
				idParam = seg[1:]
			}
			afterParam = true
		case afterParam && entity != "", collectionActions[seg] && entity != "":
			// action on the entity already named
		default:
			entity, idParam = seg, ""
			afterParam = false
		}
	}
	if entity == "" && len(segments) > 0 {
		entity = segments[0]
	}
	return entity, idParam
}

// auditAction maps an HTTP method to an audit action. POSTs against an
// existing entity are actions on it and count as updates.
func auditAction(method string, targetsEntity bool) string {
	switch method {
	case http.MethodPost:
		if targetsEntity {
			return models.AuditActionUpdate
		}
		return models.AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return models.AuditActionUpdate
	case http.MethodDelete:
		return models.AuditActionDelete
	}
	return strings.ToUpper(method)
}

func (cfg AuditConfig) audits(method, path string) bool {
	if !cfg.Enabled {
		return false
	}
	matched := false
	for _, m := range cfg.Methods {
		if strings.EqualFold(m, method) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, prefix := range cfg.ExcludePaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// AuditTrail writes an audit row after every audited request. Writes are
// best-effort and never change the response.
func AuditTrail(cfg AuditConfig, writer AuditWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" || !cfg.audits(c.Request.Method, c.Request.URL.Path) {
			return
		}

		entity, idParam := auditTarget(route)
		entry := &models.AuditLog{
			Action:     auditAction(c.Request.Method, idParam != ""),
			EntityType: entity,
			Method:     stringPtr(c.Request.Method),
			Path:       stringPtr(c.Request.URL.Path),
			IPAddress:  stringPtr(c.ClientIP()),
			UserAgent:  stringPtr(c.Request.UserAgent()),
		}
		status := c.Writer.Status()
		entry.StatusCode = &status
		if idParam != "" {
			entry.EntityID = stringPtr(c.Param(idParam))
		}
		if userID := c.GetInt64(ContextUserID); userID > 0 {
			entry.UserID = &userID
			role := models.RoleType(c.GetString(ContextRoleType))
			entry.RoleType = &role
		}

		writer.Write(c.Request.Context(), entry)
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
