package services

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/helpers"
)

// AuditStore persists audit entries
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter, page, size int) ([]models.AuditLog, int64, error)
}

// AuditService writes and lists the audit trail
type AuditService struct {
	store  AuditStore
	logger zerolog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditStore, logger zerolog.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// Write stores entry. Failures are logged and swallowed so the audited
// operation never fails because of the trail.
func (s *AuditService) Write(ctx context.Context, entry *models.AuditLog) {
	if err := s.store.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", entry.Action).
			Str("entityType", entry.EntityType).
			Msg("Failed to write audit log")
	}
}

// Record writes a domain event performed by actor
func (s *AuditService) Record(ctx context.Context, actor appauth.Actor, action, entityType, entityID string, details map[string]any) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   helpers.NilIfEmpty(entityID),
	}
	if actor.UserID > 0 {
		entry.UserID = &actor.UserID
	}
	if actor.Role != "" {
		role := actor.Role
		entry.RoleType = &role
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn().Err(err).Str("action", action).Msg("Dropping unencodable audit details")
		} else {
			entry.Details = raw
		}
	}
	s.Write(ctx, entry)
}

// List returns a page of audit entries
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter, page, size int) ([]models.AuditLog, int64, error) {
	return s.store.List(ctx, filter, page, size)
}
