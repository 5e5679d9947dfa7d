package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// InstitutionStore persists institutions, branches and batches
type InstitutionStore interface {
	Create(ctx context.Context, inst *models.Institution) error
	GetByID(ctx context.Context, id int64) (*models.Institution, error)
	List(ctx context.Context, search string, activeOnly bool, page, size int) ([]models.Institution, int64, error)
	Update(ctx context.Context, inst *models.Institution) error
	HasDependents(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error

	CreateBranch(ctx context.Context, b *models.Branch) error
	GetBranch(ctx context.Context, id int64) (*models.Branch, error)
	ListBranches(ctx context.Context, institutionID int64) ([]models.Branch, error)
	UpdateBranch(ctx context.Context, b *models.Branch) error
	DeleteBranch(ctx context.Context, id int64) error

	CreateBatch(ctx context.Context, b *models.Batch) error
	GetBatch(ctx context.Context, id int64) (*models.Batch, error)
	ListBatches(ctx context.Context, institutionID int64) ([]models.Batch, error)
	UpdateBatch(ctx context.Context, b *models.Batch) error
	DeleteBatch(ctx context.Context, id int64) error
}

// InstitutionService manages institutions and their branches and batches
type InstitutionService struct {
	store  InstitutionStore
	logger zerolog.Logger
}

// NewInstitutionService creates a new InstitutionService
func NewInstitutionService(store InstitutionStore, logger zerolog.Logger) *InstitutionService {
	return &InstitutionService{store: store, logger: logger}
}

// CreateInstitution adds a polytechnic
func (s *InstitutionService) CreateInstitution(ctx context.Context, req *dto.InstitutionRequest) (*models.Institution, error) {
	inst := &models.Institution{IsActive: true}
	applyInstitution(inst, req)
	if err := s.store.Create(ctx, inst); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("institutionId", inst.ID).Str("code", inst.Code).Msg("Institution created")
	return inst, nil
}

// GetInstitution returns one institution
func (s *InstitutionService) GetInstitution(ctx context.Context, id int64) (*models.Institution, error) {
	return s.store.GetByID(ctx, id)
}

// ListInstitutions returns a page of institutions
func (s *InstitutionService) ListInstitutions(ctx context.Context, search string, activeOnly bool, page, size int) ([]models.Institution, int64, error) {
	return s.store.List(ctx, strings.TrimSpace(search), activeOnly, page, size)
}

// UpdateInstitution writes institution fields
func (s *InstitutionService) UpdateInstitution(ctx context.Context, id int64, req *dto.InstitutionRequest) (*models.Institution, error) {
	inst, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyInstitution(inst, req)
	if err := s.store.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// DeleteInstitution removes an institution, or deactivates it when students,
// staff or accounts still reference it
func (s *InstitutionService) DeleteInstitution(ctx context.Context, id int64) (*dto.DeleteInstitutionResponse, error) {
	inst, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	hasDependents, err := s.store.HasDependents(ctx, id)
	if err != nil {
		return nil, err
	}
	if hasDependents {
		inst.IsActive = false
		if err := s.store.Update(ctx, inst); err != nil {
			return nil, err
		}
		s.logger.Info().Int64("institutionId", id).Msg("Institution has dependents, deactivated instead of deleted")
		return &dto.DeleteInstitutionResponse{Deactivated: true}, nil
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &dto.DeleteInstitutionResponse{Deleted: true}, nil
}

func applyInstitution(inst *models.Institution, req *dto.InstitutionRequest) {
	inst.Name = strings.TrimSpace(req.Name)
	inst.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	inst.District = strings.TrimSpace(req.District)
	inst.Address = req.Address
	inst.ContactEmail = req.ContactEmail
	if req.IsActive != nil {
		inst.IsActive = *req.IsActive
	}
}

// CreateBranch adds a branch to the actor's institution
func (s *InstitutionService) CreateBranch(ctx context.Context, actor appauth.Actor, req *dto.BranchRequest) (*models.Branch, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	b := &models.Branch{
		InstitutionID: institutionID,
		Name:          strings.TrimSpace(req.Name),
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if err := s.store.CreateBranch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBranches returns the branches of the actor's institution
func (s *InstitutionService) ListBranches(ctx context.Context, actor appauth.Actor) ([]models.Branch, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	return s.store.ListBranches(ctx, institutionID)
}

func (s *InstitutionService) scopedBranch(ctx context.Context, actor appauth.Actor, id int64) (*models.Branch, error) {
	b, err := s.store.GetBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(b.InstitutionID); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBranch renames a branch
func (s *InstitutionService) UpdateBranch(ctx context.Context, actor appauth.Actor, id int64, req *dto.BranchRequest) (*models.Branch, error) {
	b, err := s.scopedBranch(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	b.Name = strings.TrimSpace(req.Name)
	b.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.store.UpdateBranch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBranch removes a branch without students or staff
func (s *InstitutionService) DeleteBranch(ctx context.Context, actor appauth.Actor, id int64) error {
	if _, err := s.scopedBranch(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteBranch(ctx, id)
}

// CreateBatch adds a batch to the actor's institution
func (s *InstitutionService) CreateBatch(ctx context.Context, actor appauth.Actor, req *dto.BatchRequest) (*models.Batch, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	b := &models.Batch{InstitutionID: institutionID}
	if err := applyBatch(b, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateBatch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBatches returns the batches of the actor's institution
func (s *InstitutionService) ListBatches(ctx context.Context, actor appauth.Actor) ([]models.Batch, error) {
	institutionID, err := actor.Institution()
	if err != nil {
		return nil, err
	}
	return s.store.ListBatches(ctx, institutionID)
}

func (s *InstitutionService) scopedBatch(ctx context.Context, actor appauth.Actor, id int64) (*models.Batch, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CheckInstitution(b.InstitutionID); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBatch writes batch fields
func (s *InstitutionService) UpdateBatch(ctx context.Context, actor appauth.Actor, id int64, req *dto.BatchRequest) (*models.Batch, error) {
	b, err := s.scopedBatch(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyBatch(b, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBatch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBatch removes a batch
func (s *InstitutionService) DeleteBatch(ctx context.Context, actor appauth.Actor, id int64) error {
	if _, err := s.scopedBatch(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteBatch(ctx, id)
}

func applyBatch(b *models.Batch, req *dto.BatchRequest) error {
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: endDate must not be before startDate", apperrors.ErrValidationFailed)
	}
	b.Name = strings.TrimSpace(req.Name)
	b.AcademicYear = req.AcademicYear
	b.Semester = req.Semester
	b.StartDate = start
	b.EndDate = end
	return nil
}

const dateLayout = "2006-01-02"

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
