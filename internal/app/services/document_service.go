package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/rs/zerolog"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/filestorage"
)

// DocumentStore persists document metadata
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Document, error)
	Verify(ctx context.Context, id, verifierID int64) error
	DeleteUnverified(ctx context.Context, id int64) error
}

// DocumentService handles student document uploads and verification
type DocumentService struct {
	documents DocumentStore
	students  interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	}
	storage  filestorage.Storage
	authz    *appauth.AuthorizationService
	maxBytes int64
	logger   zerolog.Logger
}

// NewDocumentService creates a new DocumentService. Uploads larger than maxBytes are rejected.
func NewDocumentService(
	documents DocumentStore,
	students interface {
		GetByID(ctx context.Context, id int64) (*models.Student, error)
	},
	storage filestorage.Storage,
	authz *appauth.AuthorizationService,
	maxBytes int64,
	logger zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		students:  students,
		storage:   storage,
		authz:     authz,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

func validDocumentType(t models.DocumentType) bool {
	switch t {
	case models.DocumentOfferLetter, models.DocumentNOC, models.DocumentJoiningReport,
		models.DocumentCertificate, models.DocumentOther:
		return true
	}
	return false
}

// Upload stores a file for the calling student
func (s *DocumentService) Upload(ctx context.Context, actor appauth.Actor, docType models.DocumentType, fileHeader *multipart.FileHeader) (*models.Document, error) {
	student, err := s.authz.StudentOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !validDocumentType(docType) {
		return nil, fmt.Errorf("%w: unknown document type %q", apperrors.ErrValidationFailed, docType)
	}
	if fileHeader == nil {
		return nil, apperrors.NewBadRequestError("file is required")
	}
	if s.maxBytes > 0 && fileHeader.Size > s.maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}

	stored, err := filestorage.SaveUpload(ctx, s.storage, fileHeader, fmt.Sprintf("documents/%d", student.ID))
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		OwnerUserID:  actor.UserID,
		StudentID:    &student.ID,
		DocumentType: docType,
		FileName:     stored.FileName,
		StorageKey:   stored.Key,
		FileURL:      stored.URL,
		MimeType:     stored.MimeType,
		FileSize:     stored.Size,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", stored.Key).Msg("Failed to remove orphaned upload")
		}
		return nil, err
	}
	return doc, nil
}

// List returns the documents of a student. Students always see their own.
func (s *DocumentService) List(ctx context.Context, actor appauth.Actor, studentID int64) ([]models.Document, error) {
	if actor.Role == models.RoleStudent {
		student, err := s.authz.StudentOf(ctx, actor)
		if err != nil {
			return nil, err
		}
		return s.documents.ListByStudent(ctx, student.ID)
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return s.documents.ListByStudent(ctx, student.ID)
}

// authorize loads a document and checks the actor may read it
func (s *DocumentService) authorize(ctx context.Context, actor appauth.Actor, id int64) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerUserID == actor.UserID {
		return doc, nil
	}
	if doc.StudentID == nil {
		if actor.Role == models.RoleSystemAdmin {
			return doc, nil
		}
		return nil, apperrors.NewForbiddenError("you cannot access this document")
	}
	student, err := s.students.GetByID(ctx, *doc.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessStudent(ctx, actor, student); err != nil {
		return nil, err
	}
	return doc, nil
}

// Open returns the document and a reader over its content
func (s *DocumentService) Open(ctx context.Context, actor appauth.Actor, id int64) (*models.Document, io.ReadCloser, error) {
	doc, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// Verify marks a mentee document as verified
func (s *DocumentService) Verify(ctx context.Context, actor appauth.Actor, id int64) (*models.Document, error) {
	if !isReviewer(actor.Role) {
		return nil, apperrors.NewForbiddenError("only mentors and principals verify documents")
	}
	doc, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.IsVerified {
		return nil, apperrors.ErrDocumentAlreadyVerified
	}
	if err := s.documents.Verify(ctx, id, actor.UserID); err != nil {
		return nil, err
	}
	return s.documents.GetByID(ctx, id)
}

// Delete removes one of the caller's documents while it is still unverified
func (s *DocumentService) Delete(ctx context.Context, actor appauth.Actor, id int64) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerUserID != actor.UserID {
		return apperrors.ErrDocumentNotFound
	}
	if doc.IsVerified {
		return apperrors.ErrDocumentAlreadyVerified
	}
	if err := s.documents.DeleteUnverified(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn().Err(err).Str("key", doc.StorageKey).Msg("Failed to remove document content")
	}
	return nil
}
