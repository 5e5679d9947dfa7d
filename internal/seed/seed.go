package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	appModels "github.com/placeintern/backend/internal/app/models"
	appRepos "github.com/placeintern/backend/internal/app/repositories"
	"github.com/placeintern/backend/internal/config"
	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/placeintern/backend/internal/pkg/auth"
	"github.com/rs/zerolog"
)

// CreateDefaultData creates the default institution and the system administrator
// if they don't exist. Errors are collected so one failure does not stop the rest.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, cfg config.SeedConfig, lgr zerolog.Logger) error {
	institutionRepo := appRepos.NewInstitutionRepository(dbPool)
	userRepo := appRepos.NewUserRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data (institution/administrator)...")
	var finalErr error

	if cfg.InstitutionCode != "" {
		institution := &appModels.Institution{
			Name:     cfg.InstitutionName,
			Code:     strings.ToUpper(cfg.InstitutionCode),
			District: cfg.District,
			IsActive: true,
		}
		err := institutionRepo.Create(ctx, institution)
		switch {
		case errors.Is(err, apperrors.ErrInstitutionAlreadyExists):
			lgr.Info().Str("code", institution.Code).Msg("Default institution already exists, skipping creation")
		case err != nil:
			lgr.Error().Err(err).Msg("Error creating default institution")
			finalErr = errors.Join(finalErr, err)
		default:
			lgr.Info().Int64("institutionID", institution.ID).Str("code", institution.Code).Msg("Default institution created")
		}
	}

	if err := createAdmin(ctx, userRepo, cfg, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

func createAdmin(ctx context.Context, userRepo *appRepos.UserRepository, cfg config.SeedConfig, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}

	exists, err := userRepo.EmailExists(ctx, email)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if admin user exists")
		return err
	}
	if exists {
		lgr.Info().Msg("Admin user already exists, skipping creation")
		return nil
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		if password, err = auth.GenerateTemporaryPassword(16); err != nil {
			return err
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return err
	}

	admin := &appModels.User{
		Email:              email,
		Password:           hash,
		FirstName:          "System",
		LastName:           "Administrator",
		RoleType:           appModels.RoleSystemAdmin,
		IsActive:           true,
		MustChangePassword: generated,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}

	event := lgr.Info().Int64("adminID", admin.ID).Str("email", email)
	if generated {
		// shown once so the operator can log in and change it
		event = lgr.Warn().Int64("adminID", admin.ID).Str("email", email).Str("temporaryPassword", password)
	}
	event.Msg("Default admin user created successfully")
	return nil
}
