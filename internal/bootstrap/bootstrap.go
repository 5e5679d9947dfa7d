package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/placeintern/backend/internal/app/auth"
	appControllers "github.com/placeintern/backend/internal/app/controllers"
	appMigrations "github.com/placeintern/backend/internal/app/migrations"
	appRepos "github.com/placeintern/backend/internal/app/repositories"
	appRoutes "github.com/placeintern/backend/internal/app/routes"
	appServices "github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/config"
	"github.com/placeintern/backend/internal/db"
	appMiddleware "github.com/placeintern/backend/internal/middleware"
	pkgAuth "github.com/placeintern/backend/internal/pkg/auth"
	"github.com/placeintern/backend/internal/pkg/email"
	"github.com/placeintern/backend/internal/pkg/filestorage"
	"github.com/placeintern/backend/internal/pkg/helpers"
	"github.com/placeintern/backend/internal/pkg/jobqueue"
	"github.com/placeintern/backend/internal/pkg/logger"
	"github.com/placeintern/backend/internal/pkg/websocket"
	"github.com/placeintern/backend/internal/seed"
)

// Version is stamped at build time and reported to Rollbar
var Version = "dev"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	AuthMiddleware *appMiddleware.AuthMiddleware
	FileStorage    filestorage.Storage
	Queue          *jobqueue.Queue
	Hub            *websocket.Hub

	AuditService        *appServices.AuditService
	AuthService         *appServices.AuthService
	UserService         appServices.UserService
	MentorService       *appServices.MentorService
	JobService          *appServices.JobService
	ReportService       *appServices.ReportService
	NotificationService *appServices.NotificationService

	Controllers appRoutes.Controllers
	Logger      zerolog.Logger
}

// ConfigPath returns the configuration file location, overridable by CONFIG_PATH
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(ConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	host, _ := os.Hostname()
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		Hooks: []zerolog.Hook{logger.NewRollbarHook(logger.RollbarConfig{
			Token:       cfg.Logging.RollbarToken,
			Environment: cfg.Logging.Environment,
			CodeVersion: Version,
			ServerHost:  host,
		})},
	})

	lgr := log.Logger
	lgr.Info().
		Str("logLevel", string(logLevel)).
		Str("logFormat", cfg.Logging.Format).
		Bool("rollbar", cfg.Logging.RollbarToken != "").
		Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens and pings the connection pool
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return dbPool, nil
}

// RunMigrations applies every pending migration file
func RunMigrations(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(dbPool).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")

	queueVersions, err := jobqueue.Migrate(ctx, dbPool)
	if err != nil {
		lgr.Error().Err(err).Msg("Job queue migration error")
		return err
	}
	lgr.Info().Int("applied", queueVersions).Msg("Job queue migrations successfully applied.")
	return nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds defaults.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	dbPool, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := RunMigrations(ctx, cfg, dbPool, lgr); err != nil {
		dbPool.Close()
		return nil, err
	}

	if cfg.Seed.Enabled {
		if err := seed.CreateDefaultData(ctx, dbPool, cfg.Seed, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// NewStorage selects the file storage backend
func NewStorage(ctx context.Context, cfg *config.Config, basePath, urlPath string) (filestorage.Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "b2":
		return filestorage.NewB2Storage(ctx, cfg.Storage.B2AccountID, cfg.Storage.B2AppKey, cfg.Storage.B2Bucket)
	case "", "local":
		return filestorage.NewLocalStorage(basePath, strings.TrimRight(cfg.Server.PublicBaseURL, "/")+urlPath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewQueue builds the job queue from configuration
func NewQueue(cfg *config.Config, dbPool *pgxpool.Pool) (*jobqueue.Queue, error) {
	return jobqueue.New(dbPool, jobqueue.Config{
		Workers:      cfg.Queue.Workers,
		PollInterval: helpers.ParseDuration(cfg.Queue.PollInterval, 2*time.Second),
		LeaseTTL:     helpers.ParseDuration(cfg.Queue.LeaseTTL, 5*time.Minute),
		JobTimeout:   helpers.ParseDuration(cfg.Queue.JobTimeout, 2*time.Minute),
		MaxAttempts:  cfg.Queue.MaxAttempts,
		BackoffBase:  helpers.ParseDuration(cfg.Queue.BackoffBase, 5*time.Second),
		BackoffMax:   helpers.ParseDuration(cfg.Queue.BackoffMax, 10*time.Minute),
	})
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	ctx := context.Background()
	deps := &Dependencies{Logger: lgr}
	helpers.SetPageSizes(cfg.Pagination.DefaultSize, cfg.Pagination.MaxSize)
	repos := appRepos.NewRepositories(dbPool)
	deps.Repos = repos

	var err error
	deps.FileStorage, err = NewStorage(ctx, cfg, cfg.Server.StoragePath, "/uploads")
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	reportStorage := deps.FileStorage
	if strings.ToLower(cfg.Storage.Driver) != "b2" {
		if reportStorage, err = NewStorage(ctx, cfg, cfg.Reports.OutputDir, "/reports"); err != nil {
			return nil, fmt.Errorf("failed to initialize report storage: %w", err)
		}
	}

	// Background work
	if deps.Queue, err = NewQueue(cfg, dbPool); err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize job queue")
		return nil, err
	}
	deps.Hub = websocket.NewHub(lgr)

	renderer, err := email.NewRenderer(cfg.Mail.FrontendBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	sender, err := email.NewSender(email.Config{
		Provider:    cfg.Mail.Provider,
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		UseTLS:      cfg.Mail.UseTLS,
		SendgridKey: cfg.Mail.SendgridKey,
		FromName:    cfg.Mail.FromName,
		FromAddress: cfg.Mail.FromAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email sender: %w", err)
	}
	jobqueue.AddWorker(deps.Queue, email.NewSendWorker(renderer, sender))
	mailer := email.NewDispatcher(deps.Queue)

	// Services
	deps.AuthzService = appAuth.NewAuthorizationService(
		repos.StudentRepository,
		repos.StaffRepository,
		repos.MentorAssignmentRepository,
	)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 168*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
		SessionWarning:  helpers.ParseDuration(cfg.JWT.SessionWarning, 5*time.Minute),
	})

	deps.AuditService = appServices.NewAuditService(repos.AuditLogRepository, lgr)
	deps.NotificationService = appServices.NewNotificationService(repos.NotificationRepository, deps.Hub, mailer, lgr)
	notifier := deps.NotificationService

	deps.AuthService = appServices.NewAuthService(
		repos.UserRepository,
		repos.TokenRepository,
		appServices.ProfileSources{
			Institutions: repos.InstitutionRepository,
			Students:     repos.StudentRepository,
			Staff:        repos.StaffRepository,
		},
		deps.JWTService,
		deps.AuditService,
		lgr,
	)
	institutionService := appServices.NewInstitutionService(repos.InstitutionRepository, lgr)
	deps.UserService = appServices.NewUserService(
		repos.UserRepository,
		repos.StaffRepository,
		repos.InstitutionRepository,
		repos.TokenRepository,
		mailer,
		lgr,
	)
	studentService := appServices.NewStudentService(
		repos.StudentRepository,
		repos.InstitutionRepository,
		repos.UserRepository,
		deps.AuthzService,
		mailer,
		deps.AuditService,
		lgr,
	)
	staffService := appServices.NewStaffService(repos.StaffRepository, repos.InstitutionRepository, repos.UserRepository, mailer, lgr)
	deps.MentorService = appServices.NewMentorService(
		repos.StudentRepository,
		repos.StaffRepository,
		repos.MentorAssignmentRepository,
		deps.AuthzService,
		notifier,
		deps.AuditService,
		lgr,
	)
	internshipService := appServices.NewInternshipService(
		repos.ApplicationRepository,
		repos.MonthlyReportRepository,
		repos.StudentRepository,
		deps.AuthzService,
		notifier,
		lgr,
	)
	grievanceService := appServices.NewGrievanceService(
		repos.GrievanceRepository,
		repos.StudentRepository,
		repos.MentorAssignmentRepository,
		deps.AuthzService,
		notifier,
		deps.AuditService,
		lgr,
	)
	documentService := appServices.NewDocumentService(
		repos.DocumentRepository,
		repos.StudentRepository,
		deps.FileStorage,
		deps.AuthzService,
		int64(cfg.Storage.MaxUploadMiB)<<20,
		lgr,
	)
	deps.ReportService = appServices.NewReportService(
		repos.ReportRepository,
		repos.UserRepository,
		deps.Queue,
		reportStorage,
		notifier,
		deps.AuditService,
		cfg.Reports.MaxRows,
		lgr,
	)
	jobqueue.AddWorker(deps.Queue, appServices.NewReportWorker(deps.ReportService))

	dashboardService := appServices.NewDashboardService(
		repos.DashboardRepository,
		repos.ApplicationRepository,
		repos.MentorAssignmentRepository,
		repos.GrievanceRepository,
		deps.AuthzService,
		lgr,
	)
	deps.JobService = appServices.NewJobService(deps.Queue, deps.AuditService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		Institution:  appControllers.NewInstitutionController(institutionService),
		User:         appControllers.NewUserController(deps.UserService),
		Audit:        appControllers.NewAuditController(deps.AuditService),
		Job:          appControllers.NewJobController(deps.JobService),
		Student:      appControllers.NewStudentController(studentService),
		Staff:        appControllers.NewStaffController(staffService),
		Mentor:       appControllers.NewMentorController(deps.MentorService),
		Internship:   appControllers.NewInternshipController(internshipService),
		Grievance:    appControllers.NewGrievanceController(grievanceService),
		Document:     appControllers.NewDocumentController(documentService),
		Report:       appControllers.NewReportController(deps.ReportService),
		Dashboard:    appControllers.NewDashboardController(dashboardService),
		Notification: appControllers.NewNotificationController(deps.NotificationService),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.Server.AllowOrigins, lgr),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(lgr), gin.Recovery())
	router.MaxMultipartMemory = int64(cfg.Storage.MaxUploadMiB) << 20

	appRoutes.SetupSwagger(router)

	audit := appMiddleware.AuditTrail(appMiddleware.AuditConfig{
		Enabled:      cfg.Audit.Enabled,
		Methods:      cfg.Audit.Methods,
		ExcludePaths: cfg.Audit.ExcludePaths,
	}, deps.AuditService)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, audit)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
