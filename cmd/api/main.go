package main

import (
	"os"

	"github.com/placeintern/backend/internal/pkg/logger"
	"github.com/placeintern/backend/internal/server"
)

// @title PlaceIntern API
// @version 1.0
// @description Internship placement portal for Punjab government polytechnics
// @termsOfService http://swagger.io/terms/

// @contact.name PlaceIntern Support
// @contact.email support@placeintern.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		logger.FlushRollbar()
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
