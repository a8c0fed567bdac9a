// Package cli provides common initialization for the binaries under
// cmd/.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/storage"
)

// SetupLogger initializes structured logging with default settings and
// installs it as the process default.
func SetupLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it. Returns
// the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the SQLite store, creating the schema when missing.
// Returns the store or exits the process on failure.
func InitStore(logger *log.Logger, dbPath string) *storage.Store {
	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return store
}
