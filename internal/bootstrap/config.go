package bootstrap

import (
	"flag"
	"fmt"

	"github.com/jonesrussell/cardpress/internal/config"
	"github.com/jonesrussell/cardpress/internal/logger"
)

// LoadConfig loads configuration. Uses the -config flag with the
// CONFIG_PATH environment default.
func LoadConfig() (*config.Config, error) {
	configPath := flag.String("config", config.GetConfigPath("config.yml"), "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	log, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "cardpress"),
		logger.String("version", version),
	), nil
}
