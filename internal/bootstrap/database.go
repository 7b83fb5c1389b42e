package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/cardpress/internal/config"
	"github.com/jonesrussell/cardpress/internal/database"
	"github.com/jonesrussell/cardpress/internal/logger"
)

// SetupDatabase creates a database connection pool.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*database.Database, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.String("dbname", cfg.Database.DBName),
	)
	return db, nil
}
