// Package database manages the PostgreSQL connection pool.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/jonesrussell/cardpress/internal/config"
)

// Database wraps the sql connection pool.
type Database struct {
	db *sql.DB
}

// New opens a connection pool against the configured PostgreSQL instance
// and verifies connectivity with a ping.
func New(cfg *config.DatabaseConfig) (*Database, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// DB exposes the underlying pool for repositories.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Close shuts down the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}
