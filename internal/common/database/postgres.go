package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"deal-wizard/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient holds the pool used by the deal repository and the lookups.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
