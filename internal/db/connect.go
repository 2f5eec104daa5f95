package db

import (
	"context"
	"fmt"

	"illyrian_project/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open creates a pool and checks that the database answers.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func Connect(dsn string) *pgxpool.Pool {
	pool, err := Open(context.Background(), dsn)
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}

	logger.Info("database connected")
	return pool
}
