package db

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies goose migrations from fsys using the given command
// ("up", "down", "status", ...).
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, command string) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() {
		_ = sqlDB.Close()
	}()

	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: goose dialect: %w", err)
	}
	if command == "" {
		command = "up"
	}
	if err := goose.RunContext(ctx, command, sqlDB, "."); err != nil {
		return fmt.Errorf("platform/db: migrate %s: %w", command, err)
	}
	return nil
}
