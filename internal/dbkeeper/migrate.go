package dbkeeper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

func migrateUp(dsn, dir string, log Log) error {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}
	// Register the driver with the name pgx
	sqlDB := stdlib.OpenDB(*connConfig)
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		log.Error("Error getting driver: ", zap.Error(err))
		return fmt.Errorf("migration driver: %w", err)
	}

	path, err := resolveMigrations(dir)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(path), "postgres", driver)
	if err != nil {
		log.Error("Error creating migration instance: ", zap.Error(err))
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Error while performing migration: ", zap.Error(err))
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Info("Migrations applied", zap.String("dir", path))
	return nil
}

// resolveMigrations finds dir relative to the working directory, falling
// back to the module root so tests run from a package directory work too.
func resolveMigrations(dir string) (string, error) {
	if dir == "" {
		dir = "migrations"
	}
	candidates := []string{dir}
	if !filepath.IsAbs(dir) {
		candidates = append(candidates, filepath.Join("..", "..", dir))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && st.IsDir() {
			return filepath.Abs(c)
		}
	}
	return "", fmt.Errorf("migrations directory %q not found", dir)
}
