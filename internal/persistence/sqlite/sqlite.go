package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/seminar-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	*BookingRepository
	*RequestRepository
	*AdminRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open opens the database file at path with the default configuration.
func Open(path string) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path), nil)
}

// OpenWithConfig opens a Storage for the given connection configuration.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		BookingRepository: NewBookingRepository(pool),
		RequestRepository: NewRequestRepository(pool),
		AdminRepository:   NewAdminRepository(pool),
		pool:              pool,
		logger:            logger,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB().DB),
		migrationFiles,
		"migrations",
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
