package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	tableLocalOps = "crdt_operation"
	tableCloudOps = "cloud_crdt_operation"

	instanceCacheSize = 256
)

// Storage represents SQLite storage implementation: both operation logs,
// the instance registry and the domain tables live in one database
type Storage struct {
	db        *sqlx.DB
	instances *lru.Cache[uuid.UUID, int64] // кэш pub_id -> локальный id узла
	local     *OpLog
	cloud     *OpLog
}

// New creates a new SQLite storage instance
// dbPath is the path to the SQLite database file
// Use ":memory:" for in-memory database (useful for testing)
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем соединение с БД
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настраиваем connection pool
	// Одно соединение: все транзакции записи сериализуются, а для :memory:
	// это еще и единственный способ видеть одну и ту же БД
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Включаем WAL mode и другие оптимизации
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	storage, err := newStorage(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Запускаем миграции
	if err := storage.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// newStorage wires the logs around an already opened database.
// Used directly by tests with sqlmock
func newStorage(db *sqlx.DB) (*Storage, error) {
	cache, err := lru.New[uuid.UUID, int64](instanceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance cache: %w", err)
	}

	s := &Storage{db: db, instances: cache}
	s.local = &OpLog{s: s, table: tableLocalOps}
	s.cloud = &OpLog{s: s, table: tableCloudOps}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations() error {
	// Устанавливаем dialect для SQLite
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	// Устанавливаем источник миграций из embedded FS
	goose.SetBaseFS(embedMigrations)

	// Запускаем миграции
	if err := goose.Up(s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// Local returns the peer-facing operation log
func (s *Storage) Local() *OpLog {
	return s.local
}

// Cloud returns the cloud-mirrored operation log
func (s *Storage) Cloud() *OpLog {
	return s.cloud
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sqlx.DB {
	return s.db
}
