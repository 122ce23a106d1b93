package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// document keys
const (
	KeyEmployees         = "employees_list"
	KeyAgencyCache       = "agency_list_cache"
	KeyEmployeeNameCache = "employee_list_cache"
	KeyJournalEntries    = "journal_entries"
)

const (
	getDocumentSQL    = `SELECT value FROM documents WHERE key = ?`
	deleteDocumentSQL = `DELETE FROM documents WHERE key = ?`
	putDocumentSQL    = `
  INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
  ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// DocumentStore is a flat key-value store holding one JSON document per key.
type DocumentStore interface {
	GetDocument(ctx context.Context, key string) ([]byte, bool, error)
	PutDocument(ctx context.Context, key string, value []byte) error
	DeleteDocument(ctx context.Context, key string) error
}

type Repo struct {
	db *sql.DB
}

var _ DocumentStore = (*Repo)(nil)

func NewRepo(dbPath string) (*Repo, error) {
	// ensure directory exists
	err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repo{db: db}, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

// runs embedded migrations on start
func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// +------------------------+
// |                        |
// |    Document Queries    |
// |                        |
// +------------------------+

// returns the raw document stored under key; found is false when nothing is stored
func (r *Repo) GetDocument(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, getDocumentSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error reading document %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// replaces the whole document stored under key
func (r *Repo) PutDocument(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, putDocumentSQL, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error writing document %s: %w", key, err)
	}
	return nil
}

func (r *Repo) DeleteDocument(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, deleteDocumentSQL, key)
	if err != nil {
		return fmt.Errorf("error deleting document %s: %w", key, err)
	}
	return nil
}
