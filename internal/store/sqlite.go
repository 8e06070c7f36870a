// Package store provides storage backends for SafePath.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/SafePath-UK/SafePath/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to
// the database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(state models.SessionState) error {
	data, err := state.ToJSON()
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "session", state.ID)
		return fmt.Errorf("failed to marshal session %s: %w", state.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO sessions (id, state, started_at) VALUES (?, ?, ?)`,
		state.ID, data, state.StartedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "session", state.ID)
		return fmt.Errorf("failed to save session %s: %w", state.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "session", state.ID, "gate", state.CurrentGate)
	return nil
}

func (s *SQLiteStore) GetSession(id string) (models.SessionState, error) {
	var data string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "session", id)
		return models.SessionState{}, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "session", id)
		return models.SessionState{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var state models.SessionState
	if err := state.FromJSON(data); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "session", id)
		return models.SessionState{}, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return state, nil
}

func (s *SQLiteStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "session", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "session", id)
	return nil
}

func (s *SQLiteStore) AddService(svc models.Service) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO services (name, local_authority, category, phone, description) VALUES (?, ?, ?, ?, ?)`,
		svc.Name, svc.LocalAuthority, svc.Category, svc.Phone, svc.Description)
	if err != nil {
		slog.Error("SQLiteStore AddService failed", "error", err, "name", svc.Name)
		return 0, fmt.Errorf("failed to insert service %s: %w", svc.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore AddService succeeded", "id", id, "name", svc.Name)
	return id, nil
}

func (s *SQLiteStore) ListServices(localAuthority string) ([]models.Service, error) {
	rows, err := s.db.Query(
		`SELECT id, name, local_authority, category, phone, description FROM services
		 WHERE local_authority = ? OR local_authority = '' ORDER BY id`, localAuthority)
	if err != nil {
		slog.Error("SQLiteStore ListServices query failed", "error", err)
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			slog.Error("SQLiteStore ListServices scan failed", "error", err)
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListServices rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate service rows: %w", err)
	}
	slog.Debug("SQLiteStore ListServices succeeded", "localAuthority", localAuthority, "count", len(services))
	return services, nil
}

func (s *SQLiteStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES (?, ?, ?)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	slog.Debug("SQLiteStore AddResponse succeeded", "from", r.From)
	return nil
}

func (s *SQLiteStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("SQLiteStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("SQLiteStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	slog.Debug("SQLiteStore GetResponses succeeded", "count", len(responses))
	return responses, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
