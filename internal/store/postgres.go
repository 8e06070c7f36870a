// Package store provides storage backends for SafePath.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/SafePath-UK/SafePath/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveSession(state models.SessionState) error {
	data, err := state.ToJSON()
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "session", state.ID)
		return fmt.Errorf("failed to marshal session %s: %w", state.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, state, started_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state`,
		state.ID, data, state.StartedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "session", state.ID)
		return fmt.Errorf("failed to save session %s: %w", state.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "session", state.ID, "gate", state.CurrentGate)
	return nil
}

func (s *PostgresStore) GetSession(id string) (models.SessionState, error) {
	var data string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "session", id)
		return models.SessionState{}, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "session", id)
		return models.SessionState{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	var state models.SessionState
	if err := state.FromJSON(data); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "session", id)
		return models.SessionState{}, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return state, nil
}

func (s *PostgresStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "session", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "session", id)
	return nil
}

func (s *PostgresStore) AddService(svc models.Service) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO services (name, local_authority, category, phone, description)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		svc.Name, svc.LocalAuthority, svc.Category, svc.Phone, svc.Description).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore AddService failed", "error", err, "name", svc.Name)
		return 0, fmt.Errorf("failed to insert service %s: %w", svc.Name, err)
	}
	slog.Debug("PostgresStore AddService succeeded", "id", id, "name", svc.Name)
	return id, nil
}

func (s *PostgresStore) ListServices(localAuthority string) ([]models.Service, error) {
	rows, err := s.db.Query(
		`SELECT id, name, local_authority, category, phone, description FROM services
		 WHERE local_authority = $1 OR local_authority = '' ORDER BY id`, localAuthority)
	if err != nil {
		slog.Error("PostgresStore ListServices query failed", "error", err)
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			slog.Error("PostgresStore ListServices scan failed", "error", err)
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListServices rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate service rows: %w", err)
	}
	slog.Debug("PostgresStore ListServices succeeded", "localAuthority", localAuthority, "count", len(services))
	return services, nil
}

func (s *PostgresStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES ($1, $2, $3)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	slog.Debug("PostgresStore AddResponse succeeded", "from", r.From)
	return nil
}

func (s *PostgresStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses`)
	if err != nil {
		slog.Error("PostgresStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			slog.Error("PostgresStore GetResponses scan failed", "error", err)
			return nil, err
		}
		responses = append(responses, r)
	}
	slog.Debug("PostgresStore GetResponses succeeded", "count", len(responses))
	return responses, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
