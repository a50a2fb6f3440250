// Package registry provides the persisted user/device registry backing the
// presence pipeline. Users are stored as documents keyed by (workspace, user
// id) in PostgreSQL, with the device list held as a JSONB column.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/metrics"
)

const (
	// Default connection configuration values.
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// schema is applied on startup; idempotent so restarts are safe.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	workspace_id TEXT        NOT NULL,
	user_id      TEXT        NOT NULL,
	display_name TEXT        NOT NULL,
	devices      JSONB       NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (workspace_id, user_id)
)`

// Config holds registry store configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultConfig returns the default registry configuration. Database name,
// username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}
}

// Store provides access to the user registry.
type Store struct {
	db   *sqlx.DB
	prom *metrics.PrometheusMetrics
}

// SetMetrics attaches a Prometheus exporter so query counts and durations
// show up on /metrics. Must be called before the store is shared.
func (s *Store) SetMetrics(prom *metrics.PrometheusMetrics) {
	s.prom = prom
}

// observe records one registry operation in both the in-process registry
// and, when attached, the Prometheus exporter. Meant for deferred use with
// a named error return.
func (s *Store) observe(operation string, start time.Time, errp *error) {
	duration := time.Since(start)
	success := *errp == nil
	metrics.RecordRegistryQuery(operation, duration, success)

	if s.prom != nil {
		status := "success"
		if !success {
			status = "error"
		}
		s.prom.ObserveRegistryQuery(operation, status, duration)
	}
}

// Connect establishes a connection to the registry database. Returns
// sanitized errors that don't leak credentials or DSN details.
func Connect(ctx context.Context, config *Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database,
		config.Username, config.Password, config.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.ErrRegistryConnection(err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate ensures the registry schema exists.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.WrapRegistryError(errors.CodeRegistryMigration,
			"Failed to ensure registry schema", err)
	}
	return nil
}

// Ping verifies connectivity to the store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.ErrRegistryConnection(err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListUsers returns all users registered in a workspace, oldest first.
func (s *Store) ListUsers(ctx context.Context, workspaceID string) (users []User, err error) {
	defer s.observe("list_users", time.Now(), &err)

	const query = `
		SELECT user_id, display_name, devices, created_at, updated_at
		FROM users
		WHERE workspace_id = $1
		ORDER BY created_at, user_id`

	if err = s.db.SelectContext(ctx, &users, query, workspaceID); err != nil {
		return nil, sanitizeError("list_users", err)
	}
	return users, nil
}

// GetUser fetches a single user document. A missing user surfaces as a
// NotFound registry error, not a nil/nil pair.
func (s *Store) GetUser(ctx context.Context, workspaceID, userID string) (_ *User, err error) {
	defer s.observe("get_user", time.Now(), &err)

	const query = `
		SELECT user_id, display_name, devices, created_at, updated_at
		FROM users
		WHERE workspace_id = $1 AND user_id = $2`

	var user User
	if err = s.db.GetContext(ctx, &user, query, workspaceID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound(userID)
		}
		return nil, sanitizeError("get_user", err)
	}
	return &user, nil
}

// UpsertUser writes a full user document keyed by (workspace, user id).
// Creation and edit share these semantics: the stored record is overwritten
// wholesale, with created_at preserved on conflict.
func (s *Store) UpsertUser(ctx context.Context, workspaceID string, user *User) (err error) {
	defer s.observe("upsert_user", time.Now(), &err)

	const query = `
		INSERT INTO users (workspace_id, user_id, display_name, devices, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			devices = EXCLUDED.devices,
			updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, query,
		workspaceID, user.ID, user.Name, user.Devices, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return sanitizeError("upsert_user", err)
	}
	return nil
}

// DeleteUser removes a user document. Deleting a missing user is a NotFound
// error so callers can distinguish it from a clean delete.
func (s *Store) DeleteUser(ctx context.Context, workspaceID, userID string) (err error) {
	defer s.observe("delete_user", time.Now(), &err)

	const query = `DELETE FROM users WHERE workspace_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, workspaceID, userID)
	if err != nil {
		return sanitizeError("delete_user", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.ErrUserNotFound(userID)
	}
	return nil
}

// sanitizeError converts raw database errors into safe registry errors that
// don't expose SQL details to API clients. The original error is preserved
// in the Cause field for internal logging.
func sanitizeError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var regErr *errors.RegistryError
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			regErr = errors.NewRegistryError(errors.CodeConflict, "User already exists")
		case "23502", "23514": // not_null_violation, check_violation
			regErr = errors.NewRegistryError(errors.CodeValidation, "User document failed validation")
		case "57014": // query_canceled
			regErr = errors.NewRegistryError(errors.CodeCanceled, "Registry operation was canceled")
		case "08000", "08003", "08006": // connection errors
			regErr = errors.NewRegistryError(errors.CodeRegistryConnection, "Registry connection error")
		default:
			regErr = errors.NewRegistryError(errors.CodeRegistryQuery,
				fmt.Sprintf("Registry operation failed: %s", operation))
		}
	} else {
		regErr = errors.NewRegistryError(errors.CodeRegistryQuery,
			fmt.Sprintf("Registry operation failed: %s", operation))
	}

	regErr.Operation = operation
	regErr.Cause = err
	return regErr
}
