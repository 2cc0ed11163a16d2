// Package postgres provides a durable adapters.Persistence implementation
// backed by PostgreSQL. Grounded on infrastructure/database/supabase_client.go's
// Config/NewClient shape (explicit Config struct, env fallback, context-scoped
// calls), adapted from Supabase's REST client to a direct jmoiron/sqlx
// connection since this engine owns its schema instead of proxying through
// Supabase's PostgREST layer.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/tidwall/gjson"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/adapters"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds the connection parameters for a Store.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFromEnv builds a Config whose DSN is read from DATABASE_URL; the
// pool settings are fixed defaults (25 open, 5 idle, 30m lifetime) and are
// not read from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		DSN:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	return cfg
}

// Store is a PostgreSQL-backed adapters.Persistence.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool, runs pending migrations, and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *sqlx.DB without running migrations,
// used by tests against go-sqlmock.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func migrateUp(db *sql.DB) error {
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendEvent inserts a new row into tenant_events.
func (s *Store) AppendEvent(ctx context.Context, tenantID trade.TenantID, event adapters.PersistedEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_events (tenant_id, seq, ts, event_type, payload) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, seq) DO NOTHING`,
		string(tenantID), event.Seq, event.Ts, event.Type, payloadJSON(event.Payload))
	if err != nil {
		return fmt.Errorf("postgres: append event: %w", err)
	}
	return nil
}

// SaveSnapshot upserts tenant_snapshots and prunes events folded into it.
func (s *Store) SaveSnapshot(ctx context.Context, tenantID trade.TenantID, seq uint64, payload []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tenant_snapshots (tenant_id, seq, payload, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (tenant_id) DO UPDATE SET seq = EXCLUDED.seq, payload = EXCLUDED.payload, updated_at = now()`,
		string(tenantID), seq, payloadJSON(payload)); err != nil {
		return fmt.Errorf("postgres: save snapshot: upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tenant_events WHERE tenant_id = $1 AND seq <= $2`,
		string(tenantID), seq); err != nil {
		return fmt.Errorf("postgres: save snapshot: prune: %w", err)
	}
	return tx.Commit()
}

// LoadLatestSnapshot returns the most recent snapshot for tenantID, if any.
func (s *Store) LoadLatestSnapshot(ctx context.Context, tenantID trade.TenantID) (uint64, []byte, bool, error) {
	var row struct {
		Seq     uint64 `db:"seq"`
		Payload []byte `db:"payload"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT seq, payload FROM tenant_snapshots WHERE tenant_id = $1`, string(tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("postgres: load snapshot: %w", err)
	}
	return row.Seq, row.Payload, true, nil
}

// ReplayEventsSince returns every event with seq > since, ordered ascending.
func (s *Store) ReplayEventsSince(ctx context.Context, tenantID trade.TenantID, since uint64) ([]adapters.PersistedEvent, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT seq, ts, event_type, payload FROM tenant_events
		 WHERE tenant_id = $1 AND seq > $2 ORDER BY seq ASC`,
		string(tenantID), since)
	if err != nil {
		return nil, fmt.Errorf("postgres: replay events: %w", err)
	}
	defer rows.Close()

	var out []adapters.PersistedEvent
	for rows.Next() {
		var rec struct {
			Seq       uint64    `db:"seq"`
			Ts        time.Time `db:"ts"`
			EventType string    `db:"event_type"`
			Payload   []byte    `db:"payload"`
		}
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("postgres: replay events: scan: %w", err)
		}
		out = append(out, adapters.PersistedEvent{
			Seq:     rec.Seq,
			Ts:      rec.Ts,
			Type:    rec.EventType,
			Payload: rec.Payload,
		})
	}
	return out, rows.Err()
}

// payloadJSON normalizes payload to a valid JSON value for the jsonb column,
// falling back to a quoted string when it isn't already JSON (gjson.Valid is
// a cheap check that avoids a full unmarshal round-trip just to validate).
func payloadJSON(payload []byte) []byte {
	if len(payload) == 0 {
		return []byte("null")
	}
	if gjson.ValidBytes(payload) {
		return payload
	}
	quoted, _ := json.Marshal(string(payload))
	return quoted
}

var _ adapters.Persistence = (*Store)(nil)
