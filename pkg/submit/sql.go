package submit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// WithTable overrides the submissions table (default "submissions").
func WithTable(name string) SinkOption {
	return func(cfg *sinkConfig) {
		if name != "" {
			cfg.table = name
		}
	}
}

// WithDollarPlaceholders switches statements to $N placeholders for
// PostgreSQL drivers.
func WithDollarPlaceholders() SinkOption {
	return func(cfg *sinkConfig) {
		cfg.dollar = true
	}
}

// OpenSQLite opens (creating if needed) a SQLite database for the SQL sink.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("submit: create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("submit: open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("submit: set busy timeout: %w", err)
	}
	return db, nil
}

// OpenPostgres opens a PostgreSQL database through the pgx driver. Pair the
// sink with WithDollarPlaceholders.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("submit: open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("submit: ping postgres: %w", err)
	}
	return db, nil
}

type sqlSink struct {
	db     *sql.DB
	cfg    sinkConfig
	insert string
}

// SQL returns a submit handler that stores each submission as a JSON row.
// The table is created when missing.
func SQL(ctx context.Context, db *sql.DB, options ...SinkOption) (wizard.SubmitHandler, error) {
	if db == nil {
		return nil, errors.New("submit: database is nil")
	}
	cfg := newSinkConfig(options)
	if !tableName.MatchString(cfg.table) {
		return nil, fmt.Errorf("submit: invalid table name %q", cfg.table)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	flow TEXT NOT NULL,
	payload TEXT NOT NULL,
	submitted_at TEXT NOT NULL
)`, cfg.table)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("submit: create table %s: %w", cfg.table, err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (id, flow, payload, submitted_at) VALUES (?, ?, ?, ?)`, cfg.table)
	if cfg.dollar {
		insert = fmt.Sprintf(`INSERT INTO %s (id, flow, payload, submitted_at) VALUES ($1, $2, $3, $4)`, cfg.table)
	}
	s := &sqlSink{db: db, cfg: cfg, insert: insert}
	return wizard.SubmitHandlerFunc(s.store), nil
}

func (s *sqlSink) store(ctx context.Context, values map[string]any) error {
	env := s.cfg.envelope(values)
	payload, err := json.Marshal(env.Values)
	if err != nil {
		return fmt.Errorf("submit: encode payload: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.insert, env.ID, env.Flow, string(payload), env.SubmittedAt.Format(time.RFC3339Nano)); err != nil {
		s.cfg.logger.Warn("submission not stored", "table", s.cfg.table, "error", err)
		return fmt.Errorf("submit: insert into %s: %w", s.cfg.table, err)
	}
	s.cfg.logger.Info("submission stored", "table", s.cfg.table, "id", env.ID)
	return nil
}
