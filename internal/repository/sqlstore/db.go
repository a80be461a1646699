// Package sqlstore implements the repository interfaces on database/sql.
// The same SQL runs on SQLite (modernc.org/sqlite, pure Go) and PostgreSQL
// (github.com/lib/pq); queries are written with "?" placeholders and
// rebound to "$n" for Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style and driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DB couples a connection pool with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database and verifies the connection.
//
// Go Learning Note — Blank Imports:
// `_ "modernc.org/sqlite"` imports a package only for its init() side effect:
// registering a driver with database/sql under a name ("sqlite", "postgres").
// sql.Open then looks the driver up by that name. The application code only
// ever talks to the generic *sql.DB.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == SQLite {
		if strings.Contains(dsn, ":memory:") {
			// Every new connection to :memory: is a fresh, empty database.
			db.SetMaxOpenConns(1)
		} else {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, fmt.Errorf("enable WAL: %w", err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for Postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		pk           TEXT NOT NULL,
		sk           TEXT NOT NULL,
		cell         TEXT NOT NULL,
		side         TEXT NOT NULL,
		lat          DOUBLE PRECISION NOT NULL,
		lng          DOUBLE PRECISION NOT NULL,
		count_bucket TEXT NOT NULL,
		user_id      TEXT,
		confidence   DOUBLE PRECISION NOT NULL,
		expires_at   BIGINT NOT NULL,
		source       TEXT NOT NULL,
		created_at   BIGINT NOT NULL,
		PRIMARY KEY (pk, sk)
	)`,
	`CREATE INDEX IF NOT EXISTS reports_user_idx ON reports (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS reports_expiry_idx ON reports (expires_at)`,
	`CREATE TABLE IF NOT EXISTS confirmations (
		report_id  TEXT NOT NULL,
		sk         TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (report_id, sk)
	)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		user_id  TEXT NOT NULL,
		start_ts TEXT NOT NULL,
		car_lat  DOUBLE PRECISION NOT NULL,
		car_lng  DOUBLE PRECISION NOT NULL,
		note     TEXT,
		end_ts   BIGINT,
		PRIMARY KEY (user_id, start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		conn_id    TEXT PRIMARY KEY,
		area       TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_area_idx ON subscriptions (area)`,
}

// Migrate creates every table and index the stores need. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
