// Package sqlite persists the ledger event log. The log is the single
// durable artifact: on startup the daemon replays it through the engine to
// rebuild in-memory state, so the schema never needs to mirror the domain
// model.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// DB wraps the SQLite handle. It implements domain.EventSink.
type DB struct {
	db *sql.DB
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Append-only event log. seq is the replay order; id is the
		// engine-assigned event identity and survives replay.
		`CREATE TABLE IF NOT EXISTS events (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			type         TEXT NOT NULL,
			ts           TEXT NOT NULL,
			user         TEXT NOT NULL,
			counterparty TEXT NOT NULL DEFAULT '',
			amount       INTEGER NOT NULL DEFAULT 0,
			package_tier INTEGER NOT NULL DEFAULT 0,
			source       TEXT NOT NULL DEFAULT '',
			pool         TEXT NOT NULL DEFAULT '',
			weighting    TEXT NOT NULL DEFAULT '',
			reinvested   INTEGER NOT NULL DEFAULT 0,
			fee          INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
	}
}

// Open opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes internally but a single connection
	// avoids SQLITE_BUSY on concurrent appends.
	handle.SetMaxOpenConns(1)

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// ─── Event Log Operations ───────────────────────────────────────────────────

// Append durably writes one event. Sequence numbers are assigned by the
// database and are dense from 1.
func (db *DB) Append(ev domain.Event) error {
	_, err := db.db.Exec(`
		INSERT INTO events (id, type, ts, user, counterparty, amount, package_tier, source, pool, weighting, reinvested, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Type), ev.Timestamp.UTC().Format(time.RFC3339Nano),
		string(ev.User), string(ev.Counterparty), int64(ev.Amount), ev.PackageTier,
		ev.Source, string(ev.Pool), ev.Weighting, int64(ev.Reinvested), int64(ev.Fee))
	if err != nil {
		return fmt.Errorf("sqlite: append event %s: %w", ev.ID, err)
	}
	return nil
}

// Events returns the full log in append order. Used for startup replay.
func (db *DB) Events() ([]domain.Event, error) {
	rows, err := db.db.Query(`
		SELECT seq, id, type, ts, user, counterparty, amount, package_tier, source, pool, weighting, reinvested, fee
		FROM events ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventsByUser returns events where the address is the principal party,
// newest first, capped at limit.
func (db *DB) EventsByUser(addr domain.Address, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.db.Query(`
		SELECT seq, id, type, ts, user, counterparty, amount, package_tier, source, pool, weighting, reinvested, fee
		FROM events WHERE user = ? ORDER BY seq DESC LIMIT ?
	`, string(domain.NormalizeAddress(addr)), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load events for %s: %w", addr, err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RecentEvents returns the newest events across all users.
func (db *DB) RecentEvents(limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.db.Query(`
		SELECT seq, id, type, ts, user, counterparty, amount, package_tier, source, pool, weighting, reinvested, fee
		FROM events ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load recent events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventCount returns the number of logged events.
func (db *DB) EventCount() (int64, error) {
	var n int64
	err := db.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var (
		ev                      domain.Event
		typ, ts, user, cp, pool string
		amount, reinvested, fee int64
	)
	if err := rows.Scan(&ev.Seq, &ev.ID, &typ, &ts, &user, &cp,
		&amount, &ev.PackageTier, &ev.Source, &pool, &ev.Weighting, &reinvested, &fee); err != nil {
		return domain.Event{}, fmt.Errorf("sqlite: scan event: %w", err)
	}
	ev.Type = domain.EventType(typ)
	ev.User = domain.Address(user)
	ev.Counterparty = domain.Address(cp)
	ev.Pool = domain.PoolName(pool)
	ev.Amount = domain.Amount(amount)
	ev.Reinvested = domain.Amount(reinvested)
	ev.Fee = domain.Amount(fee)

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlite: event %s has bad timestamp %q: %w", ev.ID, ts, err)
	}
	ev.Timestamp = parsed
	return ev, nil
}
