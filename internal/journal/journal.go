// Package journal records quest events to SQLite or PostgreSQL. The journal
// is an audit trail: nothing in the engine reads it back to restore state.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/questengine/internal/config"
	"github.com/lawnchairsociety/questengine/internal/logger"

	_ "modernc.org/sqlite"
)

// Entry is one journaled quest event.
type Entry struct {
	ID         int64
	Session    uuid.UUID
	NPC        string
	Kind       string
	QuestIndex int
	Detail     string
	At         time.Time
}

// Journal wraps the database connection.
type Journal struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
	session uuid.UUID
}

// Open connects to the journal database described by cfg and creates the
// schema if needed. Each Open starts a new session id that tags every entry.
func Open(cfg config.JournalConfig) (*Journal, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.ConnString()
	default:
		dir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, ok := dialect.(*PostgresDialect); ok {
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
	}

	j := &Journal{
		db:      db,
		dialect: dialect,
		qb:      NewQueryBuilder(dialect),
		session: uuid.New(),
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Journal opened", "driver", dialect.DriverName(), "session", j.session.String())
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Session returns the id tagging entries written by this Journal.
func (j *Journal) Session() uuid.UUID {
	return j.session
}

func (j *Journal) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS quest_events (
			id ` + j.dialect.SerialPrimaryKey() + `,
			session TEXT NOT NULL,
			npc TEXT NOT NULL,
			kind TEXT NOT NULL,
			quest_index INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quest_events_npc ON quest_events(npc)`,
	}

	for _, m := range migrations {
		if _, err := j.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Record appends e and returns its id. A zero At is stamped with the
// current time and the session is always this Journal's.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	query := j.qb.BuildWithReturning(
		`INSERT INTO quest_events (session, npc, kind, quest_index, detail, at) VALUES (?, ?, ?, ?, ?, ?)`, "id")
	args := []any{j.session.String(), e.NPC, e.Kind, e.QuestIndex, e.Detail, e.At.UTC()}

	if j.dialect.SupportsLastInsertID() {
		result, err := j.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to record quest event: %w", err)
		}
		return result.LastInsertId()
	}

	var id int64
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to record quest event: %w", err)
	}
	return id, nil
}

// Entries returns the entries for npc in insertion order. An empty npc
// returns every entry.
func (j *Journal) Entries(ctx context.Context, npc string) ([]Entry, error) {
	query := `SELECT id, session, npc, kind, quest_index, detail, at FROM quest_events`
	var args []any
	if npc != "" {
		query += ` WHERE npc = ?`
		args = append(args, npc)
	}
	query += ` ORDER BY id`

	rows, err := j.db.QueryContext(ctx, j.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quest events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var session string
		if err := rows.Scan(&e.ID, &session, &e.NPC, &e.Kind, &e.QuestIndex, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan quest event: %w", err)
		}
		if id, err := uuid.Parse(session); err == nil {
			e.Session = id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Import copies entries into the journal in one transaction, keeping each
// entry's session and timestamp. Ids are reassigned.
func (j *Journal) Import(ctx context.Context, entries []Entry) (int64, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, j.qb.Build(
		`INSERT INTO quest_events (session, npc, kind, quest_index, detail, at) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	var count int64
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Session.String(), e.NPC, e.Kind, e.QuestIndex, e.Detail, e.At.UTC()); err != nil {
			return count, fmt.Errorf("failed to import entry %d: %w", e.ID, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return count, nil
}
