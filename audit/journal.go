// Package audit keeps a queryable SQLite journal of engine events and
// rejected commands.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

//go:embed schema.sql
var schemaSQL string

var _ gacha.Observer = (*Journal)(nil)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("audit: journal closed")

// Journal is an engine observer that writes to SQLite.
// Uses WAL mode so readers do not block the engine.
type Journal struct {
	db  *sql.DB
	log logr.Logger
	now func() time.Time
}

// Rejection is one rejected command.
type Rejection struct {
	ID      int64
	Op      gacha.Op
	Pool    gacha.PoolID
	Kind    string
	Code    string
	Message string
	At      time.Time
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	Pool     gacha.PoolID
	Kind     gacha.EventKind
	Actor    identity.ID
	AfterSeq uint64
	Limit    int
}

// Open creates or opens the journal at path. Write failures inside the
// observer callbacks are reported to log.
func Open(path string, log logr.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	return &Journal{db: db, log: log.WithName("audit"), now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("audit: execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Committed implements gacha.Observer.
func (j *Journal) Committed(ctx context.Context, events []gacha.Event) {
	if err := j.Record(ctx, events); err != nil {
		j.log.Error(err, "record events", "count", len(events))
	}
}

// Rejected implements gacha.Observer.
func (j *Journal) Rejected(ctx context.Context, op gacha.Op, pool gacha.PoolID, err error) {
	if werr := j.RecordRejection(ctx, op, pool, err); werr != nil {
		j.log.Error(werr, "record rejection", "op", string(op))
	}
}

// Record writes events in one transaction. Events already present are
// skipped, so replaying a batch is harmless.
func (j *Journal) Record(ctx context.Context, events []gacha.Event) error {
	if j.db == nil {
		return ErrClosed
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, pool, seq, kind, actor, slot, at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("audit: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		data, err := gacha.MarshalEvent(ev)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID,
			int64(ev.Pool),
			int64(ev.Seq),
			string(ev.Kind),
			ev.Actor.String(),
			int64(ev.Slot),
			ev.At.UTC().Format(time.RFC3339Nano),
			data,
		); err != nil {
			return fmt.Errorf("audit: insert event %s: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("audit: commit: %w", err)
	}
	return nil
}

// RecordRejection writes one rejected command.
func (j *Journal) RecordRejection(ctx context.Context, op gacha.Op, pool gacha.PoolID, cause error) error {
	if j.db == nil {
		return ErrClosed
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO rejections (op, pool, kind, code, message, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		string(op),
		int64(pool),
		gacha.KindOf(cause).String(),
		gacha.CodeOf(cause),
		cause.Error(),
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("audit: insert rejection: %w", err)
	}
	return nil
}

// Events returns the events matching f ordered by pool then seq.
func (j *Journal) Events(ctx context.Context, f Filter) ([]gacha.Event, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	var (
		where []string
		args  []any
	)
	if f.Pool != 0 {
		where = append(where, "pool = ?")
		args = append(args, int64(f.Pool))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.Actor.IsZero() {
		where = append(where, "actor = ?")
		args = append(args, f.Actor.String())
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, int64(f.AfterSeq))
	}

	query := "SELECT data FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pool ASC, seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	events := []gacha.Event{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		ev, err := gacha.UnmarshalEvent(data)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

// Rejections returns rejected commands for pool (all pools when zero),
// oldest first.
func (j *Journal) Rejections(ctx context.Context, pool gacha.PoolID) ([]Rejection, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	query := "SELECT id, op, pool, kind, code, message, at FROM rejections"
	var args []any
	if pool != 0 {
		query += " WHERE pool = ?"
		args = append(args, int64(pool))
	}
	query += " ORDER BY id ASC"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query rejections: %w", err)
	}
	defer rows.Close()

	out := []Rejection{}
	for rows.Next() {
		var (
			r      Rejection
			op, at string
			poolID int64
		)
		if err := rows.Scan(&r.ID, &op, &poolID, &r.Kind, &r.Code, &r.Message, &at); err != nil {
			return nil, fmt.Errorf("audit: scan rejection: %w", err)
		}
		r.Op = gacha.Op(op)
		r.Pool = gacha.PoolID(poolID)
		if r.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("audit: parse rejection time: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate rejections: %w", err)
	}
	return out, nil
}
