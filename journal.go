package batchrename

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const DefaultBusyTimeoutMs = 5000

// Journal keeps the undo maps of committed rename batches. At most one batch
// per folder is pending; recording a new batch supersedes the previous one.
type Journal interface {
	Record(ctx context.Context, folder string, undoMap []UndoEntry) (string, error)
	Latest(ctx context.Context, folder string) (*JournalBatch, error)
	Complete(ctx context.Context, id string, remaining []UndoEntry) error
	History(ctx context.Context, folder string, limit int) ([]JournalBatch, error)
	Close() error
}

// SQLiteJournal implements Journal on a SQLite database file.
type SQLiteJournal struct {
	path string
	db   *sql.DB
	log  *logrus.Entry
}

// OpenSQLiteJournal opens or creates the journal database at path.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	log := WithName("journal").WithField("path", path)
	log.Debug("Opening SQLite journal")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{path: path, db: db, log: log}
	if err := j.init(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) init() error {
	if _, err := j.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := j.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", DefaultBusyTimeoutMs)); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('pending', 'undone', 'superseded'))
	)`); err != nil {
		return fmt.Errorf("failed to create batches table: %w", err)
	}

	if _, err := j.db.Exec(`CREATE INDEX IF NOT EXISTS idx_batches_folder ON batches(folder, created_at)`); err != nil {
		return fmt.Errorf("failed to create batches index: %w", err)
	}

	if _, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		batch_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		from_name TEXT NOT NULL,
		to_name TEXT NOT NULL,
		PRIMARY KEY (batch_id, seq)
	)`); err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	return nil
}

func (j *SQLiteJournal) Path() string {
	return j.path
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record stores undoMap as the pending batch for folder and returns its ID.
// An empty map records nothing and returns an empty ID.
func (j *SQLiteJournal) Record(ctx context.Context, folder string, undoMap []UndoEntry) (string, error) {
	if len(undoMap) == 0 {
		return "", nil
	}

	id := uuid.NewString()
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE batches SET status = 'superseded' WHERE folder = ? AND status = 'pending'`, folder); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, folder, created_at, status) VALUES (?, ?, ?, 'pending')`,
			id, folder, time.Now().UnixNano()); err != nil {
			return err
		}
		return insertEntries(ctx, tx, id, undoMap)
	})
	if err != nil {
		return "", fmt.Errorf("failed to record batch: %w", err)
	}

	j.log.WithFields(logrus.Fields{
		"batch":   id,
		"folder":  folder,
		"entries": len(undoMap),
	}).Debug("Recorded rename batch")
	return id, nil
}

// Latest returns the pending batch for folder, or ErrNoUndo.
func (j *SQLiteJournal) Latest(ctx context.Context, folder string) (*JournalBatch, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, folder, created_at, status FROM batches
		 WHERE folder = ? AND status = 'pending'
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, folder)

	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoUndo
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	if batch.Entries, err = j.entries(ctx, batch.ID); err != nil {
		return nil, err
	}
	return batch, nil
}

// Complete closes a batch after an undo. Entries that failed to revert are
// kept pending so the undo can be retried.
func (j *SQLiteJournal) Complete(ctx context.Context, id string, remaining []UndoEntry) error {
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE batch_id = ?`, id); err != nil {
			return err
		}
		if len(remaining) > 0 {
			return insertEntries(ctx, tx, id, remaining)
		}
		_, err := tx.ExecContext(ctx, `UPDATE batches SET status = 'undone' WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to complete batch %s: %w", id, err)
	}
	return nil
}

// History lists the batches recorded for folder, newest first. A limit of
// zero or less returns every batch.
func (j *SQLiteJournal) History(ctx context.Context, folder string, limit int) ([]JournalBatch, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, folder, created_at, status FROM batches
		 WHERE folder = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, folder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	batches := []JournalBatch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		batches = append(batches, *batch)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range batches {
		if batches[i].Entries, err = j.entries(ctx, batches[i].ID); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

func (j *SQLiteJournal) entries(ctx context.Context, id string) ([]UndoEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT from_name, to_name FROM entries WHERE batch_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	entries := []UndoEntry{}
	for rows.Next() {
		var e UndoEntry
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("failed to read entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *SQLiteJournal) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertEntries(ctx context.Context, tx *sql.Tx, id string, entries []UndoEntry) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (batch_id, seq, from_name, to_name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, id, i, e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*JournalBatch, error) {
	var (
		batch     JournalBatch
		createdAt int64
		status    string
	)
	if err := row.Scan(&batch.ID, &batch.Folder, &createdAt, &status); err != nil {
		return nil, err
	}
	batch.CreatedAt = time.Unix(0, createdAt)
	batch.Status = BatchStatus(status)
	return &batch, nil
}
