// Package store provides durable storage for participants, daily prize
// counters, and the sequence counter.
//
// SQLite is used with WAL mode and a single writer connection; the claim
// commit runs as one transaction so counters can never drift from committed
// outcomes.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a participant does not exist.
	ErrNotFound = errors.New("store: participant not found")
	// ErrCapacityExhausted is returned by CommitClaim when the prize tier in
	// the decision has no stock left at commit time. The claim is not
	// committed; the caller must re-decide.
	ErrCapacityExhausted = errors.New("store: prize capacity exhausted")
	// ErrOutcomeCommitted is returned by CommitClaim when the participant
	// already has a committed outcome. Nothing is changed.
	ErrOutcomeCommitted = errors.New("store: outcome already committed")
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas and the schema.
// Safe to call repeatedly on the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection avoids
	// SQLITE_BUSY under concurrent claims.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Purge deletes all participants, stats, and resets the sequence counter.
// Administrative use only.
func (s *Store) Purge(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM participants",
		"DELETE FROM daily_stats",
		"UPDATE sequence_counter SET value = 0 WHERE id = 1",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}
