package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

var _ ports.ProgramStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	name TEXT PRIMARY KEY,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clauses (
	id TEXT PRIMARY KEY,
	program TEXT NOT NULL,
	body TEXT NOT NULL,
	FOREIGN KEY(program) REFERENCES programs(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clauses_program ON clauses(program, id);
`

// Store implements ports.ProgramStore on SQLite.
// Clause rows are keyed by monotonic ULIDs, so id order is assertion order.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (or creates) the database at path with WAL mode and foreign keys enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Save replaces the program in a single transaction.
func (s *Store) Save(ctx context.Context, name string, clauses []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := remove(ctx, tx, name); err != nil {
		return fmt.Errorf("failed to replace program %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO programs (name, saved_at) VALUES (?, ?)`,
		name, now.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert program %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO clauses (id, program, body) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, clause := range clauses {
		id, err := s.newID(now)
		if err != nil {
			return fmt.Errorf("failed to allocate clause id: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, name, clause); err != nil {
			return fmt.Errorf("failed to insert clause: %w", err)
		}
	}
	return tx.Commit()
}

// Load returns the clauses ordered by id.
func (s *Store) Load(ctx context.Context, name string) ([]string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM programs WHERE name = ?`, name).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProgramNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up program %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT body FROM clauses WHERE program = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load program %s: %w", name, err)
	}
	defer rows.Close()

	clauses := []string{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		clauses = append(clauses, body)
	}
	return clauses, rows.Err()
}

// Delete removes a program and its clauses.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := remove(ctx, tx, name); err != nil {
		return fmt.Errorf("failed to delete program %s: %w", name, err)
	}
	return tx.Commit()
}

// remove does not rely on the cascade: foreign_keys is per connection.
func remove(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM clauses WHERE program = ?`, name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE name = ?`, name)
	return err
}

// List returns program names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
