package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nerrad567/chimera-core/internal/infrastructure/database"
)

// SQLiteStore keeps one row per device in the devices table, with the
// device's JSON document in the document column and its registry position
// in position. The schema comes from the embedded migrations.
//
// Thread Safety:
//   - Update runs inside one transaction and under the store mutex.
type SQLiteStore struct {
	db     *database.DB
	mu     sync.Mutex
	logger Logger
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// NewSQLiteStore returns a store over an opened and migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *SQLiteStore) SetLogger(logger Logger) {
	s.logger = logger
}

// HealthCheck confirms the database connection is usable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Read loads the registry in stored order.
func (s *SQLiteStore) Read(ctx context.Context) ([]Device, error) {
	return readRows(ctx, s.db)
}

// Write replaces every row in one transaction.
func (s *SQLiteStore) Write(ctx context.Context, devices []Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return writeRows(ctx, tx, devices)
	})
}

// Update reads, applies fn and writes back inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func([]Device) ([]Device, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fnErr error
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		devices, err := readRows(ctx, tx)
		if err != nil {
			return err
		}
		next, err := fn(devices)
		if err != nil {
			fnErr = err
			return err
		}
		return writeRows(ctx, tx, next)
	})
	if fnErr != nil {
		return fnErr
	}
	return err
}

// Count returns the number of stored devices.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting devices: %w", ErrStorage, err)
	}
	return n, nil
}

// SeedFromFile imports a JSON registry document when the table is empty.
// It reports whether anything was imported.
func (s *SQLiteStore) SeedFromFile(ctx context.Context, path string) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: reading seed %s: %w", ErrStorage, path, err)
	}
	devices, err := decodeRegistry(data, path)
	if err != nil {
		return false, err
	}
	if err := s.Write(ctx, devices); err != nil {
		return false, err
	}

	s.logger.Info("registry seeded", "source", path, "devices", len(devices))
	return true, nil
}

// inTx runs fn in a transaction, wrapping failures from the transaction
// itself as storage errors.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := s.db.WithTx(ctx, fn)
	if err != nil && !errors.Is(err, ErrStorage) {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return err
}

func readRows(ctx context.Context, q queryer) ([]Device, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, document FROM devices ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: querying devices: %w", ErrStorage, err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		var id int
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("%w: scanning device row: %w", ErrStorage, err)
		}
		var d Device
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			return nil, fmt.Errorf("%w: decoding device %d: %w", ErrStorage, id, err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating devices: %w", ErrStorage, err)
	}
	return devices, nil
}

func writeRows(ctx context.Context, tx *sql.Tx, devices []Device) error {
	if err := checkRegistry(devices); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM devices"); err != nil {
		return fmt.Errorf("%w: clearing devices: %w", ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO devices (id, position, document, updated_at) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", ErrStorage, err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, d := range devices {
		doc, err := encodeJSON(d)
		if err != nil {
			return fmt.Errorf("%w: encoding device %d: %w", ErrStorage, d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, i, string(doc), now); err != nil {
			return fmt.Errorf("%w: inserting device %d: %w", ErrStorage, d.ID, err)
		}
	}
	return nil
}
