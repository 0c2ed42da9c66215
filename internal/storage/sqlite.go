//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"amari/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveComputation(ctx context.Context, c model.Computation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeComputation(c)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO computations (name, id, type, size, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			type = excluded.type,
			size = excluded.size,
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, c.Name, c.ID, c.Type, len(c.Payload), c.CreatedAt.UnixNano(), c.SchemaVersion, c.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetComputation(ctx context.Context, name string) (model.Computation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Computation{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM computations WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Computation{}, false, nil
		}
		return model.Computation{}, false, err
	}

	c, err := DecodeComputation(payload)
	if err != nil {
		return model.Computation{}, false, fmt.Errorf("decode computation %s: %w", name, err)
	}
	return c, true, nil
}

func (s *SQLiteStore) ListComputations(ctx context.Context) ([]model.ComputationSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM computations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ComputationSummary{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		c, err := DecodeComputation(payload)
		if err != nil {
			return nil, fmt.Errorf("decode computation: %w", err)
		}
		out = append(out, c.Summary())
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteComputation(ctx context.Context, name string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM computations WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) SaveCayleyTable(ctx context.Context, r model.CayleyRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCayleyRecord(r)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cayley_tables (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, r.ID, r.SchemaVersion, r.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetCayleyTable(ctx context.Context, id string) (model.CayleyRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CayleyRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM cayley_tables WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CayleyRecord{}, false, nil
		}
		return model.CayleyRecord{}, false, err
	}

	r, err := DecodeCayleyRecord(payload)
	if err != nil {
		return model.CayleyRecord{}, false, fmt.Errorf("decode cayley table %s: %w", id, err)
	}
	return r, true, nil
}

func (s *SQLiteStore) ListCayleyTables(ctx context.Context) ([]model.CayleySummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM cayley_tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CayleySummary{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := DecodeCayleyRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("decode cayley table: %w", err)
		}
		out = append(out, r.Summary())
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCayleyTables(ctx context.Context, id string) (int, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if id == "" {
		res, err = db.ExecContext(ctx, `DELETE FROM cayley_tables`)
	} else {
		res, err = db.ExecContext(ctx, `DELETE FROM cayley_tables WHERE id = ?`, id)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM computations; DELETE FROM cayley_tables;`)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS computations (
			name TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			type TEXT NOT NULL,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS cayley_tables (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
