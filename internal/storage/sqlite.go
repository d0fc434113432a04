package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every run in a single database file.
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
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// a single connection keeps writes ordered
	db.SetMaxOpenConns(1)

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

func (s *SQLiteStore) Exists(ctx context.Context, id plasma.RunID) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, string(id)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, id plasma.RunID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"runs", "positions", "rsq", "histograms", "sessions"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, string(id)); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveConfiguration(ctx context.Context, id plasma.RunID, c plasma.Configuration) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, n) VALUES (?, ?)
			ON CONFLICT(run_id) DO UPDATE SET n = excluded.n
		`, string(id), len(c)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE run_id = ?`, string(id)); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO positions (run_id, idx, x, y) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, z := range c {
			if _, err := stmt.ExecContext(ctx, string(id), i, real(z), imag(z)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadConfiguration(ctx context.Context, id plasma.RunID) (plasma.Configuration, bool, error) {
	ok, err := s.Exists(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}

	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `SELECT x, y FROM positions WHERE run_id = ? ORDER BY idx`, string(id))
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	c := make(plasma.Configuration, 0)
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, false, err
		}
		c = append(c, complex(x, y))
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *SQLiteStore) AppendRSq(ctx context.Context, id plasma.RunID, values []float64) error {
	if len(values) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int64
		err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM rsq WHERE run_id = ?`, string(id)).Scan(&next)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO rsq (run_id, seq, value) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for k, v := range values {
			if _, err := stmt.ExecContext(ctx, string(id), next+int64(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadRSq(ctx context.Context, id plasma.RunID) ([]float64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT value FROM rsq WHERE run_id = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *SQLiteStore) SaveHistogram(ctx context.Context, id plasma.RunID, h *metrics.Histogram) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(h.Counts)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO histograms (run_id, binwidth, xmax_hist, nbins, counts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			binwidth = excluded.binwidth,
			xmax_hist = excluded.xmax_hist,
			nbins = excluded.nbins,
			counts = excluded.counts
	`, string(id), h.Meta.BinWidth, h.Meta.XMax, h.Meta.NBins, payload)
	return err
}

func (s *SQLiteStore) LoadHistogram(ctx context.Context, id plasma.RunID) (*metrics.Histogram, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var meta metrics.HistogramMeta
	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT binwidth, xmax_hist, nbins, counts FROM histograms WHERE run_id = ?
	`, string(id)).Scan(&meta.BinWidth, &meta.XMax, &meta.NBins, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	h := metrics.NewHistogram(meta)
	if err := json.Unmarshal(payload, &h.Counts); err != nil {
		return nil, false, fmt.Errorf("decode histogram %s: %w", id, err)
	}
	if len(h.Counts) != meta.NBins {
		return nil, false, fmt.Errorf("decode histogram %s: expected %d rows, got %d", id, meta.NBins, len(h.Counts))
	}
	for i, row := range h.Counts {
		if len(row) != meta.NBins {
			return nil, false, fmt.Errorf("decode histogram %s: row %d: expected %d columns, got %d", id, i, meta.NBins, len(row))
		}
	}
	return h, true, nil
}

func (s *SQLiteStore) AppendSession(ctx context.Context, id plasma.RunID, session Session) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (run_id, session_id, started_at, payload) VALUES (?, ?, ?, ?)
	`, string(id), session.ID, session.StartedAt.UnixNano(), payload)
	return err
}

func (s *SQLiteStore) Sessions(ctx context.Context, id plasma.RunID) ([]Session, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM sessions WHERE run_id = ? ORDER BY rowid`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var session Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, fmt.Errorf("decode session for %s: %w", id, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context) ([]plasma.RunID, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]plasma.RunID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, plasma.RunID(id))
	}
	return ids, rows.Err()
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
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			n INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS positions (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
		CREATE TABLE IF NOT EXISTS rsq (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
		CREATE TABLE IF NOT EXISTS histograms (
			run_id TEXT PRIMARY KEY,
			binwidth REAL NOT NULL,
			xmax_hist REAL NOT NULL,
			nbins INTEGER NOT NULL,
			counts BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sessions (
			run_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
