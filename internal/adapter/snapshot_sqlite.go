package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	m "evogen.dev/pkg/evogen/internal/model"
)

// SQLiteSnapshotStore keeps snapshots in a sqlite database file.
type SQLiteSnapshotStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteSnapshotStore returns a store backed by the database at path.
func NewSQLiteSnapshotStore(path string) *SQLiteSnapshotStore {
	return &SQLiteSnapshotStore{path: path}
}

// Init opens the database and creates the schema.
func (s *SQLiteSnapshotStore) Init(ctx context.Context) error {
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

	if err := createSnapshotTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db

	return nil
}

// SaveSnapshot upserts snapshot by id.
func (s *SQLiteSnapshotStore) SaveSnapshot(ctx context.Context, snapshot m.Snapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, class, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			class = excluded.class,
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, snapshot.ID, snapshot.Class, snapshot.CreatedAt.UnixNano(), snapshot.SchemaVersion, snapshot.CodecVersion, payload)

	return err
}

// LatestSnapshot returns the most recently created snapshot of class.
func (s *SQLiteSnapshotStore) LatestSnapshot(ctx context.Context, class string) (m.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return m.Snapshot{}, false, err
	}

	var id string

	var payload []byte

	err = db.QueryRowContext(ctx, `
		SELECT id, payload FROM snapshots WHERE class = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, class).Scan(&id, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m.Snapshot{}, false, nil
		}

		return m.Snapshot{}, false, err
	}

	snapshot, err := DecodeSnapshot(payload)
	if err != nil {
		return m.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", id, err)
	}

	return snapshot, true, nil
}

// ListSnapshots returns the snapshots of class, oldest first.
func (s *SQLiteSnapshotStore) ListSnapshots(ctx context.Context, class string) ([]m.Snapshot, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, payload FROM snapshots WHERE class = ?
		ORDER BY created_at, rowid
	`, class)
	if err != nil {
		return nil, err
	}

	defer func() { _ = rows.Close() }()

	var snapshots []m.Snapshot

	for rows.Next() {
		var id string

		var payload []byte

		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}

		snapshot, err := DecodeSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

// Close closes the database.
func (s *SQLiteSnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	return err
}

func (s *SQLiteSnapshotStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreNotInitialized
	}

	return s.db, nil
}

func createSnapshotTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			class TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS snapshots_class ON snapshots (class, created_at);
	`)

	return err
}
