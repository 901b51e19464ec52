package adapter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	m "evogen.dev/pkg/evogen/internal/model"
)

// Snapshot store backends.
const (
	SnapshotBackendNone   = "none"
	SnapshotBackendMemory = "memory"
	SnapshotBackendSQLite = "sqlite"
)

// ErrStoreNotInitialized is returned when a store is used before Init.
var ErrStoreNotInitialized = errors.New("store is not initialized")

// SnapshotStore keeps the best suites of past runs to seed later ones.
type SnapshotStore interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot m.Snapshot) error
	// LatestSnapshot returns the most recent snapshot of class.
	LatestSnapshot(ctx context.Context, class string) (m.Snapshot, bool, error)
	// ListSnapshots returns the snapshots of class, oldest first.
	ListSnapshots(ctx context.Context, class string) ([]m.Snapshot, error)
	Close() error
}

// NewSnapshotStore returns the store of the given backend. "none" returns a
// nil store.
func NewSnapshotStore(backend, path string) (SnapshotStore, error) {
	switch backend {
	case "", SnapshotBackendNone:
		return nil, nil
	case SnapshotBackendMemory:
		return NewMemorySnapshotStore(), nil
	case SnapshotBackendSQLite:
		return NewSQLiteSnapshotStore(path), nil
	}

	return nil, fmt.Errorf("unsupported snapshot backend: %s", backend)
}

// MemorySnapshotStore keeps snapshots in process memory.
type MemorySnapshotStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string][]m.Snapshot
}

// NewMemorySnapshotStore returns an empty store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Init prepares the store.
func (s *MemorySnapshotStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.initialized = true
		s.snapshots = map[string][]m.Snapshot{}
	}

	return nil
}

// SaveSnapshot stores snapshot, replacing one with the same id.
func (s *MemorySnapshotStore) SaveSnapshot(_ context.Context, snapshot m.Snapshot) error {
	if err := checkVersion(snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStoreNotInitialized
	}

	list := s.snapshots[snapshot.Class]
	list = slices.DeleteFunc(list, func(other m.Snapshot) bool { return other.ID == snapshot.ID })
	list = append(list, snapshot)
	slices.SortStableFunc(list, func(a, b m.Snapshot) int { return a.CreatedAt.Compare(b.CreatedAt) })
	s.snapshots[snapshot.Class] = list

	return nil
}

// LatestSnapshot returns the most recently created snapshot of class.
func (s *MemorySnapshotStore) LatestSnapshot(_ context.Context, class string) (m.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return m.Snapshot{}, false, ErrStoreNotInitialized
	}

	list := s.snapshots[class]
	if len(list) == 0 {
		return m.Snapshot{}, false, nil
	}

	return list[len(list)-1], true, nil
}

// ListSnapshots returns a copy of the snapshots of class.
func (s *MemorySnapshotStore) ListSnapshots(_ context.Context, class string) ([]m.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrStoreNotInitialized
	}

	return slices.Clone(s.snapshots[class]), nil
}

// Close is a no-op.
func (s *MemorySnapshotStore) Close() error { return nil }
