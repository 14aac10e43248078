package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/sells-group/market-intel/internal/model"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	version int
	audit   []model.AuditEntry
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) LoadAll(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := model.CloneAll(m.records)
	if records == nil {
		records = []model.Record{}
	}
	return &Snapshot{Records: records, Version: strconv.Itoa(m.version)}, nil
}

func (m *MemoryStore) ReplaceAll(_ context.Context, records []model.Record, expectedVersion string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := versionConflict(expectedVersion, strconv.Itoa(m.version)); err != nil {
		return "", err
	}
	m.records = model.CloneAll(records)
	m.version++
	return strconv.Itoa(m.version), nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, entry model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *MemoryStore) ListAudit(_ context.Context) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out, nil
}
