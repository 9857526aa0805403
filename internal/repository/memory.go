package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

// MemoryStore is a SinkStore over plain maps, for tests and local runs
// without Postgres. The write sequence counter stands in for updated_at.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	clean    map[string]memEntry[domain.CleanOrder]
	rejected map[string]memEntry[domain.RejectedOrder]
}

type memEntry[T any] struct {
	rec     T
	seq     int64
	created time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clean:    make(map[string]memEntry[domain.CleanOrder]),
		rejected: make(map[string]memEntry[domain.RejectedOrder]),
	}
}

func sinkKey(orderID string, source domain.Source) string {
	return string(source) + "|" + orderID
}

func (m *MemoryStore) Write(ctx context.Context, out domain.Outcome) error {
	orderID, source := out.Key()
	key := sinkKey(orderID, source)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++

	created := time.Now().UTC()
	if prev, ok := m.clean[key]; ok {
		created = prev.created
	} else if prev, ok := m.rejected[key]; ok {
		created = prev.created
	}

	if out.Clean != nil {
		rec := *out.Clean
		rec.CreatedAt = created
		m.clean[key] = memEntry[domain.CleanOrder]{rec: rec, seq: m.seq, created: created}
		delete(m.rejected, key)
	} else {
		rec := *out.Rejected
		rec.CreatedAt = created
		m.rejected[key] = memEntry[domain.RejectedOrder]{rec: rec, seq: m.seq, created: created}
		delete(m.clean, key)
	}
	return nil
}

func (m *MemoryStore) ListClean(ctx context.Context, limit int) ([]domain.CleanOrder, error) {
	m.mu.Lock()
	entries := make([]memEntry[domain.CleanOrder], 0, len(m.clean))
	for _, e := range m.clean {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	return recentFirst(entries, limit), nil
}

func (m *MemoryStore) ListRejected(ctx context.Context, limit int) ([]domain.RejectedOrder, error) {
	m.mu.Lock()
	entries := make([]memEntry[domain.RejectedOrder], 0, len(m.rejected))
	for _, e := range m.rejected {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	return recentFirst(entries, limit), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func recentFirst[T any](entries []memEntry[T], limit int) []T {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec)
	}
	return out
}
