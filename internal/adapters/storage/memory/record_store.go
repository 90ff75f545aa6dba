package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

type RecordStore struct {
	mu      sync.RWMutex
	records map[domain.UserID][]*domain.HydrationRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[domain.UserID][]*domain.HydrationRecord),
	}
}

func (s *RecordStore) AppendRecord(ctx context.Context, id domain.UserID, rec *domain.HydrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	s.records[id] = append(s.records[id], &r)
	return nil
}

func (s *RecordStore) ListRecords(ctx context.Context, id domain.UserID) ([]*domain.HydrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.HydrationRecord, 0, len(s.records[id]))
	for _, rec := range s.records[id] {
		r := *rec
		out = append(out, &r)
	}

	// Append order usually matches timestamp order, but clock skew between
	// writers can reorder; reports rely on ascending timestamps.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

var _ domain.RecordStore = (*RecordStore)(nil)
