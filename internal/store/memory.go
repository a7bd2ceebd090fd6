package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/macro"
)

// MemoryStore is a concurrency-safe in-memory macro.Repository. It backs the
// "memory" database driver and the service tests.
//
// Writers hold txMu so a committing Transaction cannot overwrite a write made
// while it ran.
type MemoryStore struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	rows   map[uint64]macro.IndicatorRecord
	nextID uint64
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[uint64]macro.IndicatorRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, in macro.NewIndicator) (*macro.IndicatorRecord, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec := macro.IndicatorRecord{
		ID:                 s.nextID,
		Type:               in.Type,
		Name:               in.Name,
		Value:              in.Value,
		DateTime:           in.DateTime.UTC(),
		IsLeadingIndicator: in.IsLeadingIndicator,
		Region:             in.Region,
		CreationDataTime:   s.now(),
	}
	s.rows[rec.ID] = rec
	return &rec, nil
}

func (s *MemoryStore) FindByTypeAndDate(_ context.Context, indicatorType string, date time.Time) (*macro.IndicatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(indicatorType, date), nil
}

// findLocked returns the lowest-id row of indicatorType on date's UTC day.
// The caller holds mu.
func (s *MemoryStore) findLocked(indicatorType string, date time.Time) *macro.IndicatorRecord {
	from, to := common.StartOfDay(date), common.EndOfDay(date)

	var found *macro.IndicatorRecord
	for _, rec := range s.rows {
		if rec.Type != indicatorType || rec.DateTime.Before(from) || rec.DateTime.After(to) {
			continue
		}
		if found == nil || rec.ID < found.ID {
			r := rec
			found = &r
		}
	}
	return found
}

func (s *MemoryStore) FindByRegionDateRange(_ context.Context, start, end time.Time, region macro.Region) ([]macro.IndicatorRecord, error) {
	return s.filter(func(rec macro.IndicatorRecord) bool {
		return rec.Region == region && !rec.DateTime.Before(start) && !rec.DateTime.After(end)
	}), nil
}

func (s *MemoryStore) Delete(_ context.Context, rec *macro.IndicatorRecord) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rec.ID]; !ok {
		return fmt.Errorf("delete indicator %d: %w", rec.ID, macro.ErrIndicatorNotFound)
	}
	delete(s.rows, rec.ID)
	return nil
}

func (s *MemoryStore) GetLatestByRegion(_ context.Context, region macro.Region) (map[string]macro.IndicatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]macro.IndicatorRecord)
	for _, rec := range s.rows {
		if rec.Region != region {
			continue
		}
		cur, ok := out[rec.Type]
		if !ok || rec.DateTime.After(cur.DateTime) ||
			(rec.DateTime.Equal(cur.DateTime) && rec.ID > cur.ID) {
			out[rec.Type] = rec
		}
	}
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uint64) (*macro.IndicatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) ListByType(_ context.Context, indicatorType string) ([]macro.IndicatorRecord, error) {
	return s.filter(func(rec macro.IndicatorRecord) bool { return rec.Type == indicatorType }), nil
}

func (s *MemoryStore) ListByName(_ context.Context, name string) ([]macro.IndicatorRecord, error) {
	return s.filter(func(rec macro.IndicatorRecord) bool { return rec.Name == name }), nil
}

func (s *MemoryStore) Update(_ context.Context, id uint64, upd macro.IndicatorUpdate) (*macro.IndicatorRecord, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("update indicator %d: %w", id, macro.ErrIndicatorNotFound)
	}
	if upd.DateTime != nil {
		if other := s.findLocked(rec.Type, *upd.DateTime); other != nil && other.ID != id {
			return nil, fmt.Errorf("update indicator %d: %w", id, dayTakenError(rec.Type, *upd.DateTime))
		}
	}
	if upd.Name != nil {
		rec.Name = *upd.Name
	}
	if upd.Value != nil {
		rec.Value = *upd.Value
	}
	if upd.DateTime != nil {
		rec.DateTime = upd.DateTime.UTC()
	}
	if upd.IsLeadingIndicator != nil {
		rec.IsLeadingIndicator = *upd.IsLeadingIndicator
	}
	if upd.Region != nil {
		rec.Region = *upd.Region
	}
	s.rows[id] = rec
	return &rec, nil
}

// Transaction runs fn against a private copy of the data and publishes the
// copy only when fn succeeds. Transactions are serialized.
func (s *MemoryStore) Transaction(_ context.Context, fn func(tx macro.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	child := &MemoryStore{
		rows:   make(map[uint64]macro.IndicatorRecord, len(s.rows)),
		nextID: s.nextID,
		now:    s.now,
	}
	for id, rec := range s.rows {
		child.rows[id] = rec
	}
	s.mu.RUnlock()

	if err := fn(child); err != nil {
		return err
	}

	s.mu.Lock()
	s.rows = child.rows
	s.nextID = child.nextID
	s.mu.Unlock()
	return nil
}

// filter returns matching rows ordered by date, then id.
func (s *MemoryStore) filter(keep func(macro.IndicatorRecord) bool) []macro.IndicatorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []macro.IndicatorRecord
	for _, rec := range s.rows {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateTime.Before(out[j].DateTime)
	})
	return out
}
