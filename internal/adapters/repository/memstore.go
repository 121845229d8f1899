package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/metrics"
	"golang.org/x/text/cases"
)

// MemoryStore is an in-memory Store used by tests and by the server when no
// durable storage is configured.
//
// Rows are kept in insertion order, which is the storage order reported by
// Dump and Filter. Ids come from a monotonic counter and are never reused.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []model.ScoreRecord
	byID   map[int64]int
	nextID int64
	closed bool
}

// NewMemoryStore constructs an empty memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		rows: make([]model.ScoreRecord, 0, o.capacity),
		byID: make(map[int64]int, o.capacity),
	}
}

// Init implements Store.Init.
func (s *MemoryStore) Init(ctx context.Context) error {
	return s.Ping(ctx)
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(ctx context.Context, in model.ScoreInput) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, errs.WrapKind("memstore.insert", errs.ErrStorageUnavailable, ErrClosed)
	}
	s.nextID++
	id := s.nextID
	s.byID[id] = len(s.rows)
	s.rows = append(s.rows, in.Record(id))
	n := len(s.rows)
	s.mu.Unlock()

	metrics.UpdateTotalRecords(int64(n))
	return id, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id int64) (model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ScoreRecord{}, errs.WrapKind("memstore.get", errs.ErrStorageUnavailable, ErrClosed)
	}
	i, ok := s.byID[id]
	if !ok {
		return model.ScoreRecord{}, errs.Newf("memstore.get", errs.ErrRecordNotFound, "id %d", id)
	}
	return s.rows[i], nil
}

// ToggleSpurious implements Store.ToggleSpurious.
func (s *MemoryStore) ToggleSpurious(ctx context.Context, id int64) (model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ScoreRecord{}, errs.WrapKind("memstore.toggle_spurious", errs.ErrStorageUnavailable, ErrClosed)
	}
	i, ok := s.byID[id]
	if !ok {
		return model.ScoreRecord{}, errs.Newf("memstore.toggle_spurious", errs.ErrRecordNotFound, "id %d", id)
	}
	s.rows[i].Spurious = !s.rows[i].Spurious
	return s.rows[i], nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id int64) (model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.ScoreRecord{}, errs.WrapKind("memstore.delete", errs.ErrStorageUnavailable, ErrClosed)
	}
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return model.ScoreRecord{}, errs.Newf("memstore.delete", errs.ErrRecordNotFound, "id %d", id)
	}
	removed := s.rows[i]
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.byID, id)
	for j := i; j < len(s.rows); j++ {
		s.byID[s.rows[j].ID] = j
	}
	n := len(s.rows)
	s.mu.Unlock()

	metrics.UpdateTotalRecords(int64(n))
	return removed, nil
}

// DeleteAll implements Store.DeleteAll.
func (s *MemoryStore) DeleteAll(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errs.WrapKind("memstore.delete_all", errs.ErrStorageUnavailable, ErrClosed)
	}
	n := int64(len(s.rows))
	s.rows = s.rows[:0]
	s.byID = make(map[int64]int)
	metrics.UpdateTotalRecords(0)
	return n, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errs.WrapKind("memstore.count", errs.ErrStorageUnavailable, ErrClosed)
	}
	return int64(len(s.rows)), nil
}

// Top implements Store.Top.
func (s *MemoryStore) Top(ctx context.Context, q query.TopQuery) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	if err := query.ValidateLimit("memstore.top", q.Limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errs.WrapKind("memstore.top", errs.ErrStorageUnavailable, ErrClosed)
	}

	var out []model.ScoreRecord
	switch q.Shape {
	case query.ShapeGrouped:
		best := make(map[string]model.ScoreRecord)
		for _, r := range s.rows {
			if r.Spurious || !r.Timestamp.After(q.After) {
				continue
			}
			if cur, ok := best[r.Name]; !ok || ranksBefore(r, cur) {
				best[r.Name] = r
			}
		}
		out = make([]model.ScoreRecord, 0, len(best))
		for _, r := range best {
			out = append(out, r)
		}
	default:
		out = make([]model.ScoreRecord, 0)
		for _, r := range s.rows {
			if r.Timestamp.After(q.After) {
				out = append(out, r)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return ranksBefore(out[i], out[j]) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	if err := query.ValidateLimit("memstore.recent", limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := append([]model.ScoreRecord(nil), s.rows...)
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, errs.WrapKind("memstore.recent", errs.ErrStorageUnavailable, ErrClosed)
	}

	sort.Slice(out, func(i, j int) bool { return newerThan(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Search implements Store.Search. Matching uses Unicode case folding.
func (s *MemoryStore) Search(ctx context.Context, needle string) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	// A Caser keeps state, so each call gets its own.
	fold := cases.Fold()
	want := fold.String(needle)

	return s.scan("memstore.search", func(r model.ScoreRecord) bool {
		for _, f := range r.Fields() {
			if strings.Contains(fold.String(f), want) {
				return true
			}
		}
		return false
	})
}

// Filter implements Store.Filter.
func (s *MemoryStore) Filter(ctx context.Context, q query.FilterQuery) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	return s.scan("memstore.filter", func(r model.ScoreRecord) bool {
		return q.Matches(r.MaxHeight, r.Timestamp, r.Spurious)
	})
}

// Dump implements Store.Dump.
func (s *MemoryStore) Dump(ctx context.Context) ([]model.ScoreRecord, error) {
	return s.scan("memstore.dump", func(model.ScoreRecord) bool { return true })
}

// Ping implements Store.Ping.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.WrapKind("memstore.ping", errs.ErrStorageUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errs.WrapKind("memstore.ping", errs.ErrStorageUnavailable, ErrClosed)
	}
	return nil
}

// Close implements Store.Close. Later calls fail with storage unavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// scan returns the rows accepted by keep, in storage order.
func (s *MemoryStore) scan(op string, keep func(model.ScoreRecord) bool) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, ErrClosed)
	}
	out := make([]model.ScoreRecord, 0)
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
