// Package service implements the scoreboard operations consumed by the HTTP
// API and the admin tool: ranked queries, submissions and record admin.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/domain/timeframe"
	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const (
	defaultMaxTopLimit = 100
	component          = "service"
	driverCustom       = "custom"
)

// Service implements the scoreboard operations over a repository.Store.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Configuration
	driver      string
	sqlitePath  string
	maxTopLimit int
	now         func() time.Time

	// State
	started   bool
	startedAt time.Time
	ownsStore bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.driver = driverOf(store)
		}
	}
}

// driverOf names the driver behind an injected store.
func driverOf(store repository.Store) string {
	switch store.(type) {
	case *repository.MemoryStore:
		return repository.DriverMemory
	case *repository.SQLiteStore:
		return repository.DriverSQLite
	default:
		return driverCustom
	}
}

// WithStorage selects the driver and SQLite file opened by Start. It has no
// effect once a store was supplied with WithStore.
func WithStorage(driver, sqlitePath string) Option {
	return func(s *Service) {
		if s.store != nil {
			return
		}
		if driver != "" {
			s.driver = driver
		}
		s.sqlitePath = sqlitePath
	}
}

// WithMaxTopLimit caps the limit accepted by ranked and recent queries.
func WithMaxTopLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopLimit = n
		}
	}
}

// WithClock sets the clock used to resolve timeframes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithStore or WithStorage it runs on an
// in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		driver:      repository.DriverMemory,
		maxTopLimit: defaultMaxTopLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the configured store when none was supplied.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named(component)
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.driver, s.sqlitePath)
		if err != nil {
			s.logger.Error(ctx, "failed to open store",
				logger.String("driver", s.driver), logger.String("path", s.sqlitePath), logger.Error(err))
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalRecords(n)
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "scoreboard service started",
		logger.String("driver", s.driver),
		logger.Int("maxTopLimit", s.maxTopLimit),
	)
	return nil
}

// Stop releases the store when the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(context.Background(), "scoreboard service stopped")
}

func (s *Service) ready(op string) (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, errs.Newf(op, errs.ErrStorageUnavailable, "service not started")
	}
	return s.store, nil
}

// fail logs and counts err before returning it unchanged.
func (s *Service) fail(ctx context.Context, op string, start time.Time, err error, fields ...logger.Field) error {
	code := errs.Code(err)
	metrics.RecordErrorByComponent(component, code)
	metrics.RecordErrorLatency(component, code, metrics.SinceMs(start))

	fields = append(fields, logger.String("op", op), logger.String("kind", code), logger.Error(err))
	switch errs.KindOf(err) {
	case errs.ErrStorageUnavailable, nil:
		metrics.RecordErrorByType(code, "error")
		s.log().Error(ctx, "operation failed", fields...)
	default:
		metrics.RecordErrorByType(code, "warning")
		s.log().Warn(ctx, "operation rejected", fields...)
	}
	return err
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Named(component)
	}
	return s.logger
}

func (s *Service) checkLimit(op string, limit int) error {
	if err := query.ValidateLimit(op, limit); err != nil {
		return err
	}
	if limit > s.maxTopLimit {
		return errs.Newf(op, errs.ErrInvalidLimit, "limit %d exceeds the maximum of %d", limit, s.maxTopLimit)
	}
	return nil
}

// Top returns the ranked feed for records strictly after lowerBound.
//
// With unique set, each player appears once with their best non-spurious run.
// Otherwise raw rows are returned, spurious ones included. Ties on max height
// are broken by earliest timestamp, then lowest id.
func (s *Service) Top(ctx context.Context, lowerBound time.Time, limit int, unique bool) ([]model.RankedEntry, error) {
	const op = "service.top"
	start := time.Now()

	if err := s.checkLimit(op, limit); err != nil {
		return nil, s.fail(ctx, op, start, err, logger.Int("limit", limit))
	}
	store, err := s.ready(op)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}

	q, err := query.NewTopQuery(lowerBound, limit, unique)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	rows, err := store.Top(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, op, start, errs.Wrap(op, err))
	}

	s.log().Debug(ctx, "ranked query",
		logger.String("shape", q.Shape.String()), logger.Int("limit", limit), logger.Int("rows", len(rows)))
	return rank(rows), nil
}

// TopScores resolves the timeframe token against the service clock and runs Top.
func (s *Service) TopScores(ctx context.Context, token string, limit int, unique bool) ([]model.RankedEntry, error) {
	const op = "service.top_scores"
	start := time.Now()

	tf, err := timeframe.Parse(token)
	if err != nil {
		return nil, s.fail(ctx, op, start, err, logger.String("timeframe", token))
	}
	lower, err := tf.LowerBound(s.now())
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}

	out, err := s.Top(ctx, lower, limit, unique)
	if err == nil {
		metrics.RecordRankedQuery(tf.String(), query.ShapeFor(unique).String())
	}
	return out, err
}

// Recent returns the limit most recently submitted records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.RankedEntry, error) {
	const op = "service.recent"
	start := time.Now()

	if err := s.checkLimit(op, limit); err != nil {
		return nil, s.fail(ctx, op, start, err, logger.Int("limit", limit))
	}
	store, err := s.ready(op)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	rows, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, s.fail(ctx, op, start, errs.Wrap(op, err))
	}
	return rank(rows), nil
}

// Submit stores a validated submission and returns its id. The record always
// starts non-spurious.
func (s *Service) Submit(ctx context.Context, in model.ScoreInput) (int64, error) {
	const op = "service.submit"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return 0, s.fail(ctx, op, start, err)
	}
	id, err := store.Insert(ctx, in)
	if err != nil {
		return 0, s.fail(ctx, op, start, errs.Wrap(op, err), logger.String("name", in.Name))
	}

	metrics.RecordSubmission()
	s.log().Info(ctx, "score stored",
		logger.Int64("id", id), logger.String("name", in.Name), logger.Float64("maxHeight", in.MaxHeight))
	return id, nil
}

// Get returns the record with id.
func (s *Service) Get(ctx context.Context, id int64) (model.ScoreRecord, error) {
	const op = "service.get"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, err)
	}
	r, err := store.Get(ctx, id)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, errs.Wrap(op, err), logger.Int64("id", id))
	}
	return r, nil
}

// Search returns every record with any column containing needle, ignoring case.
// No match is an empty result, not an error.
func (s *Service) Search(ctx context.Context, needle string) ([]model.ScoreRecord, error) {
	const op = "service.search"
	start := time.Now()

	if needle == "" {
		return nil, s.fail(ctx, op, start, errs.MissingField(op, "query"))
	}
	store, err := s.ready(op)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	rows, err := store.Search(ctx, needle)
	if err != nil {
		return nil, s.fail(ctx, op, start, errs.Wrap(op, err), logger.String("query", needle))
	}
	return rows, nil
}

// Filter returns records inside the height and date ranges accepted by the selector.
func (s *Service) Filter(ctx context.Context, q query.FilterQuery) ([]model.ScoreRecord, error) {
	const op = "service.filter"
	start := time.Now()

	if _, err := query.ParseSpuriousSelector(int(q.Spurious)); err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	store, err := s.ready(op)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	rows, err := store.Filter(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, op, start, errs.Wrap(op, err))
	}
	return rows, nil
}

// ToggleSpurious flips the spurious flag of id and returns the updated record.
// Calling it twice restores the original value.
func (s *Service) ToggleSpurious(ctx context.Context, id int64) (model.ScoreRecord, error) {
	const op = "service.toggle_spurious"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, err)
	}
	r, err := store.ToggleSpurious(ctx, id)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, errs.Wrap(op, err), logger.Int64("id", id))
	}

	metrics.RecordSpuriousToggle()
	s.log().Info(ctx, "spurious flag changed",
		logger.Int64("id", id), logger.Bool("spurious", r.Spurious))
	return r, nil
}

// DeleteRequest selects a delete-by-id or a guarded delete-all.
type DeleteRequest struct {
	ID    *int64
	All   bool
	Force bool
}

// DeleteOutcome reports what a delete removed. Exactly one field is set.
type DeleteOutcome struct {
	Record *model.ScoreRecord     `json:"record,omitempty"`
	All    *model.DeleteAllResult `json:"all,omitempty"`
}

// Delete removes one record by id or, with All and Force, every record.
// All without Force reports the row count and removes nothing.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (DeleteOutcome, error) {
	const op = "service.delete"
	start := time.Now()

	switch {
	case req.All && req.ID != nil:
		return DeleteOutcome{}, s.fail(ctx, op, start,
			errs.Newf(op, errs.ErrConflictingArguments, "cannot delete all and a single id at the same time"))
	case req.All:
		res, err := s.DeleteAll(ctx, req.Force)
		if err != nil {
			return DeleteOutcome{}, err
		}
		return DeleteOutcome{All: &res}, nil
	case req.ID != nil:
		r, err := s.DeleteByID(ctx, *req.ID)
		if err != nil {
			return DeleteOutcome{}, err
		}
		return DeleteOutcome{Record: &r}, nil
	default:
		return DeleteOutcome{}, s.fail(ctx, op, start, errs.MissingField(op, "id"))
	}
}

// DeleteByID removes id and returns its prior contents.
func (s *Service) DeleteByID(ctx context.Context, id int64) (model.ScoreRecord, error) {
	const op = "service.delete_by_id"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, err)
	}
	r, err := store.Delete(ctx, id)
	if err != nil {
		return model.ScoreRecord{}, s.fail(ctx, op, start, errs.Wrap(op, err), logger.Int64("id", id))
	}

	metrics.RecordDeletions(1)
	s.log().Info(ctx, "score deleted", logger.Int64("id", id), logger.String("name", r.Name))
	return r, nil
}

// DeleteAll removes every record when confirmed. Unconfirmed, it only reports
// how many rows would be removed.
func (s *Service) DeleteAll(ctx context.Context, confirmed bool) (model.DeleteAllResult, error) {
	const op = "service.delete_all"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return model.DeleteAllResult{}, s.fail(ctx, op, start, err)
	}

	if !confirmed {
		n, err := store.Count(ctx)
		if err != nil {
			return model.DeleteAllResult{}, s.fail(ctx, op, start, errs.Wrap(op, err))
		}
		s.log().Warn(ctx, "delete all requested without confirmation; nothing removed", logger.Int64("rows", n))
		return model.DeleteAllResult{Count: n}, nil
	}

	n, err := store.DeleteAll(ctx)
	if err != nil {
		return model.DeleteAllResult{}, s.fail(ctx, op, start, errs.Wrap(op, err))
	}
	metrics.RecordDeletions(n)
	s.log().Warn(ctx, "all scores deleted", logger.Int64("rows", n))
	return model.DeleteAllResult{Count: n, Deleted: true}, nil
}

// Dump returns every record, spurious ones included, in storage order.
func (s *Service) Dump(ctx context.Context) ([]model.ScoreRecord, error) {
	const op = "service.dump"
	start := time.Now()

	store, err := s.ready(op)
	if err != nil {
		return nil, s.fail(ctx, op, start, err)
	}
	rows, err := store.Dump(ctx)
	if err != nil {
		return nil, s.fail(ctx, op, start, errs.Wrap(op, err))
	}
	return rows, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.ready("service.ping")
	if err != nil {
		return err
	}
	return errs.Wrap("service.ping", store.Ping(ctx))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"driver":      strings.ToLower(s.driver),
		"maxTopLimit": s.maxTopLimit,
	}
	if s.started && s.store != nil {
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["totalRecords"] = n
			metrics.UpdateTotalRecords(n)
		}
	}
	return stats
}

// rank numbers rows by position, starting at 1.
func rank(rows []model.ScoreRecord) []model.RankedEntry {
	out := make([]model.RankedEntry, len(rows))
	for i, r := range rows {
		out[i] = model.RankedEntry{Rank: i + 1, ScoreRecord: r}
	}
	return out
}
