package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/metrics"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - scores table with explicit AUTOINCREMENT id and ranking indexes
const currentSchemaVersion = 1

const columns = `id, timestamp, name, max_height, time_total_s, time_building_s,
	time_scaling_s, blocks_placed, jumps, distance_fallen, spurious`

// Query statements. Ranked shapes are fixed statements chosen by query.Shape.
const (
	insertSQL = `INSERT INTO scores (timestamp, name, max_height, time_total_s,
		time_building_s, time_scaling_s, blocks_placed, jumps, distance_fallen, spurious)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	getSQL = `SELECT ` + columns + ` FROM scores WHERE id = ?`

	toggleSQL = `UPDATE scores SET spurious = CASE spurious WHEN 0 THEN 1 ELSE 0 END WHERE id = ?`

	deleteSQL = `DELETE FROM scores WHERE id = ?`

	deleteAllSQL = `DELETE FROM scores`

	countSQL = `SELECT COUNT(*) FROM scores`

	topUngroupedSQL = `SELECT ` + columns + ` FROM scores
		WHERE timestamp > ?
		ORDER BY max_height DESC, timestamp ASC, id ASC
		LIMIT ?`

	topGroupedSQL = `SELECT ` + columns + ` FROM (
			SELECT ` + columns + `,
				ROW_NUMBER() OVER (
					PARTITION BY name
					ORDER BY max_height DESC, timestamp ASC, id ASC
				) AS pos
			FROM scores
			WHERE timestamp > ? AND spurious = 0
		)
		WHERE pos = 1
		ORDER BY max_height DESC, timestamp ASC, id ASC
		LIMIT ?`

	recentSQL = `SELECT ` + columns + ` FROM scores
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	searchSQL = `SELECT ` + columns + ` FROM scores
		WHERE timestamp LIKE ?1 ESCAPE '\'
			OR name LIKE ?1 ESCAPE '\'
			OR max_height LIKE ?1 ESCAPE '\'
			OR time_total_s LIKE ?1 ESCAPE '\'
			OR time_building_s LIKE ?1 ESCAPE '\'
			OR time_scaling_s LIKE ?1 ESCAPE '\'
			OR blocks_placed LIKE ?1 ESCAPE '\'
			OR jumps LIKE ?1 ESCAPE '\'
			OR distance_fallen LIKE ?1 ESCAPE '\'
		ORDER BY id`

	filterSQL = `SELECT ` + columns + ` FROM scores
		WHERE max_height >= ? AND max_height <= ?
			AND timestamp > ? AND timestamp < ?
			AND spurious IN (?, ?)
		ORDER BY id`

	dumpSQL = `SELECT ` + columns + ` FROM scores ORDER BY id`
)

// SQLiteStore is the durable Store backed by a single SQLite file.
// It uses WAL mode and a single connection, so writes are serialised.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies the schema.
// This function is idempotent.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	const op = "sqlite.open"
	if path == "" {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, ErrNoPath)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.applyPragmas(ctx, o.busyTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSQLite initialises a fresh database at path. An existing file is
// refused with errs.ErrAlreadyExists unless force is set, in which case it is
// removed together with its WAL side files.
func CreateSQLite(ctx context.Context, path string, force bool, opts ...Option) (*SQLiteStore, error) {
	const op = "sqlite.create"
	if path == "" {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, ErrNoPath)
	}
	if _, err := os.Stat(path); err == nil {
		if !force {
			return nil, errs.Newf(op, errs.ErrAlreadyExists, "%s already exists, use --force to replace it", path)
		}
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	return OpenSQLite(ctx, path, opts...)
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) applyPragmas(ctx context.Context, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return errs.WrapKind("sqlite.pragma", errs.ErrStorageUnavailable, fmt.Errorf("%s: %w", pragma, err))
		}
	}
	return nil
}

// Init implements Store.Init by applying the schema and recording its version.
func (s *SQLiteStore) Init(ctx context.Context) error {
	const op = "sqlite.init"
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	return nil
}

// Insert implements Store.Insert.
func (s *SQLiteStore) Insert(ctx context.Context, in model.ScoreInput) (int64, error) {
	const op = "sqlite.insert"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	r := in.Record(0)
	var id int64
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertSQL,
			model.FormatTimestamp(r.Timestamp), r.Name, r.MaxHeight, r.TimeTotalS,
			r.TimeBuildingS, r.TimeScalingS, r.BlocksPlaced, r.Jumps, r.DistanceFallen)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	s.refreshCount(ctx)
	return id, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	return getRow(ctx, s.db, "sqlite.get", id)
}

// ToggleSpurious implements Store.ToggleSpurious.
func (s *SQLiteStore) ToggleSpurious(ctx context.Context, id int64) (model.ScoreRecord, error) {
	const op = "sqlite.toggle_spurious"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	var out model.ScoreRecord
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, toggleSQL, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errs.Newf(op, errs.ErrRecordNotFound, "id %d", id)
		}
		out, err = getRow(ctx, tx, op, id)
		return err
	})
	return out, err
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (model.ScoreRecord, error) {
	const op = "sqlite.delete"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	var out model.ScoreRecord
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var err error
		if out, err = getRow(ctx, tx, op, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, deleteSQL, id)
		return err
	})
	if err != nil {
		return model.ScoreRecord{}, err
	}
	s.refreshCount(ctx)
	return out, nil
}

// DeleteAll implements Store.DeleteAll.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	const op = "sqlite.delete_all"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	var n int64
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteAllSQL)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.UpdateTotalRecords(0)
	return n, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, errs.WrapKind("sqlite.count", errs.ErrStorageUnavailable, err)
	}
	return n, nil
}

// Top implements Store.Top.
func (s *SQLiteStore) Top(ctx context.Context, q query.TopQuery) ([]model.ScoreRecord, error) {
	const op = "sqlite.top"
	if err := query.ValidateLimit(op, q.Limit); err != nil {
		return nil, err
	}
	stmt := topUngroupedSQL
	if q.Shape == query.ShapeGrouped {
		stmt = topGroupedSQL
	}
	return s.list(ctx, op, stmt, model.FormatTimestamp(q.After), q.Limit)
}

// Recent implements Store.Recent.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.ScoreRecord, error) {
	const op = "sqlite.recent"
	if err := query.ValidateLimit(op, limit); err != nil {
		return nil, err
	}
	return s.list(ctx, op, recentSQL, limit)
}

// Search implements Store.Search. LIKE folds ASCII letters only.
func (s *SQLiteStore) Search(ctx context.Context, needle string) ([]model.ScoreRecord, error) {
	return s.list(ctx, "sqlite.search", searchSQL, query.NeedleEscape(needle))
}

// Filter implements Store.Filter.
func (s *SQLiteStore) Filter(ctx context.Context, q query.FilterQuery) ([]model.ScoreRecord, error) {
	sp1, sp2 := 0, 1
	switch q.Spurious {
	case query.SpuriousNo:
		sp1, sp2 = 0, 0
	case query.SpuriousYes:
		sp1, sp2 = 1, 1
	}
	return s.list(ctx, "sqlite.filter", filterSQL,
		q.MinHeight, q.MaxHeight,
		model.FormatTimestamp(q.After), model.FormatTimestamp(q.Before),
		sp1, sp2)
}

// Dump implements Store.Dump.
func (s *SQLiteStore) Dump(ctx context.Context) ([]model.ScoreRecord, error) {
	return s.list(ctx, "sqlite.dump", dumpSQL)
}

// Ping implements Store.Ping.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.WrapKind("sqlite.ping", errs.ErrStorageUnavailable, err)
	}
	return nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn in a transaction that is committed on success and rolled
// back on every other path. Unkinded failures become storage unavailable.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return errs.Wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) list(ctx context.Context, op, stmt string, args ...any) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make([]model.ScoreRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (s *SQLiteStore) refreshCount(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalRecords(n)
	}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getRow(ctx context.Context, q queryRower, op string, id int64) (model.ScoreRecord, error) {
	r, err := scanRecord(q.QueryRowContext(ctx, getSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, errs.Newf(op, errs.ErrRecordNotFound, "id %d", id)
	}
	if err != nil {
		return model.ScoreRecord{}, errs.WrapKind(op, errs.ErrStorageUnavailable, err)
	}
	return r, nil
}

func scanRecord(sc scanner) (model.ScoreRecord, error) {
	var (
		r        model.ScoreRecord
		ts       string
		spurious int64
	)
	if err := sc.Scan(&r.ID, &ts, &r.Name, &r.MaxHeight, &r.TimeTotalS, &r.TimeBuildingS,
		&r.TimeScalingS, &r.BlocksPlaced, &r.Jumps, &r.DistanceFallen, &spurious); err != nil {
		return model.ScoreRecord{}, err
	}
	t, err := model.ParseTimestamp(ts)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("row %d timestamp %q: %w", r.ID, ts, err)
	}
	r.Timestamp = t
	r.Spurious = spurious != 0
	return r, nil
}
