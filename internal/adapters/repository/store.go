// Package repository defines the record store interface and its SQLite and
// in-memory implementations.
package repository

import (
	"context"
	"strings"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
)

// Storage drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store provides read/write access to the score records.
//
// Every write is committed atomically on its own; readers never observe a
// partially applied operation.
type Store interface {
	// Init prepares the backing storage. It is idempotent.
	Init(ctx context.Context) error

	// Insert stores a fresh, non-spurious record and returns its id.
	Insert(ctx context.Context, in model.ScoreInput) (int64, error)
	// Get returns the record with id or errs.ErrRecordNotFound.
	Get(ctx context.Context, id int64) (model.ScoreRecord, error)
	// ToggleSpurious flips the spurious flag of id and returns the updated record.
	ToggleSpurious(ctx context.Context, id int64) (model.ScoreRecord, error)
	// Delete removes id and returns its prior contents.
	Delete(ctx context.Context, id int64) (model.ScoreRecord, error)
	// DeleteAll removes every record and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
	// Top returns ranked records for q, at most q.Limit of them.
	Top(ctx context.Context, q query.TopQuery) ([]model.ScoreRecord, error)
	// Recent returns the limit most recent records by timestamp.
	Recent(ctx context.Context, limit int) ([]model.ScoreRecord, error)
	// Search returns records where any column contains needle, case-insensitively.
	Search(ctx context.Context, needle string) ([]model.ScoreRecord, error)
	// Filter returns records passing q in storage order.
	Filter(ctx context.Context, q query.FilterQuery) ([]model.ScoreRecord, error)
	// Dump returns every record in storage order.
	Dump(ctx context.Context) ([]model.ScoreRecord, error)

	// Ping reports whether the storage is reachable.
	Ping(ctx context.Context) error
	// Close releases the storage.
	Close() error
}

// Open returns the store selected by driver. The SQLite store is opened at
// filename and its schema applied; the memory store ignores filename.
func Open(ctx context.Context, driver, filename string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		return OpenSQLite(ctx, filename, opts...)
	case DriverMemory:
		s := NewMemoryStore(opts...)
		return s, s.Init(ctx)
	default:
		return nil, errs.WrapKind("repository.open", errs.ErrInvalidArgument, ErrUnknownDriver)
	}
}

// ranksBefore reports whether a should appear before b in a ranked list:
// higher max height first, then earliest timestamp, then lowest id.
func ranksBefore(a, b model.ScoreRecord) bool {
	if a.MaxHeight != b.MaxHeight {
		return a.MaxHeight > b.MaxHeight
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// newerThan reports whether a should appear before b in the recent feed.
func newerThan(a, b model.ScoreRecord) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}
