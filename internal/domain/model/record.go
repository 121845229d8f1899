// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width text form used to persist timestamps.
// Values are always UTC, so text order equals chronological order.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// ScoreRecord is one completed run as held by the record store.
type ScoreRecord struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Name           string    `json:"name"`
	MaxHeight      float64   `json:"max_height"`
	TimeTotalS     float64   `json:"time_total_s"`
	TimeBuildingS  float64   `json:"time_building_s"`
	TimeScalingS   float64   `json:"time_scaling_s"`
	BlocksPlaced   int64     `json:"blocks_placed"`
	Jumps          int64     `json:"jumps"`
	DistanceFallen float64   `json:"distance_fallen"`
	Spurious       bool      `json:"spurious"`
}

// ScoreInput is a validated submission. It has no id and no spurious flag:
// the store assigns the first and always starts the second at false.
type ScoreInput struct {
	Timestamp      time.Time
	Name           string
	MaxHeight      float64
	TimeTotalS     float64
	TimeBuildingS  float64
	TimeScalingS   float64
	BlocksPlaced   int64
	Jumps          int64
	DistanceFallen float64
}

// Record materialises the input as a fresh, non-spurious record with id.
// The timestamp is normalised to UTC at the persisted microsecond precision.
func (in ScoreInput) Record(id int64) ScoreRecord {
	return ScoreRecord{
		ID:             id,
		Timestamp:      in.Timestamp.UTC().Truncate(time.Microsecond),
		Name:           in.Name,
		MaxHeight:      in.MaxHeight,
		TimeTotalS:     in.TimeTotalS,
		TimeBuildingS:  in.TimeBuildingS,
		TimeScalingS:   in.TimeScalingS,
		BlocksPlaced:   in.BlocksPlaced,
		Jumps:          in.Jumps,
		DistanceFallen: in.DistanceFallen,
	}
}

// RankedEntry is the canonical read shape of the ranked and recent feeds.
type RankedEntry struct {
	Rank int `json:"rank"`
	ScoreRecord
}

// DeleteAllResult reports the outcome of a guarded delete-all.
type DeleteAllResult struct {
	// Count is the number of rows removed, or that would be removed when not confirmed.
	Count int64 `json:"count"`
	// Deleted is false when confirmation was missing and nothing was removed.
	Deleted bool `json:"deleted"`
}

// FormatTimestamp renders t in the persisted text layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// Fields returns the textual form of every searchable column, in column order,
// rendered the way SQLite casts them to text.
func (r ScoreRecord) Fields() []string {
	return []string{
		FormatTimestamp(r.Timestamp),
		r.Name,
		formatReal(r.MaxHeight),
		formatReal(r.TimeTotalS),
		formatReal(r.TimeBuildingS),
		formatReal(r.TimeScalingS),
		strconv.FormatInt(r.BlocksPlaced, 10),
		strconv.FormatInt(r.Jumps, 10),
		formatReal(r.DistanceFallen),
	}
}

// formatReal mirrors SQLite's REAL to TEXT cast ("%!.15g"): 15 significant
// digits, exponent form below 1e-4 or from 1e15, and always a decimal point
// in the mantissa.
func formatReal(f float64) string {
	mantissa, exp, hasExp := strings.Cut(strconv.FormatFloat(f, 'g', 15, 64), "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	if hasExp {
		return mantissa + "e" + exp
	}
	return mantissa
}
