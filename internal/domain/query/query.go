// Package query defines the validated query values accepted by the record store.
//
// Transport layers build these values with the constructors below; the store
// only ever sees shapes and bounds that have already passed validation.
package query

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/okian/scoreboard/internal/errs"
)

// Shape selects how a ranked query aggregates rows.
type Shape int

// Query shapes.
const (
	// ShapeUngrouped returns raw rows, spurious ones included.
	ShapeUngrouped Shape = iota
	// ShapeGrouped returns each player's best non-spurious row.
	ShapeGrouped
)

// String names the shape for logs.
func (s Shape) String() string {
	if s == ShapeGrouped {
		return "grouped"
	}
	return "ungrouped"
}

// ShapeFor maps the unique flag to a shape.
func ShapeFor(unique bool) Shape {
	if unique {
		return ShapeGrouped
	}
	return ShapeUngrouped
}

// TopQuery is a validated ranked query.
//
// Rows qualify when their timestamp is strictly after After. Results are
// ordered by max height descending, then earliest timestamp, then lowest id.
type TopQuery struct {
	After time.Time
	Limit int
	Shape Shape
}

// NewTopQuery validates limit and builds a TopQuery.
func NewTopQuery(after time.Time, limit int, unique bool) (TopQuery, error) {
	if err := ValidateLimit("query.top", limit); err != nil {
		return TopQuery{}, err
	}
	return TopQuery{After: after, Limit: limit, Shape: ShapeFor(unique)}, nil
}

// ValidateLimit rejects non-positive limits.
func ValidateLimit(op string, limit int) error {
	if limit <= 0 {
		return errs.Newf(op, errs.ErrInvalidLimit, "limit must be a positive integer, got %d", limit)
	}
	return nil
}

// SpuriousSelector is the tri-state spurious filter.
type SpuriousSelector int

// Selector values, matching the command-line encoding.
const (
	SpuriousAny SpuriousSelector = -1
	SpuriousNo  SpuriousSelector = 0
	SpuriousYes SpuriousSelector = 1
)

// ParseSpuriousSelector accepts -1, 0 or 1.
func ParseSpuriousSelector(v int) (SpuriousSelector, error) {
	switch SpuriousSelector(v) {
	case SpuriousAny, SpuriousNo, SpuriousYes:
		return SpuriousSelector(v), nil
	default:
		return 0, errs.Newf("query.spurious_selector", errs.ErrInvalidSpuriousSelector, "%d is not one of -1, 0, 1", v)
	}
}

// Matches reports whether a record with the given flag passes the selector.
func (s SpuriousSelector) Matches(spurious bool) bool {
	switch s {
	case SpuriousNo:
		return !spurious
	case SpuriousYes:
		return spurious
	default:
		return true
	}
}

// FilterQuery is a validated range filter.
//
// A record matches when MinHeight <= max_height <= MaxHeight,
// After < timestamp < Before and the selector accepts its spurious flag.
type FilterQuery struct {
	MinHeight float64
	MaxHeight float64
	After     time.Time
	Before    time.Time
	Spurious  SpuriousSelector
}

// NewFilterQuery parses the date bounds and selector.
func NewFilterQuery(minHeight, maxHeight float64, after, before string, spurious int) (FilterQuery, error) {
	sel, err := ParseSpuriousSelector(spurious)
	if err != nil {
		return FilterQuery{}, err
	}
	a, err := ParseInstant("after", after)
	if err != nil {
		return FilterQuery{}, err
	}
	b, err := ParseInstant("before", before)
	if err != nil {
		return FilterQuery{}, err
	}
	return FilterQuery{
		MinHeight: minHeight,
		MaxHeight: maxHeight,
		After:     a,
		Before:    b,
		Spurious:  sel,
	}, nil
}

// Matches reports whether a record passes the filter.
func (f FilterQuery) Matches(height float64, ts time.Time, spurious bool) bool {
	return height >= f.MinHeight && height <= f.MaxHeight &&
		ts.After(f.After) && ts.Before(f.Before) &&
		f.Spurious.Matches(spurious)
}

// ParseInstant parses a date or date-time in any common format. Values with
// no zone are read in the local zone. Failures report errs.ErrInvalidDate
// naming field.
func ParseInstant(field, value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, errs.Newf("query.parse_instant", errs.ErrInvalidDate, "%s is empty", field)
	}
	t, err := dateparse.ParseIn(v, time.Local)
	if err != nil {
		return time.Time{}, &errs.Error{Op: "query.parse_instant", Kind: errs.ErrInvalidDate, Detail: field + ": " + v, Err: err}
	}
	return t, nil
}

// ParseBool strictly parses a flag from a transport parameter. Only
// true/false/1/0 (any case) are accepted; anything else fails closed.
func ParseBool(field, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	case "":
		return false, errs.MissingField("query.parse_bool", field)
	default:
		return false, errs.Newf("query.parse_bool", errs.ErrInvalidArgument, "%s must be one of true|false|1|0, got %q", field, value)
	}
}

// NeedleEscape escapes LIKE metacharacters so s matches literally with ESCAPE '\'.
func NeedleEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
