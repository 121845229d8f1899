// Package timeframe maps named ranking windows to their lower-bound instant.
package timeframe

import (
	"strings"
	"time"

	"github.com/okian/scoreboard/internal/errs"
)

// Timeframe selects the window of a ranked query.
type Timeframe int

// Recognised timeframes. The zero value is deliberately invalid.
const (
	Invalid Timeframe = iota
	Daily
	Weekly
	AllTime
)

// Tokens accepted by Parse.
const (
	TokenDaily   = "daily"
	TokenWeekly  = "weekly"
	TokenAllTime = "alltime"
)

// Beginning is the all-time lower bound, the zero time.Time. It precedes
// every timestamp a submission can carry, including ones before 1970.
var Beginning = time.Time{}

// Parse converts a token into a Timeframe. Unknown or empty tokens fail with
// errs.ErrInvalidTimeframe.
func Parse(token string) (Timeframe, error) {
	const op = "timeframe.parse"
	switch strings.ToLower(strings.TrimSpace(token)) {
	case TokenDaily:
		return Daily, nil
	case TokenWeekly:
		return Weekly, nil
	case TokenAllTime:
		return AllTime, nil
	case "":
		return Invalid, errs.Newf(op, errs.ErrInvalidTimeframe, "timeframe is required (%s|%s|%s)", TokenDaily, TokenWeekly, TokenAllTime)
	default:
		return Invalid, errs.Newf(op, errs.ErrInvalidTimeframe, "%q is not one of %s|%s|%s", token, TokenDaily, TokenWeekly, TokenAllTime)
	}
}

// String returns the token for tf.
func (tf Timeframe) String() string {
	switch tf {
	case Daily:
		return TokenDaily
	case Weekly:
		return TokenWeekly
	case AllTime:
		return TokenAllTime
	default:
		return "invalid"
	}
}

// LowerBound returns the exclusive lower bound of tf relative to now.
// Daily and weekly boundaries are local-calendar midnights in now's location;
// weeks start on Monday.
func (tf Timeframe) LowerBound(now time.Time) (time.Time, error) {
	switch tf {
	case Daily:
		return midnight(now), nil
	case Weekly:
		// Monday is index 0.
		offset := (int(now.Weekday()) + 6) % 7
		return midnight(now.AddDate(0, 0, -offset)), nil
	case AllTime:
		return Beginning, nil
	default:
		return time.Time{}, errs.Newf("timeframe.lower_bound", errs.ErrInvalidTimeframe, "unrecognised timeframe %d", int(tf))
	}
}

// Resolve parses token and returns its lower bound relative to now.
func Resolve(token string, now time.Time) (time.Time, error) {
	tf, err := Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	return tf.LowerBound(now)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
