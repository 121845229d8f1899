// Package submission validates incoming score submissions from JSON bodies
// and from the semicolon-delimited text accepted by the admin tool.
package submission

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
)

// Field names in declared order. Missing-field errors name the first absent one.
var fieldNames = []string{
	"timestamp",
	"name",
	"max_height",
	"time_total_s",
	"time_building_s",
	"time_scaling_s",
	"blocks_placed",
	"jumps",
	"distance_fallen",
}

// Submission is a decoded but unvalidated score. Nil pointers are absent fields.
// There is no spurious field: submitters cannot set it.
type Submission struct {
	Timestamp      *string  `json:"timestamp"`
	Name           *string  `json:"name"`
	MaxHeight      *float64 `json:"max_height"`
	TimeTotalS     *float64 `json:"time_total_s"`
	TimeBuildingS  *float64 `json:"time_building_s"`
	TimeScalingS   *float64 `json:"time_scaling_s"`
	BlocksPlaced   *float64 `json:"blocks_placed"`
	Jumps          *float64 `json:"jumps"`
	DistanceFallen *float64 `json:"distance_fallen"`
}

// Decode reads one JSON submission from r.
func Decode(r io.Reader) (Submission, error) {
	const op = "submission.decode"
	var s Submission
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Submission{}, errs.Newf(op, errs.ErrInvalidArgument, "empty body")
		}
		return Submission{}, errs.WrapKind(op, errs.ErrInvalidArgument, err)
	}
	return s, nil
}

// Input checks every required field and converts s into a ScoreInput.
func (s Submission) Input() (model.ScoreInput, error) {
	const op = "submission.validate"

	present := []bool{
		s.Timestamp != nil,
		s.Name != nil,
		s.MaxHeight != nil,
		s.TimeTotalS != nil,
		s.TimeBuildingS != nil,
		s.TimeScalingS != nil,
		s.BlocksPlaced != nil,
		s.Jumps != nil,
		s.DistanceFallen != nil,
	}
	for i, ok := range present {
		if !ok {
			return model.ScoreInput{}, errs.MissingField(op, fieldNames[i])
		}
	}

	ts, err := query.ParseInstant("timestamp", *s.Timestamp)
	if err != nil {
		return model.ScoreInput{}, err
	}

	reals := map[string]float64{
		"max_height":      *s.MaxHeight,
		"time_total_s":    *s.TimeTotalS,
		"time_building_s": *s.TimeBuildingS,
		"time_scaling_s":  *s.TimeScalingS,
		"distance_fallen": *s.DistanceFallen,
	}
	for _, name := range fieldNames {
		if v, ok := reals[name]; ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return model.ScoreInput{}, errs.Newf(op, errs.ErrInvalidArgument, "%s must be a finite number", name)
		}
	}

	blocks, err := counter(op, "blocks_placed", *s.BlocksPlaced)
	if err != nil {
		return model.ScoreInput{}, err
	}
	jumps, err := counter(op, "jumps", *s.Jumps)
	if err != nil {
		return model.ScoreInput{}, err
	}

	return model.ScoreInput{
		Timestamp:      ts,
		Name:           *s.Name,
		MaxHeight:      *s.MaxHeight,
		TimeTotalS:     *s.TimeTotalS,
		TimeBuildingS:  *s.TimeBuildingS,
		TimeScalingS:   *s.TimeScalingS,
		BlocksPlaced:   blocks,
		Jumps:          jumps,
		DistanceFallen: *s.DistanceFallen,
	}, nil
}

func counter(op, field string, v float64) (int64, error) {
	if v < 0 || v != math.Trunc(v) || v >= math.MaxInt64 {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "%s must be a non-negative integer, got %v", field, v)
	}
	return int64(v), nil
}

// ParseDelimited reads the admin tool's text form: the nine fields in declared
// order separated by ";". A tenth legacy spurious column is accepted and ignored.
func ParseDelimited(line string) (Submission, error) {
	const op = "submission.parse_delimited"
	parts := strings.Split(strings.TrimSpace(line), ";")
	if len(parts) > len(fieldNames)+1 {
		return Submission{}, errs.Newf(op, errs.ErrInvalidArgument, "expected %d fields, got %d", len(fieldNames), len(parts))
	}

	var s Submission
	for i, raw := range parts {
		if i >= len(fieldNames) {
			break
		}
		v := strings.TrimSpace(raw)
		switch fieldNames[i] {
		case "timestamp":
			s.Timestamp = &v
		case "name":
			s.Name = &v
		default:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Submission{}, errs.Newf(op, errs.ErrInvalidArgument, "%s: %q is not a number", fieldNames[i], v)
			}
			s.setReal(fieldNames[i], f)
		}
	}
	return s, nil
}

func (s *Submission) setReal(field string, v float64) {
	switch field {
	case "max_height":
		s.MaxHeight = &v
	case "time_total_s":
		s.TimeTotalS = &v
	case "time_building_s":
		s.TimeBuildingS = &v
	case "time_scaling_s":
		s.TimeScalingS = &v
	case "blocks_placed":
		s.BlocksPlaced = &v
	case "jumps":
		s.Jumps = &v
	case "distance_fallen":
		s.DistanceFallen = &v
	}
}

// fixtures are the builtin example rows.
var fixtures = []string{
	"2024-08-17 16:02:23.144;alifeee;124.22;120;102.40;17.60;63;78;29.4;0",
	"2024-08-17 16:06:11.007;jman;112.45;120;90.00;30.00;47;65;18.5;0",
	"2024-08-17 16:52:56.614;somebody909;96.54;120;86.55;33.45;39;49;14.6;0",
}

// Fixture returns builtin example row i, wrapping around the set.
func Fixture(i int) string {
	n := len(fixtures)
	return fixtures[((i%n)+n)%n]
}

// FixtureCount returns the number of builtin example rows.
func FixtureCount() int {
	return len(fixtures)
}
