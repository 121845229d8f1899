package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused (record not found, conflicting arguments, database exists)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, storage unavailable)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode returns the error code reported for err in CLI output.
func ErrorCode(err error) string {
	if errs.KindOf(err) == nil {
		return "command_error"
	}
	return errs.Code(err)
}

// failed wraps a core error with the exit code for its kind.
func failed(message string, err error) *ExitError {
	switch errs.KindOf(err) {
	case errs.ErrRecordNotFound, errs.ErrConflictingArguments, errs.ErrAlreadyExists:
		return WrapExitError(ExitFailure, message, err)
	default:
		return WrapExitError(ExitCommandError, message, err)
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // error kind, e.g. "record_not_found"
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

func (f *OutputFormatter) isJSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.isJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.isJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error goes to the diagnostic stream
	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// Records outputs records as a table, or as JSON data.
func (f *OutputFormatter) Records(records []model.ScoreRecord) error {
	if records == nil {
		records = []model.ScoreRecord{}
	}
	if f.isJSON() {
		return f.Success(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(f.Writer, "no records")
		return err
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tNAME\tHEIGHT\tTOTAL\tBUILDING\tSCALING\tBLOCKS\tJUMPS\tFALLEN\tSPURIOUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%t\n",
			r.ID, model.FormatTimestamp(r.Timestamp), r.Name,
			humanize.Ftoa(r.MaxHeight), humanize.Ftoa(r.TimeTotalS),
			humanize.Ftoa(r.TimeBuildingS), humanize.Ftoa(r.TimeScalingS),
			r.BlocksPlaced, r.Jumps, humanize.Ftoa(r.DistanceFallen), r.Spurious)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	f.VerboseLog("%s", humanize.Comma(int64(len(records)))+" record(s)")
	return nil
}

// Ranked outputs ranked entries as a table, or as JSON data.
func (f *OutputFormatter) Ranked(entries []model.RankedEntry) error {
	if entries == nil {
		entries = []model.RankedEntry{}
	}
	if f.isJSON() {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(f.Writer, "no records")
		return err
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tHEIGHT\tTIMESTAMP\tSPURIOUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%t\n",
			e.Rank, e.ID, e.Name, humanize.Ftoa(e.MaxHeight), model.FormatTimestamp(e.Timestamp), e.Spurious)
	}
	return tw.Flush()
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
