package cli

import (
	"errors"
	"io"
)

// Execute runs the admin tool with args and returns the process exit code.
// Errors are reported on stderr, or on stdout as a JSON envelope with --format json.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	formatter := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	_ = formatter.Error(ErrorCode(err), err.Error(), nil)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// cobra usage errors: unknown command, bad or missing flags
		return ExitCommandError
	}
	return exitErr.Code
}
