package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/quotedesk/internal/harness"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain failure (incomplete selection, blocked save, failed scenario)
	ExitCommandError = 2 // Command error (bad arguments, unreadable files, unknown documents)
)

// ExitError represents an error with a specific exit code.
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

// ErrorCode returns the stable code reported for err in JSON output, such as
// INCOMPLETE_SELECTION or SAVE_BLOCKED.
func ErrorCode(err error) string {
	return harness.OutcomeOf(err)
}

// failureCode picks the reported code for a failure ending with exit. Command
// errors without a typed outcome report COMMAND_ERROR.
func failureCode(exit int, err error) string {
	code := ErrorCode(err)
	if code == harness.OutcomeError && exit == ExitCommandError {
		return "COMMAND_ERROR"
	}
	return code
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
	Code    string      `json:"code"`              // e.g. "INCOMPLETE_SELECTION"
	Message string      `json:"message"`           // human-readable message
	Exit    int         `json:"exit,omitempty"`    // process exit code, set by Fail
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// Text output prints data with fmt.Println, so payloads should implement
// fmt.Stringer.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. Text output shows details
// only in verbose mode.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	return f.writeError(CLIError{Code: code, Message: message, Details: details}, f.Verbose)
}

// Fail reports err and returns an ExitError with exit, so a command can end
// with `return f.Fail(...)`. Domain failures always print their details,
// since they name the items or rows to fix.
func (f *OutputFormatter) Fail(exit int, message string, err error, details interface{}) error {
	cliErr := CLIError{
		Code:    failureCode(exit, err),
		Message: fmt.Sprintf("%s: %v", message, err),
		Exit:    exit,
		Details: details,
	}
	if outErr := f.writeError(cliErr, f.Verbose || exit == ExitFailure); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

func (f *OutputFormatter) writeError(e CLIError, showDetails bool) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: &e})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if showDetails && e.Details != nil {
		for _, line := range detailLines(e.Details) {
			fmt.Fprintf(f.Writer, "  %s\n", line)
		}
	}
	return nil
}

// detailLines renders details as sorted key=value lines. Values other than
// string maps print with %v.
func detailLines(details interface{}) []string {
	var lines []string
	switch d := details.(type) {
	case map[string]string:
		for k, v := range d {
			lines = append(lines, k+"="+v)
		}
	case map[string]any:
		for k, v := range d {
			lines = append(lines, fmt.Sprintf("%s=%v", k, v))
		}
	default:
		return []string{fmt.Sprintf("%v", details)}
	}
	sort.Strings(lines)
	return lines
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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
