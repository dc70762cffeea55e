package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bitfsorg/libgacha-go/gacha"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The engine rejected the command
	ExitCommandError = 2 // Usage, configuration or I/O error
	ExitPending      = 3 // Randomness not yet available; retry later
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Engine errors map to ExitFailure or ExitPending; anything else is a
// command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if gacha.IsPending(err) {
		return ExitPending
	}
	if gacha.KindOf(err) != gacha.KindUnknown {
		return ExitFailure
	}
	return ExitCommandError
}

// textWriter is implemented by results with a human-readable form.
type textWriter interface {
	WriteText(w io.Writer)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for CLI output.
type Response struct {
	Status string         `json:"status"`
	Data   interface{}    `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError is the error part of a JSON response.
type ResponseError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if tw, ok := data.(textWriter); ok {
		tw.WriteText(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs err in the configured format.
func (f *OutputFormatter) Error(err error) error {
	code := gacha.CodeOf(err)
	if code == "" {
		code = "CommandError"
	}
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error: &ResponseError{
				Code:    code,
				Kind:    gacha.KindOf(err).String(),
				Message: err.Error(),
			},
		})
	}
	_, werr := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, err)
	return werr
}
