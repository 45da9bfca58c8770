package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Exit statuses of the fieldflow binary.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario failed or the stored state does not decode
	ExitCommandError = 2 // flags, config, database or script unusable
)

// Failure codes carried in JSON output.
const (
	CodeStorage        = "E_STORAGE"
	CodeScenarioFailed = "E_SCENARIO_FAILED"
	CodeDecode         = "E_DECODE"
)

// ExitError ends a command with a specific exit status. main prints it once
// and exits with Code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError fails with a message and no cause.
func NewExitError(code int, message string) *ExitError {
	return WrapExitError(code, message, nil)
}

// WrapExitError fails with err as the cause.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode is the status main exits with after err. An error that does
// not carry an ExitError is a plain failure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// Envelope wraps every result printed with --format json.
type Envelope struct {
	Status string   `json:"status"` // ok | error
	Data   any      `json:"data,omitempty"`
	Error  *Failure `json:"error,omitempty"`
}

// Failure is the error half of an Envelope.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Printer prints command results. In text mode a result is printed through
// its String method; in JSON mode it is wrapped in an Envelope. Diagnostics
// go to Diag so they never land inside a JSON document on Out.
type Printer struct {
	JSON    bool
	Indent  bool
	Verbose bool
	Out     io.Writer
	Diag    io.Writer
}

// Result prints a successful result.
func (p *Printer) Result(data any) error {
	if p.JSON {
		return p.Print(Envelope{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(p.Out, data)
	return err
}

// Fail prints a failed result. In text mode details follow on an indented
// line with --verbose only.
func (p *Printer) Fail(code, message string, details any) error {
	if p.JSON {
		return p.Print(Envelope{Status: "error", Error: &Failure{Code: code, Message: message, Details: details}})
	}
	if _, err := fmt.Fprintf(p.Out, "%s %s\n", code, message); err != nil {
		return err
	}
	if p.Verbose && details != nil {
		_, err := fmt.Fprintf(p.Out, "  %v\n", details)
		return err
	}
	return nil
}

// Print writes env as one JSON document.
func (p *Printer) Print(env Envelope) error {
	enc := json.NewEncoder(p.Out)
	if p.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(env)
}

// Debugf writes a diagnostic line with --verbose.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	w := p.Diag
	if w == nil {
		w = p.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// lockedWriter is shared by the store observer and the script driver.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}
