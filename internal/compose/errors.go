package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput tags a render rejected because a mandatory input file
	// is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrTranscodeFailed tags a job the transcoder could not complete. The
	// failure is terminal for that job only; project state is untouched.
	ErrTranscodeFailed = errors.New("transcode failed")
)

// maxDiagnosticLen bounds the transcoder stderr preserved in failures.
const maxDiagnosticLen = 2000

// MissingInputError reports which mandatory input was absent.
type MissingInputError struct {
	Input string
	Path  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s file not found at %q", e.Input, e.Path)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// TranscodeError carries bounded transcoder diagnostics for operator
// visibility.
type TranscodeError struct {
	Diagnostics string
}

func newTranscodeError(diagnostics string) *TranscodeError {
	if len(diagnostics) > maxDiagnosticLen {
		diagnostics = diagnostics[len(diagnostics)-maxDiagnosticLen:]
	}
	return &TranscodeError{Diagnostics: diagnostics}
}

func (e *TranscodeError) Error() string {
	if e.Diagnostics == "" {
		return "transcode failed"
	}
	return fmt.Sprintf("transcode failed: %s", e.Diagnostics)
}

func (e *TranscodeError) Unwrap() error { return ErrTranscodeFailed }
