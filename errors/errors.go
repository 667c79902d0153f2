/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package errors provides error wrapping utilities and the typed errors reported
// by the build and publish pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind int

// Error kinds reported by the pipeline.
const (
	// UnknownError is the zero Kind and is never produced by this module.
	UnknownError Kind = iota
	// ConfigError reports missing or invalid metadata.
	ConfigError
	// CompileError reports a failed compilation.
	CompileError
	// IoError reports a filesystem create, copy, write or remove failure.
	IoError
	// TemplateError reports an image definition rendering failure.
	TemplateError
	// BuildFailed reports a non-zero exit from the image builder.
	BuildFailed
	// PushFailed reports a non-zero exit from the push command.
	PushFailed
	// ProvisionError reports a registry repository creation failure.
	ProvisionError
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case CompileError:
		return "CompileError"
	case IoError:
		return "IoError"
	case TemplateError:
		return "TemplateError"
	case BuildFailed:
		return "BuildFailed"
	case PushFailed:
		return "PushFailed"
	case ProvisionError:
		return "ProvisionError"
	default:
		return "UnknownError"
	}
}

// Error is a pipeline failure carrying a short description, an optional
// human explanation and optional captured command output.
type Error struct {
	Kind        Kind
	Description string
	Explanation string
	Output      string
	Cause       error
}

// New returns an Error of the given kind.
func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// Newf returns an Error of the given kind with a formatted description.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithExplanation sets the human explanation.
func (e *Error) WithExplanation(format string, args ...interface{}) *Error {
	e.Explanation = fmt.Sprintf(format, args...)
	return e
}

// WithOutput attaches captured command output.
func (e *Error) WithOutput(output string) *Error {
	e.Output = output
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Description, e.Cause)
	}
	return e.Description
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Report renders the error with its explanation and captured output, the
// way the CLI prints a failed target.
func (e *Error) Report() string {
	var b strings.Builder
	b.WriteString(e.Error())

	if e.Explanation != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Explanation)
	}

	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n\nOutput follows:\n")
		b.WriteString(out)
	}

	return b.String()
}

// KindOf returns the Kind of the first *Error found in err's chain, or
// UnknownError.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Report renders any error for display. Pipeline errors include their
// explanation and output.
func Report(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Report()
	}
	return err.Error()
}

// Wrap wraps an error with a descriptive action and optional detail.
// It returns a formatted error in the form "failed to <action> [(<detail>)]: <error>".
//
// Example usage:
//
//	if err := loadManifest(path); err != nil {
//	    return errors.Wrap("load manifest", path, err)
//	}
func Wrap(action, detail string, err error) error {
	if err == nil {
		return nil
	}

	if detail != "" {
		return fmt.Errorf("failed to %s (%s): %w", action, detail, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
