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

package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
)

// stepWidth is the width of the right-aligned status column.
const stepWidth = 12

// StepKind selects how a status step is highlighted.
type StepKind int

const (
	// ActionStep announces work being done (e.g. "Building", "Pushing").
	ActionStep StepKind = iota
	// SkipStep announces work that was deliberately not done
	// (e.g. "Up-to-date", "Unsupported", "Ignored").
	SkipStep
)

// Step prints a status line such as "    Building docker[api]". Steps are
// shown at info level and hidden in quiet mode.
func (l *CustomLogger) Step(kind StepKind, status, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabledLocked(slog.LevelInfo) || l.Console == nil {
		return
	}

	switch l.OutputType {
	case JSONOutput:
		step := "action"
		if kind == SkipStep {
			step = "skip"
		}
		l.writeJSONLocked(map[string]string{"step": step, "status": status, "msg": msg})
	case ColorOutput:
		padded := fmt.Sprintf("%*s", stepWidth, status)
		if kind == SkipStep {
			padded = color.New(color.FgYellow, color.Bold).Sprint(padded)
		} else {
			padded = color.New(color.FgGreen, color.Bold).Sprint(padded)
		}
		fmt.Fprintf(l.Console, "%s %s\n", padded, msg)
	default:
		fmt.Fprintf(l.Console, "%*s %s\n", stepWidth, status, msg)
	}
}

// ActionContext prints an action step using the logger from context.
func ActionContext(ctx context.Context, status, format string, args ...interface{}) {
	FromContext(ctx).Step(ActionStep, status, format, args...)
}

// SkipContext prints a skip step using the logger from context.
func SkipContext(ctx context.Context, status, format string, args ...interface{}) {
	FromContext(ctx).Step(SkipStep, status, format, args...)
}
