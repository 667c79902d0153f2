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

package runner

import (
	"context"
	"strings"
	"sync"
)

// Fake records commands instead of running them. Handler, when set, decides
// the Result for each command; otherwise every command succeeds.
type Fake struct {
	mu      sync.Mutex
	Calls   []FakeCall
	Handler func(cmd Command) (*Result, error)
}

// FakeCall is a recorded invocation.
type FakeCall struct {
	Command Command
	Policy  OutputPolicy
}

var _ Runner = (*Fake)(nil)

// Run records the command and returns the Handler's answer.
func (f *Fake) Run(_ context.Context, cmd Command, policy OutputPolicy) (*Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, FakeCall{Command: cmd, Policy: policy})
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return &Result{}, nil
	}
	return handler(cmd)
}

// CommandLines returns "program arg..." for every recorded call.
func (f *Fake) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = strings.Join(append([]string{c.Command.Program}, c.Command.Args...), " ")
	}
	return lines
}

// CountSubcommand counts calls whose first argument is sub, e.g. "push".
func (f *Fake) CountSubcommand(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if len(c.Command.Args) > 0 && c.Command.Args[0] == sub {
			n++
		}
	}
	return n
}
