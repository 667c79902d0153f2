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

package docker

import "runtime"

// Outcome is the result of a target operation that did not fail.
type Outcome int

const (
	// Built means the image was built.
	Built Outcome = iota
	// Pushed means the image was pushed.
	Pushed
	// UpToDate means the image already exists in the registry.
	UpToDate
	// Unsupported means the operation was skipped on this host or profile.
	Unsupported
	// DryRun means the operation stopped before changing anything.
	DryRun
)

func (o Outcome) String() string {
	switch o {
	case Built:
		return "built"
	case Pushed:
		return "pushed"
	case UpToDate:
		return "up-to-date"
	case Unsupported:
		return "unsupported"
	case DryRun:
		return "dry-run"
	default:
		return "unknown"
	}
}

// hostOS is overridden in tests.
var hostOS = runtime.GOOS

func supportedHost() bool {
	return hostOS != "windows"
}
