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

package errors

import "strings"

// remediationPattern maps failure text to a remediation hint.
type remediationPattern struct {
	patterns    []string // all must match
	anyPatterns []string // at least one must match
	remediation string
}

var remediationPatterns = []remediationPattern{
	{
		anyPatterns: []string{"Cannot connect to the Docker daemon", "docker daemon is not running", "error during connect"},
		remediation: "Make sure the Docker daemon is running and that the current user can access its socket.",
	},
	{
		anyPatterns: []string{"executable file not found", "command not found"},
		remediation: "Make sure the tool is installed and present in PATH, or set its path in the monodist configuration.",
	},
	{
		anyPatterns: []string{"no basic auth credentials", "unauthorized", "denied: requested access", "authentication required"},
		remediation: "Log in to the registry first (for ECR: `aws ecr get-login-password | docker login --username AWS --password-stdin <registry>`).",
	},
	{
		anyPatterns: []string{"AccessDenied", "not authorized", "UnrecognizedClient", "InvalidSignature"},
		remediation: "Verify that your AWS credentials are valid and allow ecr:CreateRepository in the target account and region.",
	},
	{
		patterns:    []string{"repository"},
		anyPatterns: []string{"does not exist", "name unknown"},
		remediation: "Create the registry repository or set `allow_registry_repo_auto_creation: true` in the docker section of dist.yaml.",
	},
	{
		anyPatterns: []string{"LimitExceeded", "toomanyrequests", "rate limit"},
		remediation: "The registry is throttling requests. Wait a moment and try again.",
	},
}

// Remediation returns a hint for the given failure text, or an empty string
// when no known pattern matches.
func Remediation(text string) string {
	for _, p := range remediationPatterns {
		if matchesPattern(text, p) {
			return p.remediation
		}
	}
	return ""
}

// WithRemediation appends a remediation hint to the explanation when the
// error's cause or captured output matches a known pattern.
func (e *Error) WithRemediation() *Error {
	text := e.Output
	if e.Cause != nil {
		text += "\n" + e.Cause.Error()
	}

	hint := Remediation(text)
	if hint == "" {
		return e
	}

	if e.Explanation == "" {
		e.Explanation = hint
	} else {
		e.Explanation += "\n\nRemediation: " + hint
	}
	return e
}

func matchesPattern(text string, p remediationPattern) bool {
	for _, pat := range p.patterns {
		if !strings.Contains(text, pat) {
			return false
		}
	}

	if len(p.anyPatterns) > 0 {
		for _, pat := range p.anyPatterns {
			if strings.Contains(text, pat) {
				return true
			}
		}
		return false
	}

	return true
}
