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

package azure

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/errors"
)

// errorPattern matches az CLI failure output to a classification.
type errorPattern struct {
	anyPatterns []string
	// anyRegexps match tokens that are unsafe as substrings, such as
	// status codes that can also appear inside resource GUIDs.
	anyRegexps  []*regexp.Regexp
	transient   bool
	notFound    bool
	remediation string
}

// errorPatterns are checked in order; the first match wins.
var errorPatterns = []errorPattern{
	{
		anyPatterns: []string{"ResourceNotFound", "ResourceGroupNotFound", "could not be found", "was not found"},
		notFound:    true,
	},
	{
		anyPatterns: []string{"Please run 'az login'", "az login", "AADSTS"},
		remediation: "Sign in with 'az login' (or 'az login --identity' on a managed identity) before building.",
	},
	{
		anyPatterns: []string{"AuthorizationFailed", "does not have authorization"},
		remediation: "Grant the signed-in identity Contributor on the gallery and build resource groups.",
	},
	{
		anyPatterns: []string{"QuotaExceeded", "OperationNotAllowed"},
		remediation: "A subscription quota was reached. Free up cores in the build region or request a quota increase.",
	},
	{
		anyPatterns: []string{
			"TooManyRequests", "ServiceUnavailable", "InternalServerError", "GatewayTimeout", "BadGateway",
			"Connection aborted", "connection reset", "RemoteDisconnected",
		},
		anyRegexps: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(status|status code|http)[: ]+(429|500|502|503|504)\b`),
			regexp.MustCompile(`(?i)\bthrottl(ed|ing)\b`),
			regexp.MustCompile(`(?i)\b(read|connect|connection|request|operation) timed out\b`),
		},
		transient: true,
	},
}

// classify converts a failed az invocation into a BackendError.
func classify(op string, res command.Result) error {
	out := strings.TrimSpace(res.Output)
	cause := fmt.Errorf("az exited with code %d: %s", res.ExitCode, out)

	lower := strings.ToLower(out)
	for _, p := range errorPatterns {
		if !matchesAny(out, lower, p.anyPatterns) && !matchesRegexp(out, p.anyRegexps) {
			continue
		}
		if p.notFound {
			return &errors.BackendError{Op: op, Err: fmt.Errorf("%w: %s", ErrNotFound, out)}
		}
		return &errors.BackendError{Op: op, Transient: p.transient, Remediation: p.remediation, Err: cause}
	}
	return &errors.BackendError{Op: op, Err: cause}
}

func matchesAny(out, lower string, patterns []string) bool {
	for _, pat := range patterns {
		if strings.Contains(out, pat) || strings.Contains(lower, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}

func matchesRegexp(out string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(out) {
			return true
		}
	}
	return false
}
