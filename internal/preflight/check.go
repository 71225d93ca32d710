package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as its name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

func pass(name, msg string, required bool) CheckResult {
	return CheckResult{Name: name, Status: StatusPass, Message: msg, Required: required}
}

func fail(name, msg string, required bool) CheckResult {
	return CheckResult{Name: name, Status: StatusFail, Message: msg, Required: required}
}

func warning(name, msg string) CheckResult {
	return CheckResult{Name: name, Status: StatusWarn, Message: msg}
}

// Checker runs the preflight checks for one configuration.
type Checker struct {
	cfg     *config.Config
	loadErr error
}

// New creates a Checker for cfg. loadErr is the warning returned by
// config.Load, if any.
func New(cfg *config.Config, loadErr error) *Checker {
	return &Checker{cfg: cfg, loadErr: loadErr}
}

// RunAll runs every check in a fixed order. Checks that depend on the root
// are skipped when the root is unusable.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	results := []CheckResult{c.CheckRoot(), c.CheckConfig()}
	if results[0].IsCritical() {
		return results
	}

	for _, check := range []func() CheckResult{
		c.CheckSearchPaths,
		c.CheckOutputDir,
		c.CheckDiskSpace,
		c.CheckOutputLock,
		c.CheckFileDescriptors,
	} {
		if ctx.Err() != nil {
			break
		}
		results = append(results, check())
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes one line per check and a summary.
func PrintResults(out *output.Writer, results []CheckResult, verbose bool) {
	out.Header("Knowledge base check")

	for _, r := range results {
		line := fmt.Sprintf("%s: %s", r.Name, r.Message)
		switch r.Status {
		case StatusPass:
			out.Success(line)
		case StatusWarn:
			out.Warning(line)
		default:
			if r.Required {
				out.Error(line)
			} else {
				out.Warning(line)
			}
		}
		if r.Details != "" && (verbose || r.Status != StatusPass) {
			out.Dim("    " + r.Details)
		}
	}

	out.Newline()
	out.KeyValue("Status", strings.ToUpper(SummaryStatus(results)))
}
