package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Root = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "a.md"), []byte("alpha"), 0o644))
	return cfg
}

func find(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no %s check in results", name)
	return CheckResult{}
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestRunAll_HealthyKnowledgeBase(t *testing.T) {
	// Given: a knowledge base with a writable output directory
	cfg := testConfig(t)

	// When: running all checks
	results := New(cfg, nil).RunAll(context.Background())

	// Then: every knowledge-base check passes and the output dir exists
	for _, name := range []string{"root", "config", "search_paths", "output_dir", "output_lock"} {
		assert.Equal(t, StatusPass, find(t, results, name).Status, name)
	}
	assert.DirExists(t, cfg.OutputDir())
	assert.False(t, HasCriticalFailures(results))
	assert.Len(t, results, 7)
}

func TestRunAll_MissingRootStopsEarly(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Root = filepath.Join(t.TempDir(), "missing")

	results := New(cfg, nil).RunAll(context.Background())

	require.Len(t, results, 2)
	assert.True(t, results[0].IsCritical())
	assert.Equal(t, "ready", SummaryStatus(results[1:]))
	assert.Equal(t, "failed", SummaryStatus(results))
	assert.NoDirExists(t, cfg.OutputDir())
}

func TestRunAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(testConfig(t), nil).RunAll(ctx)

	assert.Len(t, results, 2)
}

func TestCheckConfig_ReportsLoadWarning(t *testing.T) {
	loadErr := kberrors.ConfigError("search.max_results must be non-negative, got -1", nil)

	r := New(testConfig(t), loadErr).CheckConfig()

	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, "search.max_results must be non-negative, got -1", r.Details)
	assert.False(t, r.IsCritical())
}

func TestCheckSearchPaths(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Mkdir(filepath.Join(cfg.Root, "9a"), 0o755))
	cfg.Index.DefaultSearchPaths = []string{"9a", "missing", "../escape"}

	r := New(cfg, nil).CheckSearchPaths()

	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, "2 of 3 unusable", r.Message)
	assert.Equal(t, "missing (not found), ../escape (outside root)", r.Details)
}

func TestCheckOutputDir_NotWritable(t *testing.T) {
	// Given: an output "directory" that is a regular file
	cfg := testConfig(t)
	blocker := filepath.Join(cfg.Root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Output.Dir = filepath.Join(blocker, "out")

	// When: checking the output directory
	r := New(cfg, nil).CheckOutputDir()

	// Then: the check fails critically
	assert.True(t, r.IsCritical())
	assert.Contains(t, r.Message, "cannot create")
}

func TestCheckOutputLock_HeldElsewhere(t *testing.T) {
	cfg := testConfig(t)
	held := fsutil.NewDirLock(cfg.OutputDir())
	require.NoError(t, held.Lock(0))
	t.Cleanup(func() { _ = held.Unlock() })

	r := New(cfg, nil).CheckOutputLock()

	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, held.Path(), r.Details)
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, StatusPass, checkDiskSpace(dir, 1).Status)
	assert.True(t, checkDiskSpace(dir, ^uint64(0)).IsCritical())
	assert.True(t, checkDiskSpace(filepath.Join(dir, "missing"), 1).IsCritical())
}

func TestSummaryStatus(t *testing.T) {
	assert.Equal(t, "ready", SummaryStatus([]CheckResult{pass("a", "", true)}))
	assert.Equal(t, "ready_with_warnings", SummaryStatus([]CheckResult{pass("a", "", true), warning("b", "")}))
	assert.Equal(t, "ready_with_warnings", SummaryStatus([]CheckResult{fail("b", "", false)}))
	assert.Equal(t, "failed", SummaryStatus([]CheckResult{warning("a", ""), fail("b", "", true)}))
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	results := []CheckResult{
		pass("root", "/kb", true),
		{Name: "search_paths", Status: StatusWarn, Message: "1 of 1 unusable", Details: "x (not found)"},
		fail("output_dir", "permission denied", true),
	}

	PrintResults(output.NewWithColor(&buf, false), results, false)

	got := buf.String()
	assert.Contains(t, got, "Knowledge base check\n")
	assert.Contains(t, got, "✓ root: /kb\n")
	assert.Contains(t, got, "! search_paths: 1 of 1 unusable\n")
	assert.Contains(t, got, "    x (not found)\n")
	assert.Contains(t, got, "✗ output_dir: permission denied\n")
	assert.Contains(t, got, "FAILED")
}

func TestCheckResult_JSON(t *testing.T) {
	data, err := json.Marshal(warning("config", "defaults used"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"config","status":"warn","message":"defaults used","required":false}`, string(data))
}
