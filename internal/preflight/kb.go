package preflight

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/fsutil"
	"github.com/DayDreammy/Sth-Matters-epub/internal/scanner"
)

// CheckRoot checks that the knowledge-base root is a directory.
func (c *Checker) CheckRoot() CheckResult {
	const name = "root"
	info, err := os.Stat(c.cfg.Root)
	if err != nil {
		r := fail(name, fmt.Sprintf("%s not found", c.cfg.Root), true)
		r.Details = "pass --root or set STHMATTERS_ROOT"
		return r
	}
	if !info.IsDir() {
		return fail(name, fmt.Sprintf("%s is not a directory", c.cfg.Root), true)
	}
	return pass(name, c.cfg.Root, true)
}

// CheckConfig reports configuration problems found while loading.
func (c *Checker) CheckConfig() CheckResult {
	const name = "config"
	if c.loadErr == nil {
		return pass(name, "OK", false)
	}
	r := warning(name, "defaults used for invalid values")
	var kbErr *kberrors.KBError
	if stderrors.As(c.loadErr, &kbErr) {
		r.Details = kbErr.Message
	} else {
		r.Details = c.loadErr.Error()
	}
	return r
}

// CheckSearchPaths checks that every active search path exists inside the root.
func (c *Checker) CheckSearchPaths() CheckResult {
	const name = "search_paths"
	var problems []string
	for _, sp := range c.cfg.Index.DefaultSearchPaths {
		rel, ok := scanner.NormalizeSearchPath(sp)
		if !ok {
			problems = append(problems, sp+" (outside root)")
			continue
		}
		if _, err := os.Stat(filepath.Join(c.cfg.Root, filepath.FromSlash(rel))); err != nil {
			problems = append(problems, sp+" (not found)")
		}
	}

	if len(problems) > 0 {
		r := warning(name, fmt.Sprintf("%d of %d unusable", len(problems), len(c.cfg.Index.DefaultSearchPaths)))
		r.Details = strings.Join(problems, ", ")
		return r
	}
	return pass(name, strings.Join(c.cfg.Index.DefaultSearchPaths, ", "), false)
}

// CheckOutputDir checks that generated documents can be written. The
// directory is created when missing.
func (c *Checker) CheckOutputDir() CheckResult {
	const name = "output_dir"
	dir := c.cfg.OutputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(name, fmt.Sprintf("cannot create %s: %v", dir, err), true)
	}

	f, err := os.CreateTemp(dir, ".sthmatters-preflight-*")
	if err != nil {
		return fail(name, fmt.Sprintf("permission denied: %v", err), true)
	}
	_ = f.Close()
	_ = os.Remove(f.Name())

	return pass(name, dir, true)
}

// CheckOutputLock warns when another process holds the output directory lock.
func (c *Checker) CheckOutputLock() CheckResult {
	const name = "output_lock"
	dir := c.cfg.OutputDir()
	if _, err := os.Stat(dir); err != nil {
		return pass(name, "not locked", false)
	}

	lock := fsutil.NewDirLock(dir)
	if err := lock.Lock(0); err != nil {
		r := warning(name, "held by another process")
		r.Details = lock.Path()
		return r
	}
	_ = lock.Unlock()
	return pass(name, "not locked", false)
}
