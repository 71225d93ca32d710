// Package preflight checks that a knowledge base is ready to be indexed and
// rendered before a long-running command starts.
//
// The checks cover:
//   - the knowledge-base root and configuration
//   - every active search path
//   - the output directory (writable, enough free space, not locked)
//   - the open file limit used by the watch command
//
// Use the Checker type to run all checks:
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if preflight.HasCriticalFailures(results) {
//	    // refuse to run
//	}
package preflight
