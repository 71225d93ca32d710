// Package logging sets up structured file logging with rotation for sthmatters.
// Logs are JSON lines written to ~/.sthmatters/logs/sthmatters.log (or the
// configured file). Without --debug the CLI only logs warnings to stderr.
package logging
