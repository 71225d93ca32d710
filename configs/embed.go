// Package configs provides the embedded configuration template for sthmatters.
//
// The template is embedded at build time so `sthmatters config init` works
// from any binary distribution. Configuration hierarchy (see
// internal/config/config.go Load()):
//  1. Hardcoded defaults (NewConfig)
//  2. User config (~/.config/sthmatters/config.yaml)
//  3. Knowledge-base config (.sthmatters.yaml)
//  4. Environment variables (STHMATTERS_*)
package configs

import _ "embed"

// ProjectConfigTemplate is written to .sthmatters.yaml in the knowledge-base root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
