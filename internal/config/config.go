package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
)

// Config represents the complete sthmatters configuration.
type Config struct {
	Version        int                      `yaml:"version" json:"version"`
	Root           string                   `yaml:"root" json:"root"`
	Index          IndexConfig              `yaml:"index" json:"index"`
	SearchProfiles map[string]SearchProfile `yaml:"search_profiles" json:"search_profiles"`
	Search         SearchConfig             `yaml:"search" json:"search"`
	Output         OutputConfig             `yaml:"output" json:"output"`
	Book           BookConfig               `yaml:"book" json:"book"`
	Manifest       ManifestConfig           `yaml:"manifest" json:"manifest"`
	Watch          WatchConfig              `yaml:"watch" json:"watch"`
	Logging        LoggingConfig            `yaml:"logging" json:"logging"`
}

// IndexConfig controls which knowledge-base files are indexed.
type IndexConfig struct {
	// SupportedExtensions is the suffix allow-list, compared case-insensitively.
	SupportedExtensions []string `yaml:"supported_extensions" json:"supported_extensions"`

	// DefaultSearchPaths are root-relative directories or files. "*" and "."
	// both mean the whole knowledge base.
	DefaultSearchPaths []string `yaml:"default_search_paths" json:"default_search_paths"`

	// ExcludePatterns are path-segment names or glob patterns.
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns"`

	MaxFileSizeBytes      int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	IncludeSubdirectories *bool `yaml:"include_subdirectories,omitempty" json:"include_subdirectories,omitempty"`
	RespectGitignore      *bool `yaml:"respect_gitignore,omitempty" json:"respect_gitignore,omitempty"`

	// Workers bounds parallel file analysis (0 = NumCPU).
	Workers int `yaml:"workers" json:"workers"`
}

// SearchProfile is a named preset of search paths.
type SearchProfile struct {
	Paths       []string `yaml:"paths" json:"paths"`
	Description string   `yaml:"description" json:"description"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	MaxResults  int    `yaml:"max_results" json:"max_results"`
	MatchType   string `yaml:"match_type" json:"match_type"`
	Deduplicate bool   `yaml:"deduplicate" json:"deduplicate"`
}

// OutputConfig controls generated documents.
type OutputConfig struct {
	Dir                  string `yaml:"dir" json:"dir"`
	IncludeFullContent   bool   `yaml:"include_full_content" json:"include_full_content"`
	IncludeSourceContent *bool  `yaml:"include_source_content,omitempty" json:"include_source_content,omitempty"`
}

// BookConfig holds EPUB metadata defaults.
type BookConfig struct {
	Language  string `yaml:"language" json:"language"`
	Author    string `yaml:"author" json:"author"`
	Publisher string `yaml:"publisher" json:"publisher"`
}

// ManifestConfig controls query-derived topic manifests.
type ManifestConfig struct {
	// LinkPattern is a regular expression; the first match in a source file
	// becomes the record's external link.
	LinkPattern string `yaml:"link_pattern" json:"link_pattern"`

	// QuickCategory, when set, replaces the index category of every source.
	QuickCategory string `yaml:"quick_category" json:"quick_category"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig controls file logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultMaxFileSizeBytes is 100 MiB.
const DefaultMaxFileSizeBytes int64 = 100 * 1024 * 1024

// ProjectConfigNames are the per-knowledge-base config file names, in lookup order.
var ProjectConfigNames = []string{".sthmatters.yaml", ".sthmatters.yml"}

var defaultExtensions = []string{".md", ".txt", ".json", ".html", ".htm"}

var defaultExcludePatterns = []string{
	".git",
	"__pycache__",
	"node_modules",
	".DS_Store",
	".sthmatters",
}

var validMatchTypes = map[string]bool{"all": true, "filename": true, "tag": true, "content": true}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// NewConfig creates a new Config with the documented defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			SupportedExtensions:   append([]string(nil), defaultExtensions...),
			DefaultSearchPaths:    []string{"."},
			ExcludePatterns:       append([]string(nil), defaultExcludePatterns...),
			MaxFileSizeBytes:      DefaultMaxFileSizeBytes,
			IncludeSubdirectories: boolPtr(true),
			RespectGitignore:      boolPtr(false),
			Workers:               runtime.NumCPU(),
		},
		SearchProfiles: map[string]SearchProfile{
			"all": {Paths: []string{"*"}, Description: "Entire knowledge base"},
		},
		Search: SearchConfig{
			MaxResults: 50,
			MatchType:  "all",
		},
		Output: OutputConfig{
			Dir:                  "output",
			IncludeSourceContent: boolPtr(true),
		},
		Book: BookConfig{
			Language:  "zh-CN",
			Author:    "sthmatters",
			Publisher: "sthmatters",
		},
		Manifest: ManifestConfig{
			LinkPattern: `https://zhuanlan\.zhihu\.com/p/\d+`,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// IncludeSubdirectories reports whether directory search paths recurse.
func (c *Config) IncludeSubdirectories() bool {
	return c.Index.IncludeSubdirectories == nil || *c.Index.IncludeSubdirectories
}

// RespectGitignore reports whether .gitignore files in the knowledge base are honoured.
func (c *Config) RespectGitignore() bool {
	return c.Index.RespectGitignore != nil && *c.Index.RespectGitignore
}

// IncludeSourceContent reports whether manifest layouts embed original file content.
func (c *Config) IncludeSourceContent() bool {
	return c.Output.IncludeSourceContent == nil || *c.Output.IncludeSourceContent
}

// WatchDebounce parses Watch.Debounce, falling back to 500ms.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// OutputDir returns the output directory, resolved against the root when relative.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(c.Root, c.Output.Dir)
}

// ExcludePatterns returns the index exclude patterns plus the output
// directory when it lies inside the knowledge base, so generated documents
// are never indexed.
func (c *Config) ExcludePatterns() []string {
	patterns := append([]string(nil), c.Index.ExcludePatterns...)
	rel, err := filepath.Rel(c.Root, c.OutputDir())
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return patterns
	}
	return appendUnique(patterns, "/"+filepath.ToSlash(rel)+"/")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/sthmatters/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/sthmatters/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sthmatters", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "sthmatters", "config.yaml")
	}
	return filepath.Join(home, ".config", "sthmatters", "config.yaml")
}

// Load loads configuration for the knowledge base rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/sthmatters/config.yaml)
//  3. Project config (.sthmatters.yaml in the knowledge-base root)
//  4. Environment variables (STHMATTERS_*)
//
// The returned Config is always usable. A non-nil error is a ConfigError
// warning: the offending layer was skipped or values were reset to defaults.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()
	cfg.Root = dir

	var problems []string

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		problems = append(problems, err.Error())
	}

	cfg.applyEnvOverrides()
	cfg.resolveRoot(dir)

	if err := cfg.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return cfg, kberrors.ConfigError(strings.Join(problems, "; "), nil).
			WithSuggestion("fix the configuration file; defaults are used meanwhile")
	}
	return cfg, nil
}

// loadFromFile loads .sthmatters.yaml or .sthmatters.yml from dir.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses path and merges it into c. A parse failure leaves c untouched.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if parsed.Root != "" && !filepath.IsAbs(parsed.Root) {
		parsed.Root = filepath.Join(filepath.Dir(path), parsed.Root)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Root != "" {
		c.Root = other.Root
	}

	// Index
	if len(other.Index.SupportedExtensions) > 0 {
		c.Index.SupportedExtensions = other.Index.SupportedExtensions
	}
	if len(other.Index.DefaultSearchPaths) > 0 {
		c.Index.DefaultSearchPaths = other.Index.DefaultSearchPaths
	}
	if len(other.Index.ExcludePatterns) > 0 {
		// Merge with defaults rather than replace
		c.Index.ExcludePatterns = appendUnique(c.Index.ExcludePatterns, other.Index.ExcludePatterns...)
	}
	if other.Index.MaxFileSizeBytes != 0 {
		c.Index.MaxFileSizeBytes = other.Index.MaxFileSizeBytes
	}
	if other.Index.IncludeSubdirectories != nil {
		c.Index.IncludeSubdirectories = other.Index.IncludeSubdirectories
	}
	if other.Index.RespectGitignore != nil {
		c.Index.RespectGitignore = other.Index.RespectGitignore
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}

	// Profiles are merged by name
	for name, p := range other.SearchProfiles {
		if c.SearchProfiles == nil {
			c.SearchProfiles = make(map[string]SearchProfile)
		}
		c.SearchProfiles[name] = p
	}

	// Search
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MatchType != "" {
		c.Search.MatchType = other.Search.MatchType
	}
	if other.Search.Deduplicate {
		c.Search.Deduplicate = true
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.IncludeFullContent {
		c.Output.IncludeFullContent = true
	}
	if other.Output.IncludeSourceContent != nil {
		c.Output.IncludeSourceContent = other.Output.IncludeSourceContent
	}

	// Book
	if other.Book.Language != "" {
		c.Book.Language = other.Book.Language
	}
	if other.Book.Author != "" {
		c.Book.Author = other.Book.Author
	}
	if other.Book.Publisher != "" {
		c.Book.Publisher = other.Book.Publisher
	}

	// Manifest
	if other.Manifest.LinkPattern != "" {
		c.Manifest.LinkPattern = other.Manifest.LinkPattern
	}
	if other.Manifest.QuickCategory != "" {
		c.Manifest.QuickCategory = other.Manifest.QuickCategory
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies STHMATTERS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STHMATTERS_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("STHMATTERS_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("STHMATTERS_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			c.Index.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv("STHMATTERS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STHMATTERS_SEARCH_PATHS"); v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		if len(paths) > 0 {
			c.Index.DefaultSearchPaths = paths
		}
	}
}

// resolveRoot makes Root absolute; relative roots are taken against dir.
func (c *Config) resolveRoot(dir string) {
	if c.Root == "" {
		c.Root = dir
	}
	if !filepath.IsAbs(c.Root) {
		c.Root = filepath.Join(dir, c.Root)
	}
	if abs, err := filepath.Abs(c.Root); err == nil {
		c.Root = abs
	}
}

// Validate normalizes the configuration in place. Invalid values are reset
// to their defaults and reported in the returned error.
func (c *Config) Validate() error {
	defaults := NewConfig()
	var problems []string

	exts := make([]string, 0, len(c.Index.SupportedExtensions))
	for _, ext := range c.Index.SupportedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = appendUnique(exts, ext)
	}
	if len(exts) == 0 {
		problems = append(problems, "index.supported_extensions is empty")
		exts = defaults.Index.SupportedExtensions
	}
	c.Index.SupportedExtensions = exts

	if len(c.Index.DefaultSearchPaths) == 0 {
		c.Index.DefaultSearchPaths = defaults.Index.DefaultSearchPaths
	}

	if c.Index.MaxFileSizeBytes <= 0 {
		problems = append(problems, fmt.Sprintf("index.max_file_size_bytes must be positive, got %d", c.Index.MaxFileSizeBytes))
		c.Index.MaxFileSizeBytes = defaults.Index.MaxFileSizeBytes
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = defaults.Index.Workers
	}

	if c.Search.MaxResults < 0 {
		problems = append(problems, fmt.Sprintf("search.max_results must be non-negative, got %d", c.Search.MaxResults))
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	c.Search.MatchType = strings.ToLower(c.Search.MatchType)
	if !validMatchTypes[c.Search.MatchType] {
		problems = append(problems, fmt.Sprintf("search.match_type must be all, filename, tag or content, got %s", c.Search.MatchType))
		c.Search.MatchType = defaults.Search.MatchType
	}

	for name, p := range c.SearchProfiles {
		if len(p.Paths) == 0 {
			problems = append(problems, fmt.Sprintf("search profile %q has no paths", name))
			delete(c.SearchProfiles, name)
		}
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !validLevels[c.Logging.Level] {
		problems = append(problems, fmt.Sprintf("logging.level must be debug, info, warn or error, got %s", c.Logging.Level))
		c.Logging.Level = defaults.Logging.Level
	}

	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Profile returns the named search profile.
func (c *Config) Profile(name string) (SearchProfile, bool) {
	p, ok := c.SearchProfiles[name]
	return p, ok
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.SearchProfiles))
	for name := range c.SearchProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UseProfile swaps the profile's paths in as the active search paths.
func (c *Config) UseProfile(name string) error {
	p, ok := c.SearchProfiles[name]
	if !ok {
		return kberrors.New(kberrors.ErrCodeUnknownProfile, fmt.Sprintf("unknown search profile %q", name), nil).
			WithSuggestion("available profiles: " + strings.Join(c.ProfileNames(), ", "))
	}
	c.Index.DefaultSearchPaths = append([]string(nil), p.Paths...)
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
