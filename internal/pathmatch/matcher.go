package pathmatch

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"
)

// Matcher holds compiled patterns. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	source   string
	regex    *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
	base     string
}

// New returns a Matcher holding the given patterns.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.Add(p)
	}
	return m
}

// Add compiles pattern relative to the knowledge-base root.
func (m *Matcher) Add(pattern string) {
	m.AddWithBase(pattern, "")
}

// AddWithBase compiles a pattern that applies only below base,
// as patterns from a nested .gitignore do.
func (m *Matcher) AddWithBase(pattern, base string) {
	r, ok := compile(pattern)
	if !ok {
		return
	}
	r.base = strings.Trim(toSlash(base), "/")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFile reads patterns from a .gitignore-style file.
func (m *Matcher) AddFile(file, base string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddWithBase(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read ignore file: %w", err)
	}
	return nil
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether relPath is excluded. The last matching rule wins,
// so a later "!pattern" can re-include a path.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = strings.Trim(toSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	excluded := false
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			excluded = !r.negate
		}
	}
	return excluded
}

// MatchAny reports whether relPath is excluded by any of the patterns.
func MatchAny(relPath string, isDir bool, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return New(patterns...).Match(relPath, isDir)
}

// Parse returns the non-empty, non-comment lines of ignore-file content.
func Parse(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (strings.HasPrefix(line, "#") && !strings.HasPrefix(line, `\#`)) {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func compile(pattern string) (rule, bool) {
	escapedSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return rule{}, false
	}

	r := rule{source: pattern}

	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = pattern[1:]
	case strings.HasPrefix(pattern, "!"):
		r.negate = true
		pattern = pattern[1:]
	}
	if escapedSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	// "dir/**" excludes everything below dir, which is what "dir/" does.
	if strings.HasSuffix(pattern, "/**") {
		pattern = strings.TrimSuffix(pattern, "/**")
		r.dirOnly = true
	}
	if strings.HasSuffix(pattern, "/") {
		pattern = strings.TrimRight(pattern, "/")
		r.dirOnly = true
	}
	if strings.HasPrefix(pattern, "/") {
		pattern = strings.TrimLeft(pattern, "/")
		r.anchored = true
	}
	if strings.Contains(pattern, "/") {
		r.anchored = true
	}
	if pattern == "" || pattern == "**" {
		return rule{}, false
	}

	r.regex = regexp.MustCompile("^" + globToRegex(pattern) + "$")
	return r, true
}

// matches tests the rule against every ancestor of relPath and the path itself.
// A match on an ancestor directory excludes everything below it.
func (r rule) matches(relPath string, isDir bool) bool {
	if r.base != "" {
		if !strings.HasPrefix(relPath, r.base+"/") {
			return false
		}
		relPath = strings.TrimPrefix(relPath, r.base+"/")
	}

	segments := strings.Split(relPath, "/")
	last := len(segments) - 1

	for i := range segments {
		candidate := segments[i]
		if r.anchored {
			candidate = strings.Join(segments[:i+1], "/")
		}
		if !r.regex.MatchString(candidate) {
			continue
		}
		if i < last {
			return true
		}
		return !r.dirOnly || isDir
	}
	return false
}

// globToRegex converts a glob with gitignore wildcards to a regex body.
func globToRegex(glob string) string {
	var sb strings.Builder

	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				atStart := i == 0 || glob[i-1] == '/'
				if i+2 < len(glob) && glob[i+2] == '/' && atStart {
					sb.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				if atStart {
					sb.WriteString(".*")
					i++
					continue
				}
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				sb.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			sb.WriteString("[" + class + "]")
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(glob[i])))
			} else {
				sb.WriteString(`\\`)
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	return sb.String()
}

func toSlash(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return p
	}
	return path.Clean(p)
}
