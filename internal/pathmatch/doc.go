// Package pathmatch decides whether a knowledge-base-relative path is excluded.
//
// Patterns are matched against whole path segments, never raw substrings:
//   - ".git" excludes "a/.git/config" but not "my.github.notes.md"
//   - "*.bak", "draft?" are globs tested against each segment
//   - "archive/2019", "/drafts" and patterns containing "/" are anchored
//     at the base and exclude everything below a matching directory
//   - "dir/**" is the same as "dir/"; "**/" matches any number of directories
//   - a trailing "/" restricts the pattern to directories
//   - a leading "!" re-includes a previously excluded path
//
// The same syntax is used for configured exclude patterns and for .gitignore
// files found inside the knowledge base.
//
//	m := pathmatch.New(".git", "*.bak", "archive/**")
//	m.Match("notes/.git/HEAD", false) // true
//	m.Match("my.github.notes.md", false) // false
package pathmatch
