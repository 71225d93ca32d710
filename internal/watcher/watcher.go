package watcher

import (
	"time"
)

// Operation is the kind of file system change.
type Operation int

const (
	// OpCreate indicates a new file or directory.
	OpCreate Operation = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file or directory was removed.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
	// OpIgnoreChange indicates a .gitignore file changed, which may change
	// the set of indexed files.
	OpIgnoreChange
	// OpConfigChange indicates the project config file changed.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpIgnoreChange:
		return "IGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change, with Path relative to the watched root.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// ConfigFileNames are the project config files whose changes are reported
// as OpConfigChange.
var ConfigFileNames = []string{".sthmatters.yaml", ".sthmatters.yml"}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted. Default: 500ms.
	Debounce time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 16
	EventBufferSize int

	// ExcludePatterns use the index exclude syntax; matching paths produce
	// no events and excluded directories are not watched.
	ExcludePatterns []string

	// Extensions limits file events to these extensions. Empty means all.
	// Directory, ignore-file and config events always pass.
	Extensions []string

	// RespectGitignore also drops paths matched by .gitignore files.
	RespectGitignore bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:        500 * time.Millisecond,
		EventBufferSize: 16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
