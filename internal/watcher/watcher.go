// Package watcher reports changes to scenario and script files so a run can
// be repeated when they are edited.
//
// Files are watched through their parent directories: editors commonly save
// by writing a temporary file and renaming it over the original, which would
// drop a watch placed on the file itself. Events for files that were not
// added are discarded.
package watcher

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrIsDirectory   = errors.New("path is a directory")
)

// Op is a set of file system operations.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operation names joined by "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes o.
func (op Op) Has(o Op) bool {
	return o != 0 && op&o == o
}

// Event is a change to one watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op is the operation that occurred.
	Op Op

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Config holds watcher configuration.
type Config struct {
	// Debounce is the quiet period Batches waits for before reporting.
	// Default: 200ms
	Debounce time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 64
	BufferSize int

	// IgnoreChmod drops events that only change permissions.
	// Default: true
	IgnoreChmod bool

	// Logger receives dropped-event and error diagnostics.
	Logger zerolog.Logger
}

// DefaultConfig returns a Config with the defaults above.
func DefaultConfig() Config {
	return Config{
		Debounce:    200 * time.Millisecond,
		BufferSize:  64,
		IgnoreChmod: true,
		Logger:      zerolog.Nop(),
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithIgnoreChmod sets whether permission-only changes are dropped.
func WithIgnoreChmod(ignore bool) Option {
	return func(c *Config) {
		c.IgnoreChmod = ignore
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
