// Package debug provides the file-based debug sink used to keep raw
// portal markup for offline inspection.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure FileSink implements the interface.
var _ driven.DebugSink = (*FileSink)(nil)

// DefaultLimit caps how many artifacts a sink keeps per run.
const DefaultLimit = 50

// FileSink writes page dumps into a directory, bounded by a dump
// count. Once the cap is reached further dumps are dropped silently.
type FileSink struct {
	mu      sync.Mutex
	dir     string
	limit   int
	written int
}

// NewFileSink creates a sink writing into dir. A non-positive limit
// falls back to DefaultLimit. The directory is created lazily on the
// first dump.
func NewFileSink(dir string, limit int) *FileSink {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &FileSink{dir: dir, limit: limit}
}

// Dump writes one artifact under the given name hint.
func (s *FileSink) Dump(name, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written >= s.limit {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}

	path := filepath.Join(s.dir, sanitize(name)+".html")
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("write dump %s: %w", path, err)
	}

	s.written++
	logger.Debug("Dumped page to %s (%d bytes)", path, len(markup))
	return nil
}

// sanitize keeps dump names filesystem-safe.
func sanitize(name string) string {
	if name == "" {
		return "page"
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	mapped = strings.Trim(mapped, "._")
	if mapped == "" {
		return "page"
	}
	return mapped
}
