package fileset

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/conneroisu/assetsmith/internal/logging"
)

// Size accumulates the bytes written by a task for its closing size report.
type Size struct {
	title     string
	showFiles bool
	total     atomic.Int64
	count     atomic.Int64

	mu    sync.Mutex
	files []fileSize
}

type fileSize struct {
	name string
	size int64
}

// NewSize creates a size report titled like the task that owns it.
func NewSize(title string, showFiles bool) *Size {
	return &Size{title: title, showFiles: showFiles}
}

// Add records one written file.
func (s *Size) Add(name string, n int) {
	s.total.Add(int64(n))
	s.count.Add(1)
	if s.showFiles {
		s.mu.Lock()
		s.files = append(s.files, fileSize{name: name, size: int64(n)})
		s.mu.Unlock()
	}
}

// Total returns the number of bytes recorded.
func (s *Size) Total() int64 {
	return s.total.Load()
}

// Count returns the number of files recorded.
func (s *Size) Count() int64 {
	return s.count.Load()
}

// Log writes the report, one line per file when showFiles is set.
func (s *Size) Log(ctx context.Context, logger logging.Logger) {
	if s.showFiles {
		s.mu.Lock()
		files := append([]fileSize(nil), s.files...)
		s.mu.Unlock()
		for _, f := range files {
			logger.Info(ctx, s.title+" "+f.name+" "+humanize.Bytes(uint64(f.size)))
		}
	}
	logger.Info(ctx, s.title+" all files "+humanize.Bytes(uint64(s.Total())), "files", s.Count())
}
