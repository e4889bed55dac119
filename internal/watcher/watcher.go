// Package watcher re-runs actions when files under a root change. Each rule
// matches paths with glob patterns and has its own debounced trigger.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"

	"github.com/conneroisu/assetsmith/internal/fileset"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// FileWatcher watches a directory tree and dispatches changes to rules.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	delay   time.Duration
	logger  logging.Logger
	ignore  map[string]bool
	rules   []*ruleState
	mutex   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type EventType
	Path string
	// Rel is Path relative to the watched root, with forward slashes.
	Rel     string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Action handles a debounced batch of changes.
type Action func(ctx context.Context, events []ChangeEvent) error

// Rule binds glob patterns, relative to the watched root, to an action.
type Rule struct {
	Name    string
	Include []string
	Exclude []string
	Action  Action
}

// Matches reports whether rel is selected by the rule.
func (r Rule) Matches(rel string) bool {
	for _, pattern := range r.Exclude {
		if fileset.Match(pattern, rel) {
			return false
		}
	}
	for _, pattern := range r.Include {
		if fileset.Match(pattern, rel) {
			return true
		}
	}
	return false
}

type ruleState struct {
	rule    Rule
	trigger func()
	stop    func()

	mu      sync.Mutex
	pending map[string]ChangeEvent
	running bool
	rerun   bool
}

// DefaultIgnore lists directory names that are never watched.
var DefaultIgnore = []string{".git", "node_modules"}

// NewFileWatcher creates a watcher for root. Rules added later are triggered
// delay after the last matching change.
func NewFileWatcher(root string, delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	cleanRoot, err := validatePath(root)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	ignore := make(map[string]bool, len(DefaultIgnore))
	for _, name := range DefaultIgnore {
		ignore[name] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		watcher: w,
		root:    cleanRoot,
		delay:   delay,
		logger:  logger.WithComponent("watcher"),
		ignore:  ignore,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// AddRule registers a rule.
func (fw *FileWatcher) AddRule(rule Rule) {
	rs := &ruleState{rule: rule, pending: make(map[string]ChangeEvent)}
	rs.trigger, rs.stop = debounce.New(fw.delay, func() { fw.fire(rs) })

	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.rules = append(fw.rules, rs)
}

// AddRecursive adds a directory and all subdirectories to watch
func (fw *FileWatcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && fw.ignore[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// validatePath cleans path and checks that it is an existing directory.
func validatePath(path string) (string, error) {
	cleanPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("invalid root path: %s is not a directory", path)
	}
	return cleanPath, nil
}

// Start watches the root until ctx is done or Stop is called. Actions run
// with ctx.
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.AddRecursive(fw.root); err != nil {
		return err
	}

	inner, cancel := context.WithCancel(ctx)
	fw.mutex.Lock()
	prev := fw.cancel
	fw.ctx, fw.cancel = inner, cancel
	fw.mutex.Unlock()
	prev()

	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		fw.watchLoop(inner)
	}()
	fw.logger.Info(ctx, "Watching", "root", fw.root, "rules", len(fw.rules))
	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	fw.mutex.RLock()
	cancel := fw.cancel
	rules := fw.rules
	fw.mutex.RUnlock()

	cancel()
	for _, rs := range rules {
		rs.stop()
	}
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	rel, err := filepath.Rel(fw.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if fw.ignored(rel) {
		return
	}

	var modTime time.Time
	var size int64
	if info, err := os.Stat(event.Name); err == nil {
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := fw.AddRecursive(event.Name); err != nil {
					fw.logger.Warn(ctx, err, "Cannot watch new directory", "path", rel)
				}
			}
			return
		}
		modTime = info.ModTime()
		size = info.Size()
	}

	changeEvent := ChangeEvent{
		Type:    eventType(event.Op),
		Path:    event.Name,
		Rel:     rel,
		ModTime: modTime,
		Size:    size,
	}
	fw.dispatch(changeEvent)
}

func (fw *FileWatcher) ignored(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if fw.ignore[segment] {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

// dispatch queues ev on every matching rule and pokes its debouncer.
func (fw *FileWatcher) dispatch(ev ChangeEvent) {
	fw.mutex.RLock()
	rules := fw.rules
	fw.mutex.RUnlock()

	for _, rs := range rules {
		if !rs.rule.Matches(ev.Rel) {
			continue
		}
		rs.mu.Lock()
		rs.pending[ev.Path] = ev
		rs.mu.Unlock()
		rs.trigger()
	}
}

// fire runs the rule's action. A trigger that arrives while the action is
// running does not start a second run; it queues exactly one more.
func (fw *FileWatcher) fire(rs *ruleState) {
	rs.mu.Lock()
	if rs.running {
		rs.rerun = true
		rs.mu.Unlock()
		return
	}
	rs.running = true
	rs.mu.Unlock()

	fw.mutex.RLock()
	ctx := fw.ctx
	fw.mutex.RUnlock()

	for {
		events := rs.drain()
		if len(events) > 0 && ctx.Err() == nil {
			fw.logger.Debug(ctx, "Change detected", "rule", rs.rule.Name, "files", len(events))
			if err := rs.rule.Action(ctx, events); err != nil {
				// Log error but continue watching
				fw.logger.Error(ctx, err, "Watch action failed", "rule", rs.rule.Name)
			}
		}

		rs.mu.Lock()
		if !rs.rerun {
			rs.running = false
			rs.mu.Unlock()
			return
		}
		rs.rerun = false
		rs.mu.Unlock()
	}
}

func (rs *ruleState) drain() []ChangeEvent {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	events := make([]ChangeEvent, 0, len(rs.pending))
	for _, ev := range rs.pending {
		events = append(events, ev)
	}
	rs.pending = make(map[string]ChangeEvent)
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
