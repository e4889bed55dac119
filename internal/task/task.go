// Package task implements the named-task model: a registry of tasks, each with
// prerequisites that run in parallel before it, and a runner that executes a
// task at most once per invocation.
package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// Func is the body of a task.
type Func func(ctx context.Context) error

// Task is a named, invokable build step.
type Task struct {
	Name        string
	Description string
	// Deps run in parallel, to completion, before Run.
	Deps []string
	// Run may be nil for pure aggregate tasks such as "copy".
	Run Func
}

// Registry holds task definitions by name.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Task) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperrors.NewTaskError(apperrors.CodeDuplicateTask, "", "task name must not be empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name]; exists {
		return apperrors.NewTaskError(apperrors.CodeDuplicateTask, t.Name, "task is already defined", nil)
	}
	t.Deps = append([]string(nil), t.Deps...)
	r.tasks[t.Name] = &t
	return nil
}

// MustRegister is Register for static wiring, where a duplicate is a bug.
func (r *Registry) MustRegister(tasks ...Task) {
	for _, t := range tasks {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the task named name.
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns all task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns every task sorted by name.
func (r *Registry) Describe() []Task {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, 0, len(names))
	for _, name := range names {
		out = append(out, *r.tasks[name])
	}
	return out
}

// Validate checks that every dependency exists and that there are no cycles.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.tasks))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		t, ok := r.tasks[name]
		if !ok {
			if len(path) > 0 {
				return apperrors.NewTaskError(apperrors.CodeUnknownTask, name,
					fmt.Sprintf("task is not defined (required by '%s')", path[len(path)-1]), nil)
			}
			return apperrors.ErrUnknownTask(name)
		}
		switch state[name] {
		case visiting:
			return apperrors.ErrTaskCycle(append(cycleFrom(path, name), name))
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range t.Deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func cycleFrom(path []string, name string) []string {
	for i, p := range path {
		if p == name {
			return append([]string(nil), path[i:]...)
		}
	}
	return append([]string(nil), path...)
}
