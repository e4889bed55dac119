package task

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/logging"
)

// Runner executes tasks from a registry. A task reached more than once during
// the lifetime of a Runner runs once; every caller observes the same result.
type Runner struct {
	registry *Registry
	logger   logging.Logger

	mu      sync.Mutex
	results map[string]*result
}

type result struct {
	done chan struct{}
	err  error
}

// NewRunner creates a runner over registry.
func NewRunner(registry *Registry, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		registry: registry,
		logger:   logger,
		results:  make(map[string]*result),
	}
}

type runnerKey struct{}

// FromContext returns the runner executing the current task, if any. Task
// bodies use it to run sequences of other tasks under the same memoisation.
func FromContext(ctx context.Context) (*Runner, bool) {
	r, ok := ctx.Value(runnerKey{}).(*Runner)
	return r, ok
}

// Run executes names in parallel and waits for all of them. Unknown names and
// dependency cycles are reported before anything runs.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, ok := r.registry.Get(name); !ok {
			return apperrors.ErrUnknownTask(name)
		}
	}
	if err := r.registry.Validate(); err != nil {
		return err
	}

	ctx = context.WithValue(ctx, runnerKey{}, r)
	return r.parallel(ctx, names)
}

// Reset forgets previous results so tasks can run again, as watch mode needs.
func (r *Runner) Reset(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(names) == 0 {
		r.results = make(map[string]*result)
		return
	}
	for _, name := range names {
		delete(r.results, name)
	}
}

func (r *Runner) parallel(ctx context.Context, names []string) error {
	if len(names) == 1 {
		return r.run(ctx, names[0])
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			return r.run(gctx, name)
		})
	}
	return g.Wait()
}

type pathKey struct{}

func (r *Runner) run(ctx context.Context, name string) error {
	// A sequence may name a task that is an ancestor of the running one;
	// waiting on it would block forever.
	path, _ := ctx.Value(pathKey{}).([]string)
	for i, p := range path {
		if p == name {
			return apperrors.ErrTaskCycle(append(append([]string(nil), path[i:]...), name))
		}
	}
	ctx = context.WithValue(ctx, pathKey{}, append(append([]string(nil), path...), name))

	r.mu.Lock()
	if res, ok := r.results[name]; ok {
		r.mu.Unlock()
		select {
		case <-res.done:
			return res.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	res := &result{done: make(chan struct{})}
	r.results[name] = res
	r.mu.Unlock()

	res.err = r.execute(ctx, name)
	close(res.done)
	return res.err
}

func (r *Runner) execute(ctx context.Context, name string) error {
	t, ok := r.registry.Get(name)
	if !ok {
		return apperrors.ErrUnknownTask(name)
	}

	if len(t.Deps) > 0 {
		if err := r.parallel(ctx, t.Deps); err != nil {
			return err
		}
	}
	if t.Run == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	perf := logging.StartOperation(r.logger, name)
	r.logger.Info(ctx, fmt.Sprintf("Starting '%s'...", name))

	taskCtx := logging.WithLogger(ctx, r.logger.WithComponent(name))
	if err := t.Run(taskCtx); err != nil {
		perf.EndWithError(ctx, err)
		var te *apperrors.TaskError
		if apperrors.As(err, &te) {
			if te.Task == "" {
				te.Task = name
			}
			return err
		}
		return apperrors.NewTaskError(apperrors.CodeTaskFailed, name, "task failed", err)
	}
	perf.End(ctx)
	return nil
}

// Sequence returns a task body that runs steps strictly one after the other.
// Each step is a group of task names run in parallel; use Seq to build them.
func Sequence(steps ...[]string) Func {
	return func(ctx context.Context) error {
		r, ok := FromContext(ctx)
		if !ok {
			return apperrors.NewTaskError(apperrors.CodeTaskFailed, "", "sequence used outside a runner", nil)
		}
		for _, step := range steps {
			for _, name := range step {
				if _, ok := r.registry.Get(name); !ok {
					return apperrors.ErrUnknownTask(name)
				}
			}
		}
		for _, step := range steps {
			if err := r.parallel(ctx, step); err != nil {
				return err
			}
		}
		return nil
	}
}

// Seq is shorthand for one sequence step.
func Seq(names ...string) []string {
	return names
}
