package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

// recorder collects the order in which task bodies ran.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) task(name string, deps ...string) Task {
	return Task{
		Name: name,
		Deps: deps,
		Run: func(ctx context.Context) error {
			r.mu.Lock()
			r.order = append(r.order, name)
			r.mu.Unlock()
			return nil
		},
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Task{Name: "clean"}))

	err := reg.Register(Task{Name: "clean"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateTask))

	assert.Error(t, reg.Register(Task{Name: "  "}))
	assert.Equal(t, []string{"clean"}, reg.Names())
}

func TestDescribe(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Task{Name: "styles", Description: "Compile styles"},
		Task{Name: "build", Description: "Build everything", Deps: []string{"clean"}},
		Task{Name: "clean"},
	)

	tasks := reg.Describe()
	require.Len(t, tasks, 3)
	assert.Equal(t, "build", tasks[0].Name)
	assert.Equal(t, []string{"clean"}, tasks[0].Deps)
	assert.Equal(t, "Compile styles", tasks[2].Description)
}

func TestDepsRunBeforeTask(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister(
		rec.task("sprite"),
		rec.task("scripts"),
		rec.task("styles"),
		rec.task("serve", "sprite", "scripts", "styles"),
	)

	require.NoError(t, NewRunner(reg, nil).Run(context.Background(), "serve"))

	order := rec.got()
	require.Len(t, order, 4)
	assert.Equal(t, "serve", order[3])
	assert.ElementsMatch(t, []string{"sprite", "scripts", "styles"}, order[:3])
}

func TestTaskRunsOncePerRunner(t *testing.T) {
	var count atomic.Int32
	reg := NewRegistry()
	reg.MustRegister(
		Task{Name: "clean", Run: func(context.Context) error { count.Add(1); return nil }},
		Task{Name: "a", Deps: []string{"clean"}, Run: func(context.Context) error { return nil }},
		Task{Name: "b", Deps: []string{"clean"}, Run: func(context.Context) error { return nil }},
	)

	runner := NewRunner(reg, nil)
	require.NoError(t, runner.Run(context.Background(), "a", "b", "clean"))
	assert.Equal(t, int32(1), count.Load())

	require.NoError(t, runner.Run(context.Background(), "clean"))
	assert.Equal(t, int32(1), count.Load())

	runner.Reset("clean")
	require.NoError(t, runner.Run(context.Background(), "clean"))
	assert.Equal(t, int32(2), count.Load())
}

func TestSequenceOrdering(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister(
		rec.task("clean"),
		rec.task("styles"),
		rec.task("html"),
		rec.task("scripts"),
		rec.task("images"),
		rec.task("sprite"),
		rec.task("copy"),
		Task{
			Name: "build",
			Deps: []string{"clean"},
			Run: Sequence(
				Seq("styles"),
				Seq("html", "scripts", "images"),
				Seq("sprite"),
				Seq("copy"),
			),
		},
	)

	require.NoError(t, NewRunner(reg, nil).Run(context.Background(), "build"))

	order := rec.got()
	require.Len(t, order, 7)
	assert.Equal(t, "clean", order[0])
	assert.Equal(t, "styles", order[1])
	assert.ElementsMatch(t, []string{"html", "scripts", "images"}, order[2:5])
	assert.Equal(t, "sprite", order[5])
	assert.Equal(t, "copy", order[6])
}

func TestAggregateTaskWithoutBody(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister(
		rec.task("copy:root"),
		rec.task("copy:js"),
		Task{Name: "copy", Deps: []string{"copy:root", "copy:js"}},
	)

	require.NoError(t, NewRunner(reg, nil).Run(context.Background(), "copy"))
	assert.ElementsMatch(t, []string{"copy:root", "copy:js"}, rec.got())
}

func TestFailureStopsDependents(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	reg := NewRegistry()
	reg.MustRegister(
		Task{Name: "clean", Run: func(context.Context) error { return boom }},
		Task{Name: "build", Deps: []string{"clean"}, Run: func(context.Context) error { ran = true; return nil }},
	)

	err := NewRunner(reg, nil).Run(context.Background(), "build")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTaskFailed))
	assert.Contains(t, err.Error(), "'clean'")
	assert.False(t, ran)
}

func TestFailureCancelsParallelSiblings(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Task{Name: "fail", Run: func(context.Context) error { return errors.New("fail") }},
		Task{Name: "slow", Run: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		}},
	)

	start := time.Now()
	err := NewRunner(reg, nil).Run(context.Background(), "fail", "slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTaskErrorGetsTaskName(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Task{Name: "images", Run: func(context.Context) error {
		return apperrors.NewIOError(apperrors.CodeReadFailed, "cannot read", nil)
	}})

	err := NewRunner(reg, nil).Run(context.Background(), "images")
	var te *apperrors.TaskError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "images", te.Task)
	assert.Equal(t, apperrors.CodeReadFailed, te.Code)
}

func TestUnknownTask(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Task{Name: "a", Deps: []string{"missing"}})

	err := NewRunner(reg, nil).Run(context.Background(), "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnknownTask))

	err = NewRunner(reg, nil).Run(context.Background(), "a")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnknownTask))
	assert.Contains(t, err.Error(), "required by 'a'")
}

func TestDependencyCycle(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Task{Name: "a", Deps: []string{"b"}},
		Task{Name: "b", Deps: []string{"a"}},
	)

	err := NewRunner(reg, nil).Run(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTaskCycle))
}

func TestSequenceCycleDoesNotDeadlock(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Task{Name: "loop", Run: Sequence(Seq("loop"))})

	done := make(chan error, 1)
	go func() { done <- NewRunner(reg, nil).Run(context.Background(), "loop") }()

	select {
	case err := <-done:
		assert.True(t, apperrors.HasCode(err, apperrors.CodeTaskCycle))
	case <-time.After(2 * time.Second):
		t.Fatal("sequence cycle deadlocked")
	}
}

func TestSequenceOutsideRunner(t *testing.T) {
	err := Sequence(Seq("x"))(context.Background())
	assert.Error(t, err)
}

func TestOrderIsStableAcrossRuns(t *testing.T) {
	for i := 0; i < 5; i++ {
		rec := &recorder{}
		reg := NewRegistry()
		reg.MustRegister(
			rec.task("one"),
			rec.task("two"),
			Task{Name: "all", Run: Sequence(Seq("one"), Seq("two"))},
		)
		require.NoError(t, NewRunner(reg, nil).Run(context.Background(), "all"))
		order := rec.got()
		assert.Less(t, indexOf(order, "one"), indexOf(order, "two"))
	}
}
