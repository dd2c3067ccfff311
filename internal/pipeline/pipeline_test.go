package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// journal records task executions in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func recording(j *journal, name string, err error) task.Action {
	return func(context.Context, task.Trigger) (task.Artifacts, error) {
		j.add(name)
		if err != nil {
			return nil, err
		}
		return task.Artifacts{"out/" + name}, nil
	}
}

func newPipeline(t *testing.T, tasks ...task.Task) *Pipeline {
	t.Helper()
	reg := task.NewRegistry()
	for _, tk := range tasks {
		require.NoError(t, reg.Register(tk))
	}
	return New(reg, nil, WithIDGenerator(func() string { return "run-test" }))
}

func TestRunSequence_DependencyRunsFirst(t *testing.T) {
	j := &journal{}
	p := newPipeline(t,
		task.Task{Name: "A", Action: recording(j, "A", nil)},
		task.Task{Name: "B", Deps: []string{"A"}, Action: recording(j, "B", nil)},
		task.Task{Name: "C", Action: recording(j, "C", nil)},
	)

	res, err := p.RunSequence(context.Background(), []string{"B", "C"}, task.Trigger{Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, j.list())
	assert.Equal(t, []string{"A", "B", "C"}, res.Executed())
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, task.Artifacts{"out/B"}, res.Tasks[1].Artifacts)
}

func TestRunSequence_FailureShortCircuits(t *testing.T) {
	j := &journal{}
	cause := errors.New("disk full")
	p := newPipeline(t,
		task.Task{Name: "A", Action: recording(j, "A", cause)},
		task.Task{Name: "B", Deps: []string{"A"}, Action: recording(j, "B", nil)},
		task.Task{Name: "C", Action: recording(j, "C", nil)},
	)

	res, err := p.RunSequence(context.Background(), []string{"A", "B", "C"}, task.Trigger{})
	require.Nil(t, res)

	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "A", pe.FailedTask)
	assert.Empty(t, pe.CompletedTasks)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"A"}, j.list(), "B and C must never execute")
}

func TestRunSequence_FailureReportsCompleted(t *testing.T) {
	j := &journal{}
	p := newPipeline(t,
		task.Task{Name: "clean", Action: recording(j, "clean", nil)},
		task.Task{Name: "render", Action: recording(j, "render", errors.New("malformed template"))},
		task.Task{Name: "styles", Action: recording(j, "styles", nil)},
	)

	_, err := p.RunSequence(context.Background(), []string{"clean", "render", "styles"}, task.Trigger{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "render", pe.FailedTask)
	assert.Equal(t, []string{"clean"}, pe.CompletedTasks)
	assert.NotContains(t, j.list(), "styles")

	var execErr *task.TaskExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "render", execErr.TaskName)
}

func TestRunSequence_StrictlySequential(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	slow := func(context.Context, task.Trigger) (task.Artifacts, error) {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	}
	p := newPipeline(t,
		task.Task{Name: "a", Action: slow},
		task.Task{Name: "b", Action: slow},
		task.Task{Name: "c", Action: slow},
	)

	_, err := p.RunSequence(context.Background(), []string{"a", "b", "c"}, task.Trigger{})
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestRunSequence_ResolutionErrorsPassThrough(t *testing.T) {
	p := newPipeline(t, task.Task{Name: "a", Action: recording(&journal{}, "a", nil)})

	_, err := p.RunSequence(context.Background(), []string{"missing"}, task.Trigger{})
	var unknown *task.UnknownTaskError
	require.ErrorAs(t, err, &unknown)

	var pe *PipelineError
	assert.False(t, errors.As(err, &pe))
}

func TestRunSequence_CancelBetweenTasks(t *testing.T) {
	j := &journal{}
	ctx, cancel := context.WithCancel(context.Background())
	p := newPipeline(t,
		task.Task{Name: "first", Action: func(context.Context, task.Trigger) (task.Artifacts, error) {
			j.add("first")
			cancel()
			return nil, nil
		}},
		task.Task{Name: "second", Action: recording(j, "second", nil)},
	)

	_, err := p.RunSequence(ctx, []string{"first", "second"}, task.Trigger{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "second", pe.FailedTask)
	assert.Equal(t, []string{"first"}, pe.CompletedTasks)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, j.list())
}

func TestRunSequence_KeepsCallerRunID(t *testing.T) {
	p := newPipeline(t, task.Task{Name: "a", Action: func(_ context.Context, trig task.Trigger) (task.Artifacts, error) {
		assert.Equal(t, "watch-42", trig.RunID)
		return nil, nil
	}})

	res, err := p.RunSequence(context.Background(), []string{"a"}, task.Trigger{RunID: "watch-42"})
	require.NoError(t, err)
	assert.Equal(t, "watch-42", res.RunID)
}

type captureObserver struct {
	started   []string
	completed []string
	runs      int
	runErr    error
}

func (c *captureObserver) OnTaskStart(_, name string) { c.started = append(c.started, name) }
func (c *captureObserver) OnTaskComplete(_, name string, _ time.Duration, _ error) {
	c.completed = append(c.completed, name)
}
func (c *captureObserver) OnRunComplete(_ *Result, err error) { c.runs++; c.runErr = err }

func TestRunSequence_Observer(t *testing.T) {
	obs := &captureObserver{}
	reg := task.NewRegistry()
	require.NoError(t, reg.Register(task.Task{Name: "a", Action: recording(&journal{}, "a", nil)}))
	require.NoError(t, reg.Register(task.Task{Name: "b", Action: recording(&journal{}, "b", errors.New("x"))}))
	p := New(reg, nil, WithObserver(obs))

	_, err := p.RunSequence(context.Background(), []string{"a", "b"}, task.Trigger{})
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, obs.started)
	assert.Equal(t, []string{"a", "b"}, obs.completed)
	assert.Equal(t, 1, obs.runs)
	assert.Error(t, obs.runErr)
}

func TestClassify(t *testing.T) {
	pe := &PipelineError{
		FailedTask: "render-pages",
		Cause:      &task.TaskExecutionError{TaskName: "render-pages", Cause: errors.New("unexpected EOF")},
	}
	classified, ok := ferrors.AsClassified(Classify(pe))
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryPipeline, classified.Category())
	assert.Equal(t, "render-pages", classified.Task())
	assert.EqualError(t, classified.Cause(), "unexpected EOF")

	cyc, ok := ferrors.AsClassified(Classify(&task.CyclicDependencyError{Cycle: []string{"a", "a"}}))
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryConfig, cyc.Category())

	assert.NoError(t, Classify(nil))
}

func TestClassify_ClassifiedTaskCauseNamesTask(t *testing.T) {
	parseErr := errors.New("template: index.html:1: missing value for if")
	inner := ferrors.TemplateError("template parse failed").
		WithCause(parseErr).
		WithContext("template", "index.html").
		Build()
	pe := &PipelineError{
		FailedTask: "render-pages",
		Cause:      &task.TaskExecutionError{TaskName: "render-pages", Cause: inner},
	}

	err := Classify(pe)
	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryPipeline, classified.Category())
	assert.Equal(t, "render-pages", classified.Task())
	assert.ErrorIs(t, err, parseErr)

	tmpl, _ := classified.Context().String("template")
	assert.Equal(t, "index.html", tmpl)

	msg := ferrors.NewCLIErrorAdapter(false, nil).FormatError(err)
	assert.Contains(t, msg, "task=render-pages")
	assert.Contains(t, msg, "template parse failed")
}
