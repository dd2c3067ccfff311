// Package pipeline runs resolved task sequences strictly one task at a time,
// aborting on the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

var errCanceled = errors.New("pipeline canceled before task start")

// Status is the state of a pipeline run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Result describes a completed run. Tasks are listed in execution order.
type Result struct {
	RunID    string
	Status   Status
	Tasks    []task.Outcome
	Duration time.Duration
}

// Executed returns the names of the tasks that ran.
func (r *Result) Executed() []string {
	names := make([]string, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		names = append(names, t.Task)
	}
	return names
}

// run is the mutable state of one invocation, owned by RunSequence.
type run struct {
	id        string
	status    Status
	cause     error
	completed []task.Outcome
}

func (r *run) completedNames() []string {
	names := make([]string, 0, len(r.completed))
	for _, o := range r.completed {
		names = append(names, o.Task)
	}
	return names
}

// Pipeline executes named task sequences against a registry.
type Pipeline struct {
	registry *task.Registry
	runner   *task.Runner
	observer multiObserver
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records task and run metrics.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Pipeline) {
		if rec != nil {
			p.observer = append(p.observer, recorderObserver{rec: rec})
		}
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = append(p.observer, o)
		}
	}
}

// WithLogger sets the logger used for run logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// New creates a Pipeline. A nil runner uses task.NewRunner with the pipeline logger.
func New(registry *task.Registry, runner *task.Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		runner:   runner,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = task.NewRunner(p.logger)
	}
	return p
}

// RunSequence resolves names into dependency order and executes each task in turn.
// Registry errors are returned unchanged; a task failure or a cancellation
// observed between tasks returns *PipelineError and no later task runs.
func (p *Pipeline) RunSequence(ctx context.Context, names []string, trig task.Trigger) (*Result, error) {
	order, err := p.registry.ResolveOrder(names)
	if err != nil {
		return nil, err
	}

	r := &run{id: trig.RunID, status: StatusInProgress}
	if r.id == "" {
		r.id = p.newID()
	}
	trig.RunID = r.id

	start := time.Now()
	log := p.logger.With(logfields.RunID(r.id))
	log.Info("Pipeline run started", logfields.Tasks(order), logfields.Reason(trig.Reason))

	for _, name := range order {
		t, _ := p.registry.Get(name)

		if ctxErr := ctx.Err(); ctxErr != nil {
			r.status = StatusFailed
			r.cause = fmt.Errorf("%w: %w", errCanceled, ctxErr)
			p.observer.OnTaskComplete(r.id, name, 0, r.cause)
			return p.fail(log, r, name, start)
		}

		p.observer.OnTaskStart(r.id, name)
		out, runErr := p.runner.Run(ctx, t, trig)
		p.observer.OnTaskComplete(r.id, name, out.Duration, runErr)
		if runErr != nil {
			r.status = StatusFailed
			r.cause = runErr
			return p.fail(log, r, name, start)
		}

		r.completed = append(r.completed, out)
		log.Info("Task completed", logfields.Task(name), logfields.Duration(out.Duration), logfields.Artifacts(len(out.Artifacts)))
	}

	r.status = StatusSucceeded
	res := &Result{RunID: r.id, Status: r.status, Tasks: r.completed, Duration: time.Since(start)}
	log.Info("Pipeline run succeeded", logfields.Tasks(res.Executed()), logfields.Duration(res.Duration))
	p.observer.OnRunComplete(res, nil)
	return res, nil
}

func (p *Pipeline) fail(log *slog.Logger, r *run, failed string, start time.Time) (*Result, error) {
	pe := &PipelineError{
		RunID:          r.id,
		FailedTask:     failed,
		Cause:          r.cause,
		CompletedTasks: r.completedNames(),
	}
	res := &Result{RunID: r.id, Status: r.status, Tasks: r.completed, Duration: time.Since(start)}
	log.Error("Pipeline run failed", logfields.Task(failed), logfields.Error(r.cause), logfields.Tasks(pe.CompletedTasks))
	p.observer.OnRunComplete(res, pe)
	return nil, pe
}
