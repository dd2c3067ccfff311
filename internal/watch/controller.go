package watch

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/livereload"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/task"
)

// State is the lifecycle state of a Controller.
type State int32

const (
	StateIdle State = iota
	StateWatching
	StateTriggered
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateTriggered:
		return "triggered"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultQuietWindow is the debounce applied to change bursts.
const DefaultQuietWindow = 100 * time.Millisecond

// Runner executes a task subset.
type Runner interface {
	RunSequence(ctx context.Context, names []string, trig task.Trigger) (*pipeline.Result, error)
}

// Notifier turns run outcomes and output changes into reload events.
type Notifier interface {
	Notify(ctx context.Context, result *pipeline.Result, runErr error) (livereload.ReloadEvent, bool)
	NotifyChanged(ctx context.Context, paths []string) (livereload.ReloadEvent, bool)
}

// Options tune a Controller.
type Options struct {
	// QuietWindow collects a burst of changes into one run. Zero dispatches immediately.
	QuietWindow time.Duration
	// SettleWindow drops reload-only changes that trail a run, since the run
	// already produced its reload event.
	SettleWindow time.Duration
	Recorder     metrics.Recorder
	Logger       *slog.Logger
}

// Controller owns a watch session: it batches matching changes, keeps at most
// one pipeline run in flight, and merges anything arriving meanwhile into a
// single follow-up run.
type Controller struct {
	source   Source
	subs     []Subscription
	runner   Runner
	notifier Notifier
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder

	state    atomic.Int32
	requests chan request

	// lifecycle serializes Start and Stop so cancel is set before Stop reads it.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type request struct {
	reason string
	tasks  []string
}

type runDone struct {
	finished time.Time
}

// batch accumulates work between dispatches. Only the event loop touches it.
type batch struct {
	tasks   []string
	paths   []string
	reasons []string
	reload  []string
}

func (b *batch) addTasks(names ...string) {
	for _, n := range names {
		if !slices.Contains(b.tasks, n) {
			b.tasks = append(b.tasks, n)
		}
	}
}

func (b *batch) addReason(r string) {
	if !slices.Contains(b.reasons, r) {
		b.reasons = append(b.reasons, r)
	}
}

func (b *batch) empty() bool { return len(b.tasks) == 0 && len(b.reload) == 0 }

// NewController validates subs and creates an idle controller.
func NewController(source Source, subs []Subscription, runner Runner, notifier Notifier, opts Options) (*Controller, error) {
	if source == nil || runner == nil || notifier == nil {
		return nil, ferrors.ValidationError("watch controller requires a source, runner and notifier").Build()
	}
	normalized := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		normalized = append(normalized, s.normalized())
	}
	if opts.QuietWindow < 0 {
		opts.QuietWindow = 0
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		source:   source,
		subs:     normalized,
		runner:   runner,
		notifier: notifier,
		opts:     opts,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		requests: make(chan request, 16),
		loopDone: make(chan struct{}),
		now:      time.Now,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Start begins consuming the source. It may be called once.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateWatching)) {
		return ferrors.RuntimeError("watch controller already started").
			WithContext("state", c.State().String()).Build()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.loop(loopCtx)
	c.logger.Info("Watching for changes", slog.Int("subscriptions", len(c.subs)))
	return nil
}

// Stop ends the session, closes the source and waits for an in-flight run.
func (c *Controller) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.lifecycle.Lock()
		prev := State(c.state.Swap(int32(StateStopped)))
		cancel := c.cancel
		c.lifecycle.Unlock()
		if prev == StateIdle {
			close(c.loopDone)
			err = c.source.Close()
			return
		}
		cancel()
		<-c.loopDone
		err = c.source.Close()
		c.logger.Info("Watch stopped")
	})
	return err
}

// Trigger requests a run of names as if matching changes had arrived. It
// reports false once the controller is stopped.
func (c *Controller) Trigger(names ...string) bool {
	return c.trigger("trigger", names)
}

func (c *Controller) trigger(reason string, names []string) bool {
	if c.State() == StateStopped || len(names) == 0 {
		return false
	}
	select {
	case c.requests <- request{reason: reason, tasks: append([]string(nil), names...)}:
		return true
	case <-c.loopDone:
		return false
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.loopDone)

	var (
		pending     batch
		running     bool
		settleUntil time.Time
		done        = make(chan runDone, 1)
		runWG       sync.WaitGroup
	)

	quiet := time.NewTimer(time.Hour)
	quiet.Stop()
	var quietC <-chan time.Time
	armed := false

	resetQuiet := func() {
		if !quiet.Stop() {
			select {
			case <-quiet.C:
			default:
			}
		}
		quiet.Reset(c.opts.QuietWindow)
		quietC = quiet.C
		armed = true
	}

	dispatch := func() {
		if running || pending.empty() {
			return
		}
		if len(pending.tasks) > 0 {
			work := pending
			pending = batch{}
			running = true
			c.setState(StateTriggered)
			runWG.Add(1)
			go func() {
				defer runWG.Done()
				c.execute(ctx, work)
				done <- runDone{finished: c.now()}
			}()
			return
		}
		paths := pending.reload
		pending = batch{}
		c.notifier.NotifyChanged(ctx, paths)
		c.setState(StateWatching)
	}

	schedule := func() {
		c.setState(StateTriggered)
		if c.opts.QuietWindow == 0 {
			dispatch()
			return
		}
		resetQuiet()
	}

	events := c.source.Events()
	errs := c.source.Errors()

	for {
		select {
		case <-ctx.Done():
			quiet.Stop()
			runWG.Wait()
			return

		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if c.collect(&pending, evt, running || c.now().Before(settleUntil)) {
				schedule()
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("Watch source error", logfields.Error(err))

		case req := <-c.requests:
			pending.addTasks(req.tasks...)
			pending.addReason(req.reason)
			schedule()

		case <-quietC:
			quietC = nil
			armed = false
			dispatch()

		case d := <-done:
			running = false
			settleUntil = d.finished.Add(c.opts.SettleWindow)
			// Output changes seen during the run belong to it.
			pending.reload = nil
			if !armed {
				dispatch()
			}
			if !running && pending.empty() && !armed {
				c.setState(StateWatching)
			}
		}
	}
}

// collect adds evt to b and reports whether it produced work.
func (c *Controller) collect(b *batch, evt Event, suppressReload bool) bool {
	added := false
	for _, s := range c.subs {
		if !s.Match(evt.Path) {
			continue
		}
		if s.ReloadOnly {
			if suppressReload {
				c.logger.Debug("Dropping output change attributed to run", logfields.Path(evt.Path))
				continue
			}
			if !slices.Contains(b.reload, evt.Path) {
				b.reload = append(b.reload, evt.Path)
			}
		} else {
			b.addTasks(s.Tasks...)
			if !slices.Contains(b.paths, evt.Path) {
				b.paths = append(b.paths, evt.Path)
			}
		}
		b.addReason(s.Name)
		c.recorder.IncWatchTrigger(s.Name)
		added = true
	}
	return added
}

func (c *Controller) execute(ctx context.Context, work batch) {
	trig := task.Trigger{Reason: joinReasons(work.reasons), Paths: work.paths}
	c.logger.Info("Change detected; rebuilding", logfields.Tasks(work.tasks), logfields.Reason(trig.Reason))
	result, err := c.runner.RunSequence(ctx, work.tasks, trig)
	if err != nil {
		c.logger.Warn("Rebuild failed; watching continues", logfields.Tasks(work.tasks), logfields.Error(err))
	}
	c.notifier.Notify(ctx, result, err)
}

func (c *Controller) setState(s State) {
	// Stopped is terminal.
	for {
		cur := c.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			if State(cur) != s {
				c.logger.Debug("Watch state changed", logfields.State(s.String()))
			}
			return
		}
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "watch"
	}
	return strings.Join(reasons, ",")
}
