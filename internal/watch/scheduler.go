package watch

import (
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Scheduler wraps gocron for periodic full rebuilds during a watch session.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// ScheduleRebuild triggers names on c according to a standard five-field cron
// expression and returns the job ID.
func (s *Scheduler) ScheduleRebuild(cron string, c *Controller, names []string) (string, error) {
	names = append([]string(nil), names...)
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() {
			s.logger.Info("Executing scheduled rebuild", logfields.Tasks(names))
			if !c.trigger("schedule", names) {
				s.logger.Warn("Scheduled rebuild skipped; watch controller stopped")
			}
		}),
		gocron.WithName("scheduled-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create scheduled rebuild job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
