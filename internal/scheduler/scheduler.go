package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/logger"
	"github.com/hushenglang/investment-dashboard/internal/macro"
)

// Runner fetches and stores every indicator family over a window.
type Runner interface {
	FetchAndStoreAll(ctx context.Context, start, end time.Time) (map[string]bool, error)
}

// Scheduler periodically refreshes all indicator families.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	interval   time.Duration
	windowDays int
	timeout    time.Duration
	now        func() time.Time
}

// New creates a new Scheduler.
func New(runner Runner, interval time.Duration, windowDays int) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		interval:   interval,
		windowDays: windowDays,
		timeout:    30 * time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	slog.Info("scheduler started", "interval", interval.String(), "window_days", s.windowDays)
	return nil
}

func (s *Scheduler) run() {
	ctx := logger.WithTraceID(context.Background(), uuid.NewString())
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start, end := common.DayRange(s.now(), s.windowDays)
	slog.InfoContext(ctx, "scheduler: running indicator fetch job",
		"start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))

	results, err := s.runner.FetchAndStoreAll(ctx, start, end)
	if errors.Is(err, macro.ErrFetchInProgress) {
		slog.InfoContext(ctx, "scheduler: another fetch is running, skipping")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "scheduler: fetch job finished with errors", "results", results, "error", err)
		return
	}
	slog.InfoContext(ctx, "scheduler: completed indicator fetch job", "results", results)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
