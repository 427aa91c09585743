// Package scheduler owns the single recurring sampling job.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/poolwatch/poolwatch/internal/config"
)

// Runner runs one sampling cycle. *occupancy.Service is the production
// implementation.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler runs Service.RunCycle at a fixed interval. Cycles never
// overlap: if one is still in flight when the interval elapses, the next
// run waits (gocron singleton mode). The first cycle fires immediately
// on start.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	service      Runner
	interval     time.Duration
	window       config.DayWindow
	cycleTimeout time.Duration
}

// New creates a Scheduler. cycleTimeout bounds one whole cycle so a
// wedged fetch can never stall the job forever.
func New(service Runner, interval time.Duration, window config.DayWindow, cycleTimeout time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		service:      service,
		interval:     interval,
		window:       window,
		cycleTimeout: cycleTimeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().StartImmediately().Do(s.runCycle)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	slog.Info("scheduler started",
		slog.Int("interval_minutes", minutes),
		slog.Int("window_start_min", s.window.Start),
		slog.Int("window_end_min", s.window.End),
	)
	return nil
}

func (s *Scheduler) runCycle() {
	now := time.Now()
	if !s.window.Contains(now) {
		slog.Debug("skipping cycle outside polling window",
			slog.String("time", now.Format("15:04")))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()

	// RunCycle logs and counts its own failures; nothing propagates
	// past this boundary, so a failed cycle just waits for the next one.
	_ = s.service.RunCycle(ctx)
}

// Stop stops the scheduler. An in-flight cycle is allowed to finish;
// store inserts are atomic, so shutdown can never half-write a sample.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
