package usecase

import (
	"context"
	"time"

	"StorylineScanner/internal/ports"
)

// Scheduler wires the cron driver with a pipeline invocation.
type Scheduler struct {
	driver ports.Scheduler
	invoke func(context.Context) error
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, invoke func(context.Context) error) *Scheduler {
	return &Scheduler{driver: driver, invoke: invoke}
}

// Start registers the pipeline with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.invoke == nil {
		return nil
	}

	job := func(time.Time) {
		_ = s.invoke(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
