// Package cron schedules the two batch jobs. The same jobs can also be
// triggered externally through the API; the runner just covers deployments
// without an external scheduler.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/dispatch"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/goals"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner executes the dispatcher and goal checker on a cron schedule
type Runner struct {
	schedule cron.Schedule
	expr     string
	dispatch *dispatch.Job
	goals    *goals.Job
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewRunner parses the cron expression (standard 5-field or @daily style) and
// builds the runner
func NewRunner(expr string, dispatchJob *dispatch.Job, goalsJob *goals.Job, logger *zap.Logger) (*Runner, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid batch schedule %q: %w", expr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		schedule: schedule,
		expr:     expr,
		dispatch: dispatchJob,
		goals:    goalsJob,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start starts the runner loop
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}

	r.running = true
	r.wg.Add(1)
	go r.run()

	r.logger.Info("Batch runner started",
		zap.String("schedule", r.expr),
		zap.Time("next_run", r.schedule.Next(time.Now())),
	)
	return nil
}

// Stop stops the runner and waits for an in-flight run to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.logger.Info("Batch runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) run() {
	defer r.wg.Done()

	for {
		next := r.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.runJobs()
		}
	}
}

// runJobs executes both batch jobs sequentially. Invocations are assumed not
// to overlap: schedule granularity is far above run duration.
func (r *Runner) runJobs() {
	now := time.Now()

	if summary, err := r.dispatch.Run(r.ctx, now); err != nil {
		r.logger.Error("Scheduled reminder dispatch failed", zap.Error(err))
	} else {
		r.logger.Info("Scheduled reminder dispatch complete",
			zap.String("run_id", summary.RunID),
			zap.Int("processed", summary.Processed),
		)
	}

	if summary, err := r.goals.Run(r.ctx, now); err != nil {
		r.logger.Error("Scheduled goal check failed", zap.Error(err))
	} else {
		r.logger.Info("Scheduled goal check complete",
			zap.String("run_id", summary.RunID),
			zap.Int("processed", summary.Processed),
			zap.Int("missed", summary.Missed),
		)
	}
}
