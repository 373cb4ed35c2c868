// Package goals implements the goal-compliance batch job: for each active
// goal, aggregate the relevant metric over the goal's period window and
// insert a reminder when the goal is missed.
//
// Every run that finds a missed goal inserts a fresh reminder - one reminder
// per run, not per period. Repeated runs inside one period therefore nag.
package goals

import (
	"context"
	"fmt"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/metrics"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemResult records the outcome for one goal in a run
type ItemResult struct {
	GoalID     string   `json:"goal_id"`
	OwnerID    string   `json:"owner_id"`
	Metric     string   `json:"metric"`
	Target     float64  `json:"target"`
	Actual     *float64 `json:"actual,omitempty"`
	Missed     bool     `json:"missed"`
	ReminderID string   `json:"reminder_id,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// RunSummary is the JSON summary returned to the triggering caller
type RunSummary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Processed  int          `json:"processed"`
	Missed     int          `json:"missed"`
	Failed     int          `json:"failed"`
	Results    []ItemResult `json:"results"`
}

// Job is the goal-compliance checker
type Job struct {
	store  *store.Store
	logger *zap.Logger
	loc    *time.Location
}

// NewJob creates the checker. loc is the fixed reference timezone for period
// windows; it must be consistent across runs.
func NewJob(st *store.Store, loc *time.Location, logger *zap.Logger) *Job {
	if loc == nil {
		loc = time.UTC
	}
	return &Job{store: st, logger: logger, loc: loc}
}

// Run checks every active goal sequentially. Per-item failures are recorded
// and never abort the run.
func (j *Job) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}

	goals, err := j.store.ListActiveGoals()
	if err != nil {
		metrics.RecordBatchRun("goals", false)
		return nil, fmt.Errorf("failed to fetch active goals: %w", err)
	}

	j.logger.Info("Checking goal compliance",
		zap.String("run_id", summary.RunID),
		zap.Int("count", len(goals)),
	)

	for i := range goals {
		result := j.checkGoal(&goals[i], now)
		summary.Results = append(summary.Results, result)
		summary.Processed++
		if result.Missed {
			summary.Missed++
		}
		if result.Error != "" {
			summary.Failed++
		}
		metrics.RecordGoalChecked(result.Missed)
	}

	summary.FinishedAt = time.Now()
	metrics.RecordBatchRun("goals", true)

	j.logger.Info("Goal compliance check finished",
		zap.String("run_id", summary.RunID),
		zap.Int("processed", summary.Processed),
		zap.Int("missed", summary.Missed),
	)
	return summary, nil
}

func (j *Job) checkGoal(g *store.Goal, now time.Time) ItemResult {
	result := ItemResult{
		GoalID:  g.ID,
		OwnerID: g.OwnerID,
		Metric:  g.Metric,
		Target:  g.Target,
	}

	if !store.KnownMetric(g.Metric) {
		result.Error = fmt.Sprintf("unknown metric: %s", g.Metric)
		j.logger.Warn("Skipping goal with unknown metric",
			zap.String("goal_id", g.ID),
			zap.String("metric", g.Metric),
		)
		return result
	}

	var actual *float64
	var err error
	if g.Metric == "weight" {
		// Latest-wins, not aggregated; the target is an upper bound
		actual, err = j.store.LatestMetric(g.OwnerID, g.Metric)
	} else {
		// Summed over the period window; the target is a minimum to hit
		windowStart := PeriodStart(now, g.Period, j.loc)
		actual, err = j.store.SumMetricSince(g.OwnerID, g.Metric, windowStart)
	}
	if err != nil {
		result.Error = err.Error()
		j.logger.Warn("Metric aggregation failed",
			zap.String("goal_id", g.ID),
			zap.Error(err),
		)
		return result
	}
	result.Actual = actual

	// A null metric counts as missed by policy, not as an error
	if actual == nil {
		result.Missed = true
	} else if g.Metric == "weight" {
		result.Missed = *actual > g.Target
	} else {
		result.Missed = *actual < g.Target
	}

	if !result.Missed {
		return result
	}

	reminder := &store.Reminder{
		OwnerID:     g.OwnerID,
		Title:       fmt.Sprintf("Goal missed: %s", g.Metric),
		Description: shortfallText(g, actual),
		DueAt:       now,
		Repeat:      store.RepeatNone,
	}
	if err := j.store.CreateReminder(reminder); err != nil {
		result.Error = err.Error()
		j.logger.Warn("Failed to create missed-goal reminder",
			zap.String("goal_id", g.ID),
			zap.Error(err),
		)
		return result
	}
	result.ReminderID = reminder.ID

	return result
}

func shortfallText(g *store.Goal, actual *float64) string {
	if actual == nil {
		return fmt.Sprintf("No %s logged this %s. Your target is %.1f.", g.Metric, g.Period, g.Target)
	}
	if g.Metric == "weight" {
		return fmt.Sprintf("Latest weight %.1f is above your target of %.1f.", *actual, g.Target)
	}
	return fmt.Sprintf("You logged %.1f %s this %s, short of your target of %.1f.", *actual, g.Metric, g.Period, g.Target)
}

// PeriodStart returns the window start for a goal period in the reference
// timezone: daily -> today 00:00, weekly -> most recent Monday 00:00,
// monthly -> first of the current month 00:00.
func PeriodStart(now time.Time, period string, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch period {
	case store.PeriodWeekly:
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -daysSinceMonday)
	case store.PeriodMonthly:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return midnight
	}
}
