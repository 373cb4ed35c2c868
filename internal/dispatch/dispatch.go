// Package dispatch implements the due-reminder batch job: find due unsent
// reminders, mail the linked caregivers, record a notification, then advance
// or terminate each reminder. At-least-once delivery; a send failure never
// blocks the reminder's state transition.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/mail"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/metrics"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mailer is the outbound channel the dispatcher needs
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg mail.Message) error
}

// ItemResult records the outcome for one reminder in a run
type ItemResult struct {
	ReminderID string `json:"reminder_id"`
	OwnerID    string `json:"owner_id"`
	Recipients int    `json:"recipients"`
	Mailed     bool   `json:"mailed"`
	Action     string `json:"action"` // rescheduled, completed
	Error      string `json:"error,omitempty"`
}

// RunSummary is the JSON summary returned to the triggering caller
type RunSummary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Processed  int          `json:"processed"`
	Mailed     int          `json:"mailed"`
	Failed     int          `json:"failed"`
	Results    []ItemResult `json:"results"`
}

// Job is the due-reminder dispatcher. Stateless between invocations: every
// run re-reads the full candidate set.
type Job struct {
	store  *store.Store
	mailer Mailer
	logger *zap.Logger
}

func NewJob(st *store.Store, mailer Mailer, logger *zap.Logger) *Job {
	return &Job{store: st, mailer: mailer, logger: logger}
}

// Run processes every due reminder sequentially. Per-item failures are
// recorded in the summary and never abort the run; only the top-level fetch
// can fail the invocation.
func (j *Job) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}

	reminders, err := j.store.GetDueReminders(now)
	if err != nil {
		metrics.RecordBatchRun("dispatch", false)
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}

	j.logger.Info("Dispatching due reminders",
		zap.String("run_id", summary.RunID),
		zap.Int("count", len(reminders)),
	)

	for i := range reminders {
		result := j.processReminder(ctx, &reminders[i], now)
		summary.Results = append(summary.Results, result)
		summary.Processed++
		if result.Mailed {
			summary.Mailed++
		}
		if result.Error != "" {
			summary.Failed++
		}
		metrics.RecordReminderProcessed(result.Error == "")
	}

	summary.FinishedAt = time.Now()
	metrics.RecordBatchRun("dispatch", true)

	j.logger.Info("Reminder dispatch finished",
		zap.String("run_id", summary.RunID),
		zap.Int("processed", summary.Processed),
		zap.Int("mailed", summary.Mailed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (j *Job) processReminder(ctx context.Context, r *store.Reminder, now time.Time) ItemResult {
	result := ItemResult{ReminderID: r.ID, OwnerID: r.OwnerID}

	// Step 2: resolve recipients. Caregivers linked to the owner, plus the
	// reminder's own recipient address when set. Resolution failure is a
	// per-item error; the reminder still transitions below.
	recipients, err := j.resolveRecipients(r)
	if err != nil {
		result.Error = err.Error()
		j.logger.Warn("Recipient resolution failed",
			zap.String("reminder_id", r.ID),
			zap.Error(err),
		)
	}
	result.Recipients = len(recipients)

	// Step 3: send through the relay. No recipients means log-only; no retry
	// within the run either way.
	var mailErr error
	if len(recipients) > 0 && j.mailer.Enabled() {
		msg := mail.Message{
			To:      recipients,
			Subject: "Reminder: " + r.Title,
			Text:    reminderText(r),
			HTML:    reminderHTML(r),
		}
		if mailErr = j.mailer.Send(ctx, msg); mailErr != nil {
			result.Error = mailErr.Error()
			j.logger.Warn("Reminder mail failed",
				zap.String("reminder_id", r.ID),
				zap.Error(mailErr),
			)
		} else {
			result.Mailed = true
		}
		metrics.RecordMailSend(mailErr == nil)
	}

	// Step 4: record the notification. Promoted to sent only when both the
	// row write and the mail call succeeded; a skipped send stays pending.
	ntf := &store.Notification{
		OwnerID:     r.OwnerID,
		CaregiverID: r.CaregiverID,
		Channel:     "email",
		Title:       r.Title,
		Body:        reminderText(r),
		Status:      store.StatusPending,
	}
	if err := j.store.CreateNotification(ntf); err != nil {
		result.Error = err.Error()
		j.logger.Warn("Failed to write notification row",
			zap.String("reminder_id", r.ID),
			zap.Error(err),
		)
	} else if len(recipients) > 0 {
		status := store.StatusSent
		if mailErr != nil || !j.mailer.Enabled() {
			status = store.StatusFailed
		}
		if err := j.store.SetNotificationStatus(ntf.ID, status); err != nil {
			j.logger.Warn("Failed to update notification status", zap.Error(err))
		}
	}

	// Step 5: resolve next state. Repeating reminders advance by the policy's
	// calendar interval and stay unsent; one-shot reminders terminate. This
	// happens regardless of send outcome: under-delivery over duplicate spam.
	if r.Repeat != store.RepeatNone {
		next := NextDue(r.DueAt, r.Repeat)
		if err := j.store.AdvanceReminder(r.ID, next); err != nil {
			result.Error = err.Error()
			return result
		}
		result.Action = "rescheduled"
	} else {
		if err := j.store.MarkReminderSent(r.ID, now); err != nil {
			result.Error = err.Error()
			return result
		}
		result.Action = "completed"
	}

	return result
}

func (j *Job) resolveRecipients(r *store.Reminder) ([]string, error) {
	caregivers, err := j.store.ListCaregivers(r.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}

	seen := make(map[string]bool)
	var recipients []string
	for _, cg := range caregivers {
		if cg.Email != "" && !seen[cg.Email] {
			seen[cg.Email] = true
			recipients = append(recipients, cg.Email)
		}
	}
	if r.RecipientEmail != "" && !seen[r.RecipientEmail] {
		recipients = append(recipients, r.RecipientEmail)
	}
	return recipients, nil
}

// NextDue advances a due time by the repeat policy's calendar interval
func NextDue(due time.Time, repeat string) time.Time {
	switch repeat {
	case store.RepeatDaily:
		return due.AddDate(0, 0, 1)
	case store.RepeatWeekly:
		return due.AddDate(0, 0, 7)
	case store.RepeatMonthly:
		return due.AddDate(0, 1, 0)
	}
	return due
}

func reminderText(r *store.Reminder) string {
	text := r.Title
	if r.Description != "" {
		text += "\n\n" + r.Description
	}
	text += "\n\nDue: " + r.DueAt.Format(time.RFC1123)
	return text
}

func reminderHTML(r *store.Reminder) string {
	html := "<h3>" + r.Title + "</h3>"
	if r.Description != "" {
		html += "<p>" + r.Description + "</p>"
	}
	html += "<p><i>Due: " + r.DueAt.Format(time.RFC1123) + "</i></p>"
	return html
}
