package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/mail"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeMailer struct {
	enabled bool
	fail    bool
	sent    []mail.Message
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if f.fail {
		return fmt.Errorf("relay down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func setupTestJob(t *testing.T) (*Job, *store.Store, *fakeMailer) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	mailer := &fakeMailer{enabled: true}
	logger, _ := zap.NewDevelopment()
	return NewJob(st, mailer, logger), st, mailer
}

func seedCaregiver(t *testing.T, st *store.Store, ownerID, email string) {
	require.NoError(t, st.CreateCaregiver(&store.Caregiver{
		OwnerID: ownerID,
		Name:    "Jordan",
		Email:   email,
	}))
}

func TestRun_OneShotReminderCompletes(t *testing.T) {
	job, st, mailer := setupTestJob(t)
	now := time.Now()

	seedCaregiver(t, st, "user_123", "jordan@example.com")

	due := now.Add(-time.Hour)
	r := &store.Reminder{OwnerID: "user_123", Title: "Take meds", DueAt: due, Repeat: store.RepeatNone}
	require.NoError(t, st.CreateReminder(r))

	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Mailed)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"jordan@example.com"}, mailer.sent[0].To)

	reloaded, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Sent)
	// Due timestamp stays untouched on a terminal reminder
	assert.WithinDuration(t, due, reloaded.DueAt, time.Second)

	notifications, err := st.ListNotifications("user_123", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, store.StatusSent, notifications[0].Status)
}

func TestRun_DailyReminderAdvancesOneDay(t *testing.T) {
	job, st, _ := setupTestJob(t)
	now := time.Now()

	seedCaregiver(t, st, "user_123", "jordan@example.com")

	due := now.Add(-time.Hour)
	r := &store.Reminder{OwnerID: "user_123", Title: "Walk", DueAt: due, Repeat: store.RepeatDaily}
	require.NoError(t, st.CreateReminder(r))

	_, err := job.Run(context.Background(), now)
	require.NoError(t, err)

	reloaded, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Sent)
	assert.WithinDuration(t, due.AddDate(0, 0, 1), reloaded.DueAt, time.Second)
}

func TestRun_NoRecipientsStillProcessed(t *testing.T) {
	job, st, mailer := setupTestJob(t)
	now := time.Now()

	r := &store.Reminder{OwnerID: "user_nobody", Title: "Hydrate", DueAt: now.Add(-time.Minute), Repeat: store.RepeatNone}
	require.NoError(t, st.CreateReminder(r))

	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, "completed", summary.Results[0].Action)
	assert.Equal(t, 0, summary.Results[0].Recipients)

	// Still transitioned: it does not retry on a later run
	reloaded, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Sent)

	// Notification row written but never promoted past pending
	notifications, err := st.ListNotifications("user_nobody", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, store.StatusPending, notifications[0].Status)
}

func TestRun_MailFailureStillTransitions(t *testing.T) {
	job, st, mailer := setupTestJob(t)
	mailer.fail = true
	now := time.Now()

	seedCaregiver(t, st, "user_123", "jordan@example.com")

	r := &store.Reminder{OwnerID: "user_123", Title: "Take meds", DueAt: now.Add(-time.Hour), Repeat: store.RepeatNone}
	require.NoError(t, st.CreateReminder(r))

	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Mailed)
	assert.Equal(t, 1, summary.Failed)

	reloaded, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Sent)

	notifications, err := st.ListNotifications("user_123", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, store.StatusFailed, notifications[0].Status)
}

func TestRun_FutureRemindersUntouched(t *testing.T) {
	job, st, mailer := setupTestJob(t)
	now := time.Now()

	r := &store.Reminder{OwnerID: "user_123", Title: "Later", DueAt: now.Add(time.Hour), Repeat: store.RepeatNone}
	require.NoError(t, st.CreateReminder(r))

	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, mailer.sent)
}

func TestRun_EndToEndTwoReminders(t *testing.T) {
	job, st, mailer := setupTestJob(t)
	now := time.Now()

	seedCaregiver(t, st, "user_123", "jordan@example.com")

	daily := &store.Reminder{OwnerID: "user_123", Title: "Morning walk", DueAt: now.Add(-time.Hour), Repeat: store.RepeatDaily}
	oneShot := &store.Reminder{OwnerID: "user_123", Title: "Refill prescription", DueAt: now.Add(-2 * time.Hour), Repeat: store.RepeatNone}
	require.NoError(t, st.CreateReminder(daily))
	require.NoError(t, st.CreateReminder(oneShot))

	summary, err := job.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Mailed)
	assert.Len(t, mailer.sent, 2)

	notifications, err := st.ListNotifications("user_123", 10)
	require.NoError(t, err)
	assert.Len(t, notifications, 2)

	reloadedDaily, err := st.GetReminder(daily.ID)
	require.NoError(t, err)
	assert.False(t, reloadedDaily.Sent)
	assert.WithinDuration(t, now.Add(-time.Hour).AddDate(0, 0, 1), reloadedDaily.DueAt, time.Second)

	reloadedOneShot, err := st.GetReminder(oneShot.ID)
	require.NoError(t, err)
	assert.True(t, reloadedOneShot.Sent)
}

func TestNextDue(t *testing.T) {
	due := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), NextDue(due, store.RepeatDaily))
	assert.Equal(t, time.Date(2024, 2, 7, 8, 0, 0, 0, time.UTC), NextDue(due, store.RepeatWeekly))
	// AddDate normalizes Jan 31 + 1 month
	assert.Equal(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), NextDue(due, store.RepeatMonthly))
	assert.Equal(t, due, NextDue(due, store.RepeatNone))
}
