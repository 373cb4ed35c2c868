package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Repeat policies for reminders
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// Notification statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Goal periods
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// VitalsReading is one logged measurement set. Append-only: rows are never
// updated after creation.
type VitalsReading struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index:idx_vitals_owner_created" json:"owner_id"`

	HeartRate       *float64 `json:"heart_rate,omitempty"`
	Systolic        *float64 `json:"systolic,omitempty"`
	Diastolic       *float64 `json:"diastolic,omitempty"`
	BloodSugar      *float64 `json:"blood_sugar,omitempty"`
	SugarType       string   `json:"sugar_type,omitempty"` // fasting, random
	Weight          *float64 `json:"weight,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	SleepHours      *float64 `json:"sleep_hours,omitempty"`
	ExerciseMinutes *float64 `json:"exercise_minutes,omitempty"`
	Steps           *float64 `json:"steps,omitempty"`

	Mood        string `json:"mood,omitempty"`
	Symptoms    string `json:"symptoms,omitempty" gorm:"type:text"`
	Medications string `json:"medications,omitempty" gorm:"type:text"`
	Notes       string `json:"notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time `gorm:"index:idx_vitals_owner_created" json:"created_at"`
}

// SymptomItem is one reported symptom with severity
type SymptomItem struct {
	SymptomID string `json:"symptom_id"`
	Label     string `json:"label"`
	Severity  string `json:"severity"` // mild, moderate, severe
}

// SymptomEntry is an append-only symptom report
type SymptomEntry struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"`

	Symptoms     []SymptomItem `json:"symptoms" gorm:"-"`
	SymptomsJSON string        `json:"-" gorm:"type:text"` // Serialized symptoms

	Notes     string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// Insight is a persisted, human-readable summary of a risk evaluation.
// Append-only.
type Insight struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"`

	Title     string    `json:"title"`
	Body      string    `json:"body" gorm:"type:text"` // text or JSON-encoded risk snapshot
	Source    string    `json:"source"`                // vitals, symptoms, batch
	CreatedAt time.Time `json:"created_at"`
}

// Reminder is the only mutable entity: the dispatcher flips Sent or advances
// DueAt for repeating reminders.
type Reminder struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	DueAt  time.Time `gorm:"index:idx_reminder_due" json:"due_at"`
	Repeat string    `json:"repeat"` // none, daily, weekly, monthly

	Sent   bool       `gorm:"index:idx_reminder_due" json:"sent"`
	SentAt *time.Time `json:"sent_at,omitempty"`

	RecipientEmail string `json:"recipient_email,omitempty"`
	CaregiverID    string `json:"caregiver_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Caregiver is a contact linked to exactly one patient, eligible to receive
// alert notifications. Not necessarily a system account.
type Caregiver struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"` // the patient this caregiver is linked to

	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal is a per-metric target checked by the compliance batch job. The job
// never mutates goals; it only creates reminders as a side effect.
type Goal struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"`

	Metric string  `json:"metric"` // matches a VitalsReading field, e.g. weight, steps
	Target float64 `json:"target"`
	Period string  `json:"period"` // daily, weekly, monthly
	Active bool    `gorm:"index" json:"active"`

	CreatedAt time.Time `json:"created_at"`
}

// Notification records a delivery attempt. Written once as pending, then
// patched to sent or failed.
type Notification struct {
	ID          string `gorm:"primaryKey" json:"id"`
	OwnerID     string `gorm:"index" json:"owner_id"`
	CaregiverID string `json:"caregiver_id,omitempty"`

	Channel string `json:"channel"` // email
	Title   string `json:"title"`
	Body    string `json:"body" gorm:"type:text"`
	Status  string `json:"status"` // pending, sent, failed

	Metadata  json.RawMessage `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt time.Time       `json:"created_at"`
}

func generateID(prefix string) string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return prefix + "_" + hex.EncodeToString(bytes)
}
