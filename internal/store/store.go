package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/Saharshbhardwaj/early-health-guardian1/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store provides typed access to the guardian database. Batch jobs and
// handlers go through these methods; wire-format details stay here.
type Store struct {
	db *gorm.DB
}

// New opens the SQLite database and migrates schemas
func New(sqlitePath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(
		&VitalsReading{},
		&SymptomEntry{},
		&Insight{},
		&Reminder{},
		&Caregiver{},
		&Goal{},
		&Notification{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection (used by tests)
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&VitalsReading{},
		&SymptomEntry{},
		&Insight{},
		&Reminder{},
		&Caregiver{},
		&Goal{},
		&Notification{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// VitalsReading operations

func (s *Store) CreateVitals(v *VitalsReading) error {
	if v.ID == "" {
		v.ID = generateID("vit")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	return s.db.Create(v).Error
}

func (s *Store) ListVitals(ownerID string, limit int) ([]VitalsReading, error) {
	query := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var readings []VitalsReading
	err := query.Find(&readings).Error
	return readings, err
}

// metricColumns whitelists goal metric names against vitals columns
var metricColumns = map[string]string{
	"weight":           "weight",
	"heart_rate":       "heart_rate",
	"blood_sugar":      "blood_sugar",
	"temperature":      "temperature",
	"sleep_hours":      "sleep_hours",
	"exercise_minutes": "exercise_minutes",
	"steps":            "steps",
}

// KnownMetric reports whether metric maps to a vitals column
func KnownMetric(metric string) bool {
	_, ok := metricColumns[metric]
	return ok
}

// LatestMetric returns the most recent non-null value for the metric, or nil
// when the owner has never logged it
func (s *Store) LatestMetric(ownerID, metric string) (*float64, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return nil, apperrors.WrapAs(apperrors.ErrUnknownMetric, fmt.Errorf("%q", metric))
	}

	var value sql.NullFloat64
	err := s.db.Model(&VitalsReading{}).
		Where("owner_id = ? AND "+col+" IS NOT NULL", ownerID).
		Order("created_at DESC").
		Limit(1).
		Pluck(col, &value).Error
	if err != nil {
		return nil, err
	}
	if !value.Valid {
		return nil, nil
	}
	return &value.Float64, nil
}

// SumMetricSince sums every logged value for the metric from since onward,
// or nil when no rows carry the metric in the window
func (s *Store) SumMetricSince(ownerID, metric string, since time.Time) (*float64, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return nil, apperrors.WrapAs(apperrors.ErrUnknownMetric, fmt.Errorf("%q", metric))
	}

	row := s.db.Model(&VitalsReading{}).
		Where("owner_id = ? AND created_at >= ? AND "+col+" IS NOT NULL", ownerID, since).
		Select("SUM(" + col + ")").
		Row()

	var sum sql.NullFloat64
	if err := row.Scan(&sum); err != nil {
		return nil, err
	}
	if !sum.Valid {
		return nil, nil
	}
	return &sum.Float64, nil
}

// SymptomEntry operations

func (s *Store) CreateSymptomEntry(entry *SymptomEntry) error {
	if entry.ID == "" {
		entry.ID = generateID("sym")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if len(entry.Symptoms) > 0 {
		symptomsJSON, _ := json.Marshal(entry.Symptoms)
		entry.SymptomsJSON = string(symptomsJSON)
	}

	return s.db.Create(entry).Error
}

func (s *Store) ListSymptomEntries(ownerID string, limit int) ([]SymptomEntry, error) {
	query := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []SymptomEntry
	err := query.Find(&entries).Error

	for i := range entries {
		if entries[i].SymptomsJSON != "" {
			json.Unmarshal([]byte(entries[i].SymptomsJSON), &entries[i].Symptoms)
		}
	}

	return entries, err
}

// Insight operations

func (s *Store) CreateInsight(insight *Insight) error {
	if insight.ID == "" {
		insight.ID = generateID("ins")
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}
	return s.db.Create(insight).Error
}

func (s *Store) ListInsights(ownerID string, limit int) ([]Insight, error) {
	query := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var insights []Insight
	err := query.Find(&insights).Error
	return insights, err
}

// Reminder operations

func (s *Store) CreateReminder(r *Reminder) error {
	if r.ID == "" {
		r.ID = generateID("rem")
	}
	if r.Repeat == "" {
		r.Repeat = RepeatNone
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.db.Create(r).Error
}

func (s *Store) GetReminder(id string) (*Reminder, error) {
	var r Reminder
	err := s.db.Where("id = ?", id).First(&r).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &r, err
}

func (s *Store) ListReminders(ownerID string) ([]Reminder, error) {
	var reminders []Reminder
	err := s.db.Where("owner_id = ?", ownerID).Order("due_at ASC").Find(&reminders).Error
	return reminders, err
}

func (s *Store) DeleteReminder(id string) error {
	return s.db.Where("id = ?", id).Delete(&Reminder{}).Error
}

// GetDueReminders returns unsent reminders with due time at or before now
func (s *Store) GetDueReminders(now time.Time) ([]Reminder, error) {
	var reminders []Reminder
	err := s.db.Where("sent = ? AND due_at <= ?", false, now).
		Order("due_at ASC").
		Find(&reminders).Error
	return reminders, err
}

// MarkReminderSent terminates a non-repeating reminder. DueAt is left
// unchanged.
func (s *Store) MarkReminderSent(id string, at time.Time) error {
	return s.db.Model(&Reminder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sent":    true,
		"sent_at": &at,
	}).Error
}

// AdvanceReminder moves a repeating reminder to its next due time, keeping
// sent = false so it is picked up again
func (s *Store) AdvanceReminder(id string, nextDue time.Time) error {
	return s.db.Model(&Reminder{}).Where("id = ?", id).Update("due_at", nextDue).Error
}

// Caregiver operations

func (s *Store) CreateCaregiver(c *Caregiver) error {
	if c.ID == "" {
		c.ID = generateID("cg")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return s.db.Create(c).Error
}

func (s *Store) ListCaregivers(ownerID string) ([]Caregiver, error) {
	var caregivers []Caregiver
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&caregivers).Error
	return caregivers, err
}

func (s *Store) DeleteCaregiver(id string) error {
	return s.db.Where("id = ?", id).Delete(&Caregiver{}).Error
}

// Goal operations

func (s *Store) CreateGoal(g *Goal) error {
	if g.ID == "" {
		g.ID = generateID("goal")
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	return s.db.Create(g).Error
}

func (s *Store) ListGoals(ownerID string) ([]Goal, error) {
	var goals []Goal
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&goals).Error
	return goals, err
}

// ListActiveGoals returns every active goal across all owners, the candidate
// set for one compliance run
func (s *Store) ListActiveGoals() ([]Goal, error) {
	var goals []Goal
	err := s.db.Where("active = ?", true).Order("created_at ASC").Find(&goals).Error
	return goals, err
}

func (s *Store) DeleteGoal(id string) error {
	return s.db.Where("id = ?", id).Delete(&Goal{}).Error
}

// Notification operations

func (s *Store) CreateNotification(n *Notification) error {
	if n.ID == "" {
		n.ID = generateID("ntf")
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.db.Create(n).Error
}

func (s *Store) SetNotificationStatus(id, status string) error {
	return s.db.Model(&Notification{}).Where("id = ?", id).Update("status", status).Error
}

func (s *Store) ListNotifications(ownerID string, limit int) ([]Notification, error) {
	query := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []Notification
	err := query.Find(&notifications).Error
	return notifications, err
}
