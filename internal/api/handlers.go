package api

import (
	"encoding/json"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/metrics"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/risk"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Security.ServiceToken != "" && req.Token != s.config.Security.ServiceToken {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "service",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

// ==================== Write path ====================

type vitalsRequest struct {
	OwnerID         string   `json:"owner_id"`
	HeartRate       *float64 `json:"heart_rate"`
	Systolic        *float64 `json:"systolic"`
	Diastolic       *float64 `json:"diastolic"`
	BloodSugar      *float64 `json:"blood_sugar"`
	SugarType       string   `json:"sugar_type"`
	Weight          *float64 `json:"weight"`
	Temperature     *float64 `json:"temperature"`
	SleepHours      *float64 `json:"sleep_hours"`
	ExerciseMinutes *float64 `json:"exercise_minutes"`
	Steps           *float64 `json:"steps"`
	Mood            string   `json:"mood"`
	Symptoms        string   `json:"symptoms"`
	Medications     string   `json:"medications"`
	Notes           string   `json:"notes"`
	Age             int      `json:"age"`
}

func (s *Server) handleCreateVitals(c *fiber.Ctx) error {
	var req vitalsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.OwnerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	reading := &store.VitalsReading{
		OwnerID:         req.OwnerID,
		HeartRate:       req.HeartRate,
		Systolic:        req.Systolic,
		Diastolic:       req.Diastolic,
		BloodSugar:      req.BloodSugar,
		SugarType:       req.SugarType,
		Weight:          req.Weight,
		Temperature:     req.Temperature,
		SleepHours:      req.SleepHours,
		ExerciseMinutes: req.ExerciseMinutes,
		Steps:           req.Steps,
		Mood:            req.Mood,
		Symptoms:        req.Symptoms,
		Medications:     req.Medications,
		Notes:           req.Notes,
	}

	if err := s.store.CreateVitals(reading); err != nil {
		s.logger.Error("Failed to create vitals reading", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to save reading"})
	}
	metrics.RecordVitalsLogged()

	// Synchronous risk evaluation on the write path
	assessment := risk.Evaluate(snapshotFromRequest(&req), risk.Profile{Age: req.Age})
	tips := risk.Tips(assessment)

	// Best-effort side effects: insight row, then caregiver alert when the
	// assessment crosses the alert thresholds. Neither blocks the write.
	body, _ := json.Marshal(fiber.Map{"risks": assessment, "tips": tips})
	s.recorder.Record(c.Context(), req.OwnerID, "Risk evaluation", string(body), "vitals")

	alerted := false
	if risk.ShouldAlert(assessment) {
		alerted = true
		if err := s.notifier.AlertCaregivers(c.Context(), req.OwnerID, assessment, tips); err != nil {
			s.logger.Warn("Caregiver alert failed", zap.Error(err))
		}
	}

	return c.Status(201).JSON(fiber.Map{
		"reading": reading,
		"risks":   assessment,
		"tips":    tips,
		"alerted": alerted,
	})
}

func snapshotFromRequest(req *vitalsRequest) risk.Snapshot {
	s := risk.Snapshot{
		Symptoms:     req.Symptoms,
		FastingSugar: req.SugarType == "fasting",
	}
	if req.HeartRate != nil {
		s.HeartRate = *req.HeartRate
	}
	if req.Systolic != nil {
		s.Systolic = *req.Systolic
	}
	if req.Diastolic != nil {
		s.Diastolic = *req.Diastolic
	}
	if req.BloodSugar != nil {
		s.BloodSugar = *req.BloodSugar
	}
	if req.Weight != nil {
		s.Weight = *req.Weight
	}
	if req.Temperature != nil {
		s.Temperature = *req.Temperature
	}
	if req.SleepHours != nil {
		s.SleepHours = *req.SleepHours
	}
	return s
}

func (s *Server) handleListVitals(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}
	limit := c.QueryInt("limit", 50)

	readings, err := s.store.ListVitals(ownerID, limit)
	if err != nil {
		s.logger.Error("Failed to list vitals", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list readings"})
	}
	return c.JSON(readings)
}

func (s *Server) handleCreateSymptoms(c *fiber.Ctx) error {
	var req struct {
		OwnerID  string              `json:"owner_id"`
		Symptoms []store.SymptomItem `json:"symptoms"`
		Notes    string              `json:"notes"`
		Age      int                 `json:"age"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.OwnerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	entry := &store.SymptomEntry{
		OwnerID:  req.OwnerID,
		Symptoms: req.Symptoms,
		Notes:    req.Notes,
	}
	if err := s.store.CreateSymptomEntry(entry); err != nil {
		s.logger.Error("Failed to create symptom entry", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to save symptoms"})
	}

	assessment := risk.Evaluate(snapshotFromSymptoms(entry), risk.Profile{Age: req.Age})
	tips := risk.Tips(assessment)

	body, _ := json.Marshal(fiber.Map{"risks": assessment, "tips": tips})
	s.recorder.Record(c.Context(), req.OwnerID, "Symptom evaluation", string(body), "symptoms")

	alerted := false
	if risk.ShouldAlert(assessment) {
		alerted = true
		if err := s.notifier.AlertCaregivers(c.Context(), req.OwnerID, assessment, tips); err != nil {
			s.logger.Warn("Caregiver alert failed", zap.Error(err))
		}
	}

	return c.Status(201).JSON(fiber.Map{
		"entry":   entry,
		"risks":   assessment,
		"tips":    tips,
		"alerted": alerted,
	})
}

func snapshotFromSymptoms(entry *store.SymptomEntry) risk.Snapshot {
	var labels []string
	severity := ""
	for _, item := range entry.Symptoms {
		labels = append(labels, item.Label)
		if item.Severity == "severe" {
			severity = "severe"
		}
	}
	text := entry.Notes
	for _, label := range labels {
		text += " " + label
	}
	return risk.Snapshot{Symptoms: text, Severity: severity}
}

func (s *Server) handleListSymptoms(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	entries, err := s.store.ListSymptomEntries(ownerID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list symptoms"})
	}
	return c.JSON(entries)
}

func (s *Server) handleListInsights(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	insights, err := s.store.ListInsights(ownerID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list insights"})
	}
	return c.JSON(insights)
}

// ==================== Reminders / caregivers / goals ====================

func (s *Server) handleListReminders(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	reminders, err := s.store.ListReminders(ownerID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list reminders"})
	}
	return c.JSON(reminders)
}

func (s *Server) handleCreateReminder(c *fiber.Ctx) error {
	var req struct {
		OwnerID        string    `json:"owner_id"`
		Title          string    `json:"title"`
		Description    string    `json:"description"`
		DueAt          time.Time `json:"due_at"`
		Repeat         string    `json:"repeat"`
		RecipientEmail string    `json:"recipient_email"`
		CaregiverID    string    `json:"caregiver_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.OwnerID == "" || req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id and title are required"})
	}

	switch req.Repeat {
	case "", store.RepeatNone, store.RepeatDaily, store.RepeatWeekly, store.RepeatMonthly:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid repeat policy"})
	}

	reminder := &store.Reminder{
		OwnerID:        req.OwnerID,
		Title:          req.Title,
		Description:    req.Description,
		DueAt:          req.DueAt,
		Repeat:         req.Repeat,
		RecipientEmail: req.RecipientEmail,
		CaregiverID:    req.CaregiverID,
	}
	if reminder.DueAt.IsZero() {
		reminder.DueAt = time.Now()
	}

	if err := s.store.CreateReminder(reminder); err != nil {
		s.logger.Error("Failed to create reminder", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to create reminder"})
	}
	return c.Status(201).JSON(reminder)
}

func (s *Server) handleDeleteReminder(c *fiber.Ctx) error {
	if err := s.store.DeleteReminder(c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete reminder"})
	}
	return c.SendStatus(204)
}

func (s *Server) handleListCaregivers(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	caregivers, err := s.store.ListCaregivers(ownerID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list caregivers"})
	}
	return c.JSON(caregivers)
}

func (s *Server) handleCreateCaregiver(c *fiber.Ctx) error {
	var req struct {
		OwnerID   string `json:"owner_id"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		AccountID string `json:"account_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.OwnerID == "" || req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id and name are required"})
	}

	caregiver := &store.Caregiver{
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		AccountID: req.AccountID,
	}
	if err := s.store.CreateCaregiver(caregiver); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create caregiver"})
	}
	return c.Status(201).JSON(caregiver)
}

func (s *Server) handleDeleteCaregiver(c *fiber.Ctx) error {
	if err := s.store.DeleteCaregiver(c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete caregiver"})
	}
	return c.SendStatus(204)
}

func (s *Server) handleListGoals(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	goalRows, err := s.store.ListGoals(ownerID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list goals"})
	}
	return c.JSON(goalRows)
}

func (s *Server) handleCreateGoal(c *fiber.Ctx) error {
	var req struct {
		OwnerID string  `json:"owner_id"`
		Metric  string  `json:"metric"`
		Target  float64 `json:"target"`
		Period  string  `json:"period"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.OwnerID == "" || req.Metric == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id and metric are required"})
	}
	if !store.KnownMetric(req.Metric) {
		return c.Status(400).JSON(fiber.Map{"error": "unknown metric"})
	}

	switch req.Period {
	case store.PeriodDaily, store.PeriodWeekly, store.PeriodMonthly:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid period"})
	}

	goal := &store.Goal{
		OwnerID: req.OwnerID,
		Metric:  req.Metric,
		Target:  req.Target,
		Period:  req.Period,
		Active:  true,
	}
	if err := s.store.CreateGoal(goal); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create goal"})
	}
	return c.Status(201).JSON(goal)
}

func (s *Server) handleDeleteGoal(c *fiber.Ctx) error {
	if err := s.store.DeleteGoal(c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete goal"})
	}
	return c.SendStatus(204)
}

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "owner_id is required"})
	}

	notifications, err := s.store.ListNotifications(ownerID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to list notifications"})
	}
	return c.JSON(notifications)
}

// ==================== Batch triggers ====================

func (s *Server) handleDispatchReminders(c *fiber.Ctx) error {
	summary, err := s.dispatch.Run(c.Context(), time.Now())
	if err != nil {
		s.logger.Error("Reminder dispatch failed", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"processed": summary.Processed,
		"results":   summary.Results,
	})
}

func (s *Server) handleCheckGoals(c *fiber.Ctx) error {
	summary, err := s.goals.Run(c.Context(), time.Now())
	if err != nil {
		s.logger.Error("Goal check failed", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"processed": summary.Processed,
		"results":   summary.Results,
	})
}
