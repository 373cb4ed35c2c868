package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/config"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testServiceToken = "svc-test-token"

func setupTestServer(t *testing.T) (*Server, *store.Store) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{ReadTimeout: 5, WriteTimeout: 5},
		Batch:  config.BatchConfig{Timezone: "UTC"},
		Security: config.SecurityConfig{
			JWTSecret:    "test-secret",
			ServiceToken: testServiceToken,
			AllowOrigins: []string{"*"},
		},
	}

	logger, _ := zap.NewDevelopment()
	return New(cfg, st, logger), st
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req, 5000)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := doJSON(t, s, "GET", "/api/health", "", nil)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, _ := doJSON(t, s, "GET", "/api/reminders?owner_id=user_123", "", nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp, _ = doJSON(t, s, "GET", "/api/reminders?owner_id=user_123", "wrong-token", nil)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestServiceTokenAccepted(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, _ := doJSON(t, s, "GET", "/api/reminders?owner_id=user_123", testServiceToken, nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestLoginIssuesUsableJWT(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, body := doJSON(t, s, "POST", "/api/auth/login", "", map[string]string{"token": testServiceToken})
	require.Equal(t, 200, resp.StatusCode)
	jwtToken, _ := body["token"].(string)
	require.NotEmpty(t, jwtToken)

	resp, _ = doJSON(t, s, "GET", "/api/goals?owner_id=user_123", jwtToken, nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, _ := doJSON(t, s, "POST", "/api/auth/login", "", map[string]string{"token": "nope"})
	assert.Equal(t, 401, resp.StatusCode)
}

func TestCreateVitals_EvaluatesRisk(t *testing.T) {
	s, st := setupTestServer(t)

	resp, body := doJSON(t, s, "POST", "/api/vitals", testServiceToken, map[string]interface{}{
		"owner_id":    "user_123",
		"blood_sugar": 220,
		"sugar_type":  "random",
	})
	require.Equal(t, 201, resp.StatusCode)

	risks, ok := body["risks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 95.0, risks["diabetes"])
	assert.Equal(t, true, body["alerted"])
	assert.NotEmpty(t, body["tips"])

	// Reading persisted and an insight recorded as a side effect
	readings, err := st.ListVitals("user_123", 10)
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	insights, err := st.ListInsights("user_123", 10)
	require.NoError(t, err)
	assert.Len(t, insights, 1)
}

func TestCreateVitals_RequiresOwner(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, _ := doJSON(t, s, "POST", "/api/vitals", testServiceToken, map[string]interface{}{
		"heart_rate": 72,
	})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateGoal_Validation(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, _ := doJSON(t, s, "POST", "/api/goals", testServiceToken, map[string]interface{}{
		"owner_id": "user_123", "metric": "mindfulness", "target": 3, "period": "daily",
	})
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = doJSON(t, s, "POST", "/api/goals", testServiceToken, map[string]interface{}{
		"owner_id": "user_123", "metric": "steps", "target": 10000, "period": "fortnightly",
	})
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = doJSON(t, s, "POST", "/api/goals", testServiceToken, map[string]interface{}{
		"owner_id": "user_123", "metric": "steps", "target": 10000, "period": "daily",
	})
	assert.Equal(t, 201, resp.StatusCode)
}

func TestDispatchTrigger(t *testing.T) {
	s, st := setupTestServer(t)

	require.NoError(t, st.CreateReminder(&store.Reminder{
		OwnerID: "user_123",
		Title:   "Take meds",
		DueAt:   time.Now().Add(-time.Hour),
		Repeat:  store.RepeatNone,
	}))

	resp, body := doJSON(t, s, "POST", "/api/jobs/dispatch-reminders", testServiceToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 1.0, body["processed"])

	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 1)
}

func TestCheckGoalsTrigger(t *testing.T) {
	s, st := setupTestServer(t)

	require.NoError(t, st.CreateGoal(&store.Goal{
		OwnerID: "user_123", Metric: "steps", Target: 10000, Period: store.PeriodDaily, Active: true,
	}))

	resp, body := doJSON(t, s, "GET", "/api/jobs/check-goals", testServiceToken, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 1.0, body["processed"])

	// No steps logged: the missed goal inserted a reminder
	reminders, err := st.ListReminders("user_123")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Goal missed: steps", reminders[0].Title)
}
