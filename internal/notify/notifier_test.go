package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/mail"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/risk"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestNotifier(t *testing.T, relayStatus int) (*Notifier, *store.Store, *[]mail.Message) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	var received []mail.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg mail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		received = append(received, msg)
		w.WriteHeader(relayStatus)
	}))
	t.Cleanup(srv.Close)

	logger, _ := zap.NewDevelopment()
	relay := mail.NewRelay(mail.Config{Endpoint: srv.URL})
	return New(st, relay, logger), st, &received
}

func TestAlertCaregivers_MailsAndRecordsNotification(t *testing.T) {
	notifier, st, received := setupTestNotifier(t, http.StatusOK)

	require.NoError(t, st.CreateCaregiver(&store.Caregiver{
		OwnerID: "user_123", Name: "Jordan", Email: "jordan@example.com",
	}))
	// Phone-only caregiver: not a mail recipient, no notification row
	require.NoError(t, st.CreateCaregiver(&store.Caregiver{
		OwnerID: "user_123", Name: "Sam", Phone: "555-0100",
	}))

	a := risk.Assessment{risk.Diabetes: 95}
	err := notifier.AlertCaregivers(context.Background(), "user_123", a, risk.Tips(a))
	require.NoError(t, err)

	require.Len(t, *received, 1)
	assert.Equal(t, []string{"jordan@example.com"}, (*received)[0].To)
	assert.Contains(t, (*received)[0].Text, "diabetes")

	notifications, err := st.ListNotifications("user_123", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, store.StatusSent, notifications[0].Status)
	assert.Equal(t, "email", notifications[0].Channel)
}

func TestAlertCaregivers_RelayFailureMarksFailed(t *testing.T) {
	notifier, st, received := setupTestNotifier(t, http.StatusBadGateway)

	require.NoError(t, st.CreateCaregiver(&store.Caregiver{
		OwnerID: "user_123", Name: "Jordan", Email: "jordan@example.com",
	}))

	a := risk.Assessment{risk.Hypertension: 98}
	// The alert never aborts the caller, even when every send fails
	err := notifier.AlertCaregivers(context.Background(), "user_123", a, risk.Tips(a))
	require.NoError(t, err)
	require.Len(t, *received, 1)

	notifications, err := st.ListNotifications("user_123", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, store.StatusFailed, notifications[0].Status)
}

func TestAlertCaregivers_NoCaregivers(t *testing.T) {
	notifier, st, received := setupTestNotifier(t, http.StatusOK)

	a := risk.Assessment{risk.Diabetes: 95}
	err := notifier.AlertCaregivers(context.Background(), "user_lonely", a, risk.Tips(a))
	require.NoError(t, err)
	assert.Empty(t, *received)

	notifications, err := st.ListNotifications("user_lonely", 10)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}
