package insight

import (
	"context"
	"testing"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRecorder(t *testing.T) (*Recorder, *store.Store) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	return NewRecorder(st, logger), st
}

func TestRecord_AppendsInsight(t *testing.T) {
	recorder, st := setupTestRecorder(t)

	result := recorder.Record(context.Background(), "user_123", "Risk evaluation", `{"diabetes":95}`, "vitals")
	assert.True(t, result.OK)
	assert.NotEmpty(t, result.InsightID)
	assert.NoError(t, result.Err)

	insights, err := st.ListInsights("user_123", 10)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "Risk evaluation", insights[0].Title)
	assert.Equal(t, "vitals", insights[0].Source)
}

func TestRecord_AlwaysAppends(t *testing.T) {
	recorder, st := setupTestRecorder(t)

	recorder.Record(context.Background(), "user_123", "Risk evaluation", "first", "vitals")
	recorder.Record(context.Background(), "user_123", "Risk evaluation", "second", "vitals")

	insights, err := st.ListInsights("user_123", 10)
	require.NoError(t, err)
	assert.Len(t, insights, 2)
}
