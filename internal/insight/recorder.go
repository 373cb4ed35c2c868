// Package insight persists human-readable summaries of risk evaluations.
// Recording is a best-effort side effect: failures are reported to the
// caller, never propagated into the primary write path.
package insight

import (
	"context"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"go.uber.org/zap"
)

// Result is the outcome of one recording attempt. Callers log and move on.
type Result struct {
	OK        bool
	InsightID string
	Err       error
}

// Recorder appends insight rows
type Recorder struct {
	store  *store.Store
	logger *zap.Logger
}

func NewRecorder(st *store.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: st, logger: logger}
}

// Record appends one insight. Always an append, never read-modify-write.
func (r *Recorder) Record(ctx context.Context, ownerID, title, body, source string) Result {
	ins := &store.Insight{
		OwnerID: ownerID,
		Title:   title,
		Body:    body,
		Source:  source,
	}

	if err := r.store.CreateInsight(ins); err != nil {
		r.logger.Warn("Failed to record insight",
			zap.String("owner_id", ownerID),
			zap.String("source", source),
			zap.Error(err),
		)
		return Result{OK: false, Err: err}
	}

	return Result{OK: true, InsightID: ins.ID}
}
