// Package notify alerts caregivers when a risk evaluation crosses the alert
// thresholds. Runs on the vitals write path as a best-effort side effect.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/mail"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/metrics"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/risk"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"go.uber.org/zap"
)

// Mailer is the outbound channel the notifier needs
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg mail.Message) error
}

// Notifier resolves caregivers for a patient and emails them an alert
type Notifier struct {
	store  *store.Store
	mailer Mailer
	logger *zap.Logger
}

func New(st *store.Store, mailer Mailer, logger *zap.Logger) *Notifier {
	return &Notifier{store: st, mailer: mailer, logger: logger}
}

// AlertCaregivers sends one alert per linked caregiver with a usable email
// and writes a Notification row per attempt. Errors are logged and returned
// for the caller's summary; the caller's primary write is never rolled back.
func (n *Notifier) AlertCaregivers(ctx context.Context, ownerID string, a risk.Assessment, tips []string) error {
	caregivers, err := n.store.ListCaregivers(ownerID)
	if err != nil {
		n.logger.Error("Failed to resolve caregivers for alert",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return err
	}

	subject := "Health alert: concerning readings logged"
	body := alertBody(ownerID, a, tips)
	meta, _ := json.Marshal(a)

	alerted := 0
	for _, cg := range caregivers {
		if cg.Email == "" {
			continue
		}

		ntf := &store.Notification{
			OwnerID:     ownerID,
			CaregiverID: cg.ID,
			Channel:     "email",
			Title:       subject,
			Body:        body,
			Status:      store.StatusPending,
			Metadata:    meta,
		}
		if err := n.store.CreateNotification(ntf); err != nil {
			n.logger.Warn("Failed to write alert notification row", zap.Error(err))
			continue
		}

		status := store.StatusSent
		if err := n.mailer.Send(ctx, mail.Message{
			To:      []string{cg.Email},
			Subject: subject,
			Text:    body,
			HTML:    alertHTML(a, tips),
		}); err != nil {
			status = store.StatusFailed
			n.logger.Warn("Alert mail failed",
				zap.String("caregiver_id", cg.ID),
				zap.Error(err),
			)
		} else {
			alerted++
		}
		metrics.RecordMailSend(status == store.StatusSent)

		if err := n.store.SetNotificationStatus(ntf.ID, status); err != nil {
			n.logger.Warn("Failed to update notification status", zap.Error(err))
		}
	}

	metrics.RecordRiskAlert()
	n.logger.Info("Risk alert processed",
		zap.String("owner_id", ownerID),
		zap.Int("caregivers", len(caregivers)),
		zap.Int("alerted", alerted),
	)
	return nil
}

func alertBody(ownerID string, a risk.Assessment, tips []string) string {
	var sb strings.Builder
	sb.WriteString("Concerning health readings were just logged for a patient you care for.\n\n")
	sb.WriteString("Risk snapshot:\n")
	for _, disease := range []string{risk.Diabetes, risk.Hypertension, risk.HeartDisease, risk.Stroke, risk.Kidney, risk.COPD} {
		if score, ok := a[disease]; ok && score > 0 {
			sb.WriteString(fmt.Sprintf("  - %s: %d%%\n", strings.ReplaceAll(disease, "_", " "), score))
		}
	}
	if len(tips) > 0 {
		sb.WriteString("\nSuggested next steps:\n")
		for _, tip := range tips {
			sb.WriteString("  - " + tip + "\n")
		}
	}
	sb.WriteString("\nPatient id: " + ownerID + "\n")
	return sb.String()
}

func alertHTML(a risk.Assessment, tips []string) string {
	var sb strings.Builder
	sb.WriteString("<h2>Health alert</h2><ul>")
	for _, disease := range []string{risk.Diabetes, risk.Hypertension, risk.HeartDisease, risk.Stroke, risk.Kidney, risk.COPD} {
		if score, ok := a[disease]; ok && score > 0 {
			sb.WriteString(fmt.Sprintf("<li><b>%s</b>: %d%%</li>", strings.ReplaceAll(disease, "_", " "), score))
		}
	}
	sb.WriteString("</ul>")
	if len(tips) > 0 {
		sb.WriteString("<p>")
		sb.WriteString(strings.Join(tips, "<br>"))
		sb.WriteString("</p>")
	}
	return sb.String()
}
