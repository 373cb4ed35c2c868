// Package metrics exposes Prometheus counters for the batch jobs and the
// write path. Registered on the default registry, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_reminders_processed_total",
		Help: "Reminders processed by the dispatcher, by outcome",
	}, []string{"result"})

	mailSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_mail_sends_total",
		Help: "Mail relay calls, by status",
	}, []string{"status"})

	goalsChecked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_goals_checked_total",
		Help: "Goals evaluated by the compliance checker",
	})

	goalsMissed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_goals_missed_total",
		Help: "Goals flagged as missed",
	})

	riskAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_risk_alerts_total",
		Help: "Risk evaluations that crossed the alert thresholds",
	})

	vitalsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_vitals_logged_total",
		Help: "Vitals readings written through the API",
	})

	batchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_batch_runs_total",
		Help: "Batch job invocations, by job and outcome",
	}, []string{"job", "result"})
)

func RecordReminderProcessed(ok bool) {
	if ok {
		remindersProcessed.WithLabelValues("ok").Inc()
	} else {
		remindersProcessed.WithLabelValues("error").Inc()
	}
}

func RecordMailSend(ok bool) {
	if ok {
		mailSends.WithLabelValues("sent").Inc()
	} else {
		mailSends.WithLabelValues("failed").Inc()
	}
}

func RecordGoalChecked(missed bool) {
	goalsChecked.Inc()
	if missed {
		goalsMissed.Inc()
	}
}

func RecordRiskAlert() {
	riskAlerts.Inc()
}

func RecordVitalsLogged() {
	vitalsLogged.Inc()
}

func RecordBatchRun(job string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	batchRuns.WithLabelValues(job, result).Inc()
}
