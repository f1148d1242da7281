package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pairsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_pairs_created_total",
			Help: "Total number of pairings created by daily runs",
		},
	)

	waitlisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_waitlisted_total",
			Help: "Total number of members waitlisted by daily runs",
		},
	)

	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_submissions_total",
			Help: "Photo submissions by outcome",
		},
		[]string{"outcome"},
	)

	recoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_recovery_total",
			Help: "Recovery job per-record outcomes",
		},
		[]string{"outcome"},
	)

	remindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_reminders_sent_total",
			Help: "Reminders accepted and handed to delivery",
		},
	)
)

func RecordDailyRun(pairs, waitlist int) {
	pairsCreated.Add(float64(pairs))
	waitlisted.Add(float64(waitlist))
}

func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func RecordRecovery(outcome string) {
	recoveryOutcomes.WithLabelValues(outcome).Inc()
}

func RecordReminder() {
	remindersSent.Inc()
}
