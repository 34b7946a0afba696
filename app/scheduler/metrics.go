package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_run_invocations_total",
		Help: "Campaign run loop invocations by result",
	}, []string{"result"}) // processed, noop, locked, error

	recipientOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_recipient_outcomes_total",
		Help: "Per-recipient outcomes of run loop invocations",
	}, []string{"outcome"}) // sent, failed, completed, skipped

	accountsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_accounts_skipped_total",
		Help: "Sender accounts skipped during run loop invocations by reason",
	}, []string{"reason"}) // no_session, quota, auth_failure

	campaignsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_campaigns_completed_total",
		Help: "Campaigns transitioned to completed by the run loop",
	})
)
