package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecryptAuthFailures counts AEAD authentication failures on rows known
// to be encrypted. Any non-zero rate here is a tamper or corruption
// signal and should page.
var DecryptAuthFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "candorbox_decrypt_auth_failures_total",
	Help: "AEAD authentication failures on encrypted feedback rows.",
})

// AdmissionDecisions counts admission-controller evaluations by
// resulting state and verdict.
var AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "candorbox_admission_decisions_total",
	Help: "Admission-control decisions by state and verdict.",
}, []string{"state", "allowed"})

// ThreadPromotions counts collecting -> ready transitions.
var ThreadPromotions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "candorbox_thread_promotions_total",
	Help: "Feedback threads promoted to ready by the k-anonymity gate.",
})

// SubmissionsRejected counts write-path rejections by rule.
var SubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "candorbox_submissions_rejected_total",
	Help: "Feedback submissions rejected before persistence, by reason.",
}, []string{"reason"})

// WebhookReplays counts billing events skipped because their id was
// already recorded.
var WebhookReplays = promauto.NewCounter(prometheus.CounterOpts{
	Name: "candorbox_webhook_replays_total",
	Help: "Billing webhook deliveries skipped as already processed.",
})
