// Package ledger tracks which distinct submitters have contributed to a
// feedback thread and drives the k-anonymity state transition. Counts
// are always recomputed from the authoritative distinct-submitter
// index, never incremented, so concurrent inserts cannot drift.
package ledger

import (
	"time"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
	"candorbox/pkg/telemetry"
)

// RecordSubmission adds the submitter to the thread's participation set
// and returns the recomputed participant count. Recording the same
// submitter twice is a no-op for the count.
func RecordSubmission(threadID, submitterHash string) (int, error) {
	if _, err := store.AddParticipant(threadID, submitterHash); err != nil {
		return 0, err
	}
	return store.CountParticipants(threadID)
}

// ParticipantCount returns the distinct-submitter cardinality.
func ParticipantCount(threadID string) (int, error) {
	return store.CountParticipants(threadID)
}

// MaybePromote transitions a collecting thread to ready once the
// participant count reaches the thread's k-threshold. The transition is
// monotonic: a ready thread never reverts, whatever later counts say.
// Returns true when the thread was promoted by this call.
func MaybePromote(th *models.FeedbackThread) (bool, error) {
	if th.Status != models.ThreadCollecting {
		return false, nil
	}
	count, err := store.CountParticipants(th.ID)
	if err != nil {
		return false, err
	}
	th.ParticipantCount = count
	if count < th.KThreshold {
		return false, store.SaveThread(th)
	}
	th.Status = models.ThreadReady
	th.PromotedTS = time.Now().UTC().UnixNano()
	if err := store.SaveThread(th); err != nil {
		return false, err
	}
	telemetry.ThreadPromotions.Inc()
	logger.Info("thread_promoted", "thread", th.ID, "participants", count, "k", th.KThreshold)
	return true, nil
}

// IsVisible is the render-state gate every consumer must use: content
// may be surfaced only when the live participant count meets the
// thread's threshold. It is a pure derived function of the current
// count, never a stored boolean that can go stale.
func IsVisible(th *models.FeedbackThread) (bool, error) {
	count, err := store.CountParticipants(th.ID)
	if err != nil {
		return false, err
	}
	return count >= th.KThreshold, nil
}
