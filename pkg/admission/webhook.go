package admission

import (
	"errors"
	"fmt"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
	"candorbox/pkg/telemetry"
)

// BillingEvent is the normalized shape of an inbound payment-provider
// webhook. The HTTP layer maps provider payloads into this and nothing
// else; the provider's own subscription lifecycle stays outside the
// trust boundary.
type BillingEvent struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	OrgID              string `json:"org"`
	SubscriptionStatus string `json:"subscription_status"`
	TrialEndsTS        int64  `json:"trial_ends_ts,omitempty"`
	SeatCap            int    `json:"seat_cap,omitempty"`
}

// ErrUnknownOrg is returned when a billing event references an org that
// does not exist.
var ErrUnknownOrg = errors.New("billing event for unknown org")

// ApplyBillingEvent records the event id and, only when the id is
// fresh, applies the subscription fields to the organization. Payment
// providers deliver at least once; a replayed id is a no-op.
func (c *Controller) ApplyBillingEvent(ev BillingEvent) error {
	if ev.ID == "" || ev.OrgID == "" {
		return fmt.Errorf("billing event missing id or org")
	}
	fresh, err := store.RecordWebhookEvent(&models.WebhookEvent{ID: ev.ID, Type: ev.Type})
	if err != nil {
		return err
	}
	if !fresh {
		telemetry.WebhookReplays.Inc()
		logger.Info("webhook_replay_skipped", "event", ev.ID, "org", ev.OrgID)
		return nil
	}

	org, err := store.GetOrg(ev.OrgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownOrg, ev.OrgID)
		}
		return err
	}

	switch ev.SubscriptionStatus {
	case "active":
		org.ActiveSubscription = true
		org.BillingStatus = models.StatusActive
	case "trialing":
		org.ActiveSubscription = true
		org.BillingStatus = models.StatusTrialing
	case "past_due":
		org.ActiveSubscription = false
		org.BillingStatus = models.StatusPastDue
	case "canceled":
		org.ActiveSubscription = false
		org.BillingStatus = models.StatusCanceled
	case "unpaid":
		org.ActiveSubscription = false
		org.BillingStatus = models.StatusUnpaid
	case "incomplete":
		org.ActiveSubscription = false
		org.BillingStatus = models.StatusIncomplete
	case "paused":
		org.ActiveSubscription = false
		org.BillingStatus = models.StatusPaused
	default:
		return fmt.Errorf("unknown subscription status %q in event %s", ev.SubscriptionStatus, ev.ID)
	}
	if ev.TrialEndsTS != 0 {
		org.TrialEndsTS = ev.TrialEndsTS
	}
	if ev.SeatCap > 0 {
		org.SeatCap = ev.SeatCap
	}
	if err := store.SaveOrg(org); err != nil {
		return err
	}
	logger.Info("billing_event_applied", "event", ev.ID, "org", ev.OrgID, "status", ev.SubscriptionStatus)
	return nil
}
