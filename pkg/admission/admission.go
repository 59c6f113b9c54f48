// Package admission decides whether writes are allowed for an
// organization right now, from its billing state and seat usage. The
// core is a pure function (state, usage) -> (new state, verdict);
// persistence of each transition is a side effect so state never has
// to be recomputed from history mid-request.
package admission

import (
	"strconv"
	"time"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
	"candorbox/pkg/telemetry"
)

// overCapBlockRatio is the hard-block threshold: above 110% of the seat
// cap there is no grace, only a paid resolution.
const overCapBlockRatio = 1.10

// Decision is the admission verdict for one write attempt.
type Decision struct {
	Allowed     bool                 `json:"allowed"`
	State       models.BillingStatus `json:"state"`
	Reason      string               `json:"reason,omitempty"`
	GraceEndsAt *time.Time           `json:"grace_ends_at,omitempty"`
}

// Controller evaluates and persists admission state. Construct once at
// startup with the policy's grace window.
type Controller struct {
	GracePeriod time.Duration
	now         func() time.Time
}

// NewController builds a controller; a nil now func defaults to
// time.Now and a non-positive grace period to 7 days.
func NewController(gracePeriod time.Duration, now func() time.Time) *Controller {
	if gracePeriod <= 0 {
		gracePeriod = 7 * 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{GracePeriod: gracePeriod, now: now}
}

var blockedReasons = map[models.BillingStatus]string{
	models.StatusInstalledNoCheckout: "finish checkout to start collecting feedback",
	models.StatusOverCapBlocked:      "member count exceeds your seat cap; upgrade your plan to restore write access",
	models.StatusTrialExpiredUnpaid:  "your trial has ended; add a subscription to continue",
	models.StatusPastDue:             "your subscription payment is past due",
	models.StatusCanceled:            "your subscription was canceled",
	models.StatusUnpaid:              "your subscription is unpaid",
	models.StatusIncomplete:          "your subscription setup is incomplete",
	models.StatusPaused:              "your subscription is paused",
}

// Evaluate runs the transition rules in priority order and mutates the
// org's billing fields in place. Pure apart from that mutation: nothing
// is persisted here. Rules, first match wins:
//
//  1. no subscription and trial over -> trial_expired_unpaid, blocked
//  2. usage above 110% of cap -> over_cap_blocked, grace cleared;
//     a blocked org cannot self-heal by shrinking, it needs a
//     subscription to be restored
//  3. usage between 100% and 110% -> grace handling (7-day window; a
//     blocked org re-enters grace only with an active subscription)
//  4. back under cap from an over-cap state -> restore and clear grace
//  5. steady state: trialing/active/grace allow, everything else blocks
func (c *Controller) Evaluate(org *models.Organization, eligibleCount int) Decision {
	now := c.now()

	// rule 1: an expired trial with no subscription blocks regardless
	// of seat usage.
	if !org.ActiveSubscription && org.TrialExpired(now) {
		org.BillingStatus = models.StatusTrialExpiredUnpaid
		return c.decision(org, false)
	}

	ratio := capRatio(eligibleCount, org.SeatCap)

	// rule 2: hard block above 110%.
	if ratio > overCapBlockRatio {
		org.BillingStatus = models.StatusOverCapBlocked
		org.GraceEndsTS = 0
		return c.decision(org, false)
	}

	// rule 3: the 100-110% band runs on grace periods.
	if ratio > 1.0 {
		wasBlocked := org.BillingStatus == models.StatusOverCapBlocked
		switch {
		case wasBlocked && org.ActiveSubscription:
			// restored by payment: a fresh grace window starts now
			org.BillingStatus = models.StatusOverCapGrace
			org.GraceEndsTS = now.Add(c.GracePeriod).UnixNano()
			return c.decision(org, true)
		case wasBlocked:
			return c.decision(org, false)
		case org.GraceEndsTS == 0:
			org.BillingStatus = models.StatusOverCapGrace
			org.GraceEndsTS = now.Add(c.GracePeriod).UnixNano()
			return c.decision(org, true)
		case now.UnixNano() > org.GraceEndsTS:
			org.BillingStatus = models.StatusOverCapBlocked
			return c.decision(org, false)
		default:
			org.BillingStatus = models.StatusOverCapGrace
			return c.decision(org, true)
		}
	}

	// rule 4: dropping back under cap restores the pre-over-cap state.
	if org.BillingStatus == models.StatusOverCapGrace || org.BillingStatus == models.StatusOverCapBlocked {
		org.GraceEndsTS = 0
		if org.ActiveSubscription {
			org.BillingStatus = models.StatusActive
			return c.decision(org, true)
		}
		org.BillingStatus = models.StatusTrialing
		return c.decision(org, true)
	}

	// rule 5: steady states.
	switch org.BillingStatus {
	case models.StatusTrialing, models.StatusActive, models.StatusOverCapGrace:
		return c.decision(org, true)
	default:
		return c.decision(org, false)
	}
}

func (c *Controller) decision(org *models.Organization, allowed bool) Decision {
	d := Decision{Allowed: allowed, State: org.BillingStatus}
	if !allowed {
		d.Reason = blockedReasons[org.BillingStatus]
	}
	if org.GraceEndsTS != 0 {
		t := time.Unix(0, org.GraceEndsTS)
		d.GraceEndsAt = &t
	}
	return d
}

// Admit loads the org, evaluates the state machine against the current
// eligible-member count, and persists any transition immediately.
// Storage failures while computing the verdict fail open: admission is
// a policy gate, not a financial ledger, and blocking legitimate
// traffic on an observability failure is the worse outcome.
func (c *Controller) Admit(orgID string, eligibleCount int) Decision {
	org, err := store.GetOrg(orgID)
	if err != nil {
		logger.Error("admission_load_failed_fail_open", "org", orgID, "err", err)
		return Decision{Allowed: true, State: models.StatusActive}
	}
	prevState := org.BillingStatus
	prevGrace := org.GraceEndsTS

	d := c.Evaluate(org, eligibleCount)

	if org.BillingStatus != prevState || org.GraceEndsTS != prevGrace {
		if err := store.SaveOrg(org); err != nil {
			// the verdict stands; only the persisted state is stale
			logger.Error("admission_persist_failed", "org", orgID, "err", err)
		}
	}
	telemetry.AdmissionDecisions.WithLabelValues(string(d.State), strconv.FormatBool(d.Allowed)).Inc()
	if !d.Allowed {
		logger.AuditEvent("write_blocked", "org", orgID, "state", string(d.State), "reason", d.Reason)
	}
	return d
}

// capRatio returns usage over cap; a non-positive cap means uncapped.
func capRatio(eligible, cap int) float64 {
	if cap <= 0 {
		return 0
	}
	return float64(eligible) / float64(cap)
}
