package models

import "time"

// BillingStatus enumerates the admission-control states an organization
// can be in. Transitions are owned by pkg/admission; billing webhooks may
// set provider-sourced states directly (past_due, canceled, ...).
type BillingStatus string

const (
	StatusInstalledNoCheckout BillingStatus = "installed_no_checkout"
	StatusTrialing            BillingStatus = "trialing"
	StatusActive              BillingStatus = "active"
	StatusOverCapGrace        BillingStatus = "over_cap_grace"
	StatusOverCapBlocked      BillingStatus = "over_cap_blocked"
	StatusTrialExpiredUnpaid  BillingStatus = "trial_expired_unpaid"
	StatusPastDue             BillingStatus = "past_due"
	StatusCanceled            BillingStatus = "canceled"
	StatusUnpaid              BillingStatus = "unpaid"
	StatusIncomplete          BillingStatus = "incomplete"
	StatusPaused              BillingStatus = "paused"
)

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	// KThreshold is the org-wide k-anonymity policy. Threads inherit it at
	// creation time; it is floored at 5 (MinKThreshold).
	KThreshold int `json:"k_threshold"`

	SeatCap            int           `json:"seat_cap"`
	BillingStatus      BillingStatus `json:"billing_status"`
	ActiveSubscription bool          `json:"active_subscription"`
	TrialEndsTS        int64         `json:"trial_ends_ts,omitempty"`
	// GraceEndsTS is set while an over-cap grace window is running; zero
	// means no grace period is active.
	GraceEndsTS int64 `json:"grace_ends_ts,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// MinKThreshold is the floor for any org or thread k-anonymity policy.
const MinKThreshold = 5

// EffectiveKThreshold returns the org policy, floored.
func (o *Organization) EffectiveKThreshold() int {
	if o.KThreshold < MinKThreshold {
		return MinKThreshold
	}
	return o.KThreshold
}

// TrialExpired reports whether the trial window has passed at now.
func (o *Organization) TrialExpired(now time.Time) bool {
	return o.TrialEndsTS != 0 && now.UnixNano() > o.TrialEndsTS
}

// GraceActive reports whether a grace period is set and unexpired at now.
func (o *Organization) GraceActive(now time.Time) bool {
	return o.GraceEndsTS != 0 && now.UnixNano() <= o.GraceEndsTS
}
