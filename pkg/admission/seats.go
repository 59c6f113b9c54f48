package admission

import (
	"math"
	"time"

	"candorbox/pkg/models"
)

// SeatStatusLevel is the coarse seat-usage banding shown to admins.
type SeatStatusLevel string

const (
	SeatOK      SeatStatusLevel = "ok"
	SeatWarning SeatStatusLevel = "warning"
	SeatGrace   SeatStatusLevel = "grace"
	SeatBlocked SeatStatusLevel = "blocked"
)

// warningRatio is where the UI starts nudging before the cap is hit.
const warningRatio = 0.90

// SeatStatus is the read-only capacity summary consumed by the UI and
// notification surfaces.
type SeatStatus struct {
	EligibleCount int             `json:"eligible_count"`
	SeatCap       int             `json:"seat_cap"`
	Percentage    float64         `json:"percentage"`
	Status        SeatStatusLevel `json:"status"`
	GraceEndsAt   *time.Time      `json:"grace_ends_at,omitempty"`
}

// SeatStatusFor derives the seat summary from the org's current billing
// fields and the live eligible-member count. Read-only: the state
// machine is not advanced and nothing is persisted.
func (c *Controller) SeatStatusFor(org *models.Organization, eligibleCount int) SeatStatus {
	ratio := capRatio(eligibleCount, org.SeatCap)
	st := SeatStatus{
		EligibleCount: eligibleCount,
		SeatCap:       org.SeatCap,
		Percentage:    math.Round(ratio*1000) / 10,
	}
	if org.GraceEndsTS != 0 {
		t := time.Unix(0, org.GraceEndsTS)
		st.GraceEndsAt = &t
	}

	now := c.now()
	switch {
	case org.BillingStatus == models.StatusOverCapBlocked || ratio > overCapBlockRatio:
		st.Status = SeatBlocked
	case ratio > 1.0 && org.GraceEndsTS != 0 && now.UnixNano() > org.GraceEndsTS:
		st.Status = SeatBlocked
	case ratio > 1.0:
		st.Status = SeatGrace
	case ratio >= warningRatio:
		st.Status = SeatWarning
	default:
		st.Status = SeatOK
	}
	return st
}
