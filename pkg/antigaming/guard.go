// Package antigaming enforces the invariants that keep the k-anonymity
// guarantee honest: nobody seeds their own anonymity pool, nobody
// counts twice, and the suggestion pipeline cannot be flooded or
// duplicated into a correlation channel.
package antigaming

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"candorbox/pkg/models"
	"candorbox/pkg/store"
)

var (
	// ErrSelfSubmission: topic owners may not submit to their own topic.
	ErrSelfSubmission = errors.New("you cannot submit feedback to your own topic")
	// ErrAlreadySubmitted: one submission per person per topic, across
	// all of the topic's threads.
	ErrAlreadySubmitted = errors.New("you have already submitted feedback to this topic")
	// ErrSuggestionCooldown: one suggestion per submitter per window.
	ErrSuggestionCooldown = errors.New("you can suggest another topic tomorrow")
	// ErrTooManyPending: org-wide cap on unreviewed suggestions.
	ErrTooManyPending = errors.New("too many pending suggestions; ask an admin to review the queue")
)

// Guard carries the anti-gaming policy knobs. Construct once at startup.
type Guard struct {
	SuggestionCooldown time.Duration
	MaxPending         int
	DuplicateWindow    time.Duration

	now func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGuard builds a guard; a nil now func defaults to time.Now.
func NewGuard(cooldown time.Duration, maxPending int, duplicateWindow time.Duration, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	if maxPending <= 0 {
		maxPending = 50
	}
	if duplicateWindow <= 0 {
		duplicateWindow = 90 * 24 * time.Hour
	}
	return &Guard{
		SuggestionCooldown: cooldown,
		MaxPending:         maxPending,
		DuplicateWindow:    duplicateWindow,
		now:                now,
		limiters:           make(map[string]*rate.Limiter),
	}
}

// CheckSelfSubmission rejects a submission by the topic's owner.
func (g *Guard) CheckSelfSubmission(topic *models.Topic, submitterID string) error {
	if topic.OwnerID == submitterID {
		return ErrSelfSubmission
	}
	return nil
}

// CheckDuplicateSubmission rejects a second submission to the same
// topic by the same person, whichever thread it targets. This is the
// application-level check; the storage layer's (thread, submitter) key
// is the uniqueness constraint behind it, so a race between two
// concurrent first submissions still ends with exactly one item.
func (g *Guard) CheckDuplicateSubmission(topicID, topicHash string) error {
	seen, err := store.HasTopicSubmitter(topicID, topicHash)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if seen {
		return ErrAlreadySubmitted
	}
	return nil
}

// suggestionLimiter returns the in-memory rate limiter for one
// submitter: one token per cooldown window, burst 1. The persisted
// last-suggestion timestamp stays authoritative across restarts; the
// limiter is the cheap first line.
func (g *Guard) suggestionLimiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(g.SuggestionCooldown), 1)
	g.limiters[key] = l
	return l
}

// CheckSuggestionCooldown enforces the per-submitter suggestion window.
func (g *Guard) CheckSuggestionCooldown(orgID, supporterHash string) error {
	last, err := store.LastSuggestionTS(orgID, supporterHash)
	if err != nil {
		return fmt.Errorf("cooldown check failed: %w", err)
	}
	if last != 0 && g.now().Sub(time.Unix(0, last)) < g.SuggestionCooldown {
		return ErrSuggestionCooldown
	}
	if !g.suggestionLimiter(orgID+":"+supporterHash).Allow() {
		return ErrSuggestionCooldown
	}
	return nil
}
