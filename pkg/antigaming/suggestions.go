package antigaming

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
)

// NormalizeTitle canonicalizes a suggestion title for duplicate
// detection: lowercase, punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Suggest runs the full suggestion pipeline for one org: cooldown,
// pending cap, and near-duplicate merge. A title whose normalized form
// matches a pending or approved suggestion from the duplicate window
// becomes a supporter addition on the existing row; merged reports
// which path was taken.
func (g *Guard) Suggest(orgID, title, supporterHash string) (s *models.TopicSuggestion, merged bool, err error) {
	if err := g.CheckSuggestionCooldown(orgID, supporterHash); err != nil {
		return nil, false, err
	}

	norm := NormalizeTitle(title)
	if norm == "" {
		return nil, false, fmt.Errorf("suggestion title is empty after normalization")
	}

	lock := store.SuggestionLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	now := g.now()

	existing, err := store.GetSuggestionByNorm(orgID, norm)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil && g.mergeable(existing, now) {
		if !existing.HasSupporter(supporterHash) {
			existing.Supporters = append(existing.Supporters, supporterHash)
			if err := store.SaveSuggestion(existing); err != nil {
				return nil, false, err
			}
		}
		if err := store.SetLastSuggestionTS(orgID, supporterHash, now.UnixNano()); err != nil {
			return nil, false, err
		}
		logger.Info("suggestion_merged", "org", orgID, "suggestion", existing.ID, "supporters", existing.SupporterCount())
		return existing, true, nil
	}

	pending, err := store.CountPendingSuggestions(orgID)
	if err != nil {
		return nil, false, err
	}
	if pending >= g.MaxPending {
		return nil, false, ErrTooManyPending
	}

	s = &models.TopicSuggestion{
		ID:              uuid.NewString(),
		OrgID:           orgID,
		Title:           strings.TrimSpace(title),
		NormalizedTitle: norm,
		Status:          models.SuggestionPending,
		Supporters:      []string{supporterHash},
		CreatedTS:       now.UnixNano(),
	}
	if err := store.SaveSuggestion(s); err != nil {
		return nil, false, err
	}
	if err := store.SetLastSuggestionTS(orgID, supporterHash, now.UnixNano()); err != nil {
		return nil, false, err
	}
	logger.Info("suggestion_created", "org", orgID, "suggestion", s.ID)
	return s, false, nil
}

// mergeable reports whether a new suggestion with the same normalized
// title folds into this row: pending or approved, and created inside
// the rolling duplicate window.
func (g *Guard) mergeable(s *models.TopicSuggestion, now time.Time) bool {
	if s.Status != models.SuggestionPending && s.Status != models.SuggestionApproved {
		return false
	}
	return now.Sub(time.Unix(0, s.CreatedTS)) <= g.DuplicateWindow
}
