package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"candorbox/pkg/models"
)

// SaveSuggestion persists a suggestion row and its normalized-title
// index entry.
func SaveSuggestion(s *models.TopicSuggestion) error {
	s.UpdatedTS = time.Now().UTC().UnixNano()
	if s.CreatedTS == 0 {
		s.CreatedTS = s.UpdatedTS
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	if err := set(suggestionKey(s.OrgID, s.ID), b); err != nil {
		return err
	}
	return set(suggNormKey(s.OrgID, s.NormalizedTitle), []byte(s.ID))
}

// GetSuggestion loads a suggestion by org and id.
func GetSuggestion(orgID, id string) (*models.TopicSuggestion, error) {
	b, err := get(suggestionKey(orgID, id))
	if err != nil {
		return nil, err
	}
	var s models.TopicSuggestion
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("invalid suggestion row: %w", err)
	}
	return &s, nil
}

// GetSuggestionByNorm resolves a normalized title to its suggestion row,
// ErrNotFound when no suggestion carries that title.
func GetSuggestionByNorm(orgID, norm string) (*models.TopicSuggestion, error) {
	idb, err := get(suggNormKey(orgID, norm))
	if err != nil {
		return nil, err
	}
	return GetSuggestion(orgID, string(idb))
}

// ListSuggestions returns all suggestions for an org, optionally
// filtered by status ("" matches all).
func ListSuggestions(orgID string, status models.SuggestionStatus) ([]models.TopicSuggestion, error) {
	var out []models.TopicSuggestion
	err := scanPrefix(suggestionPrefix(orgID), func(key string, val []byte) error {
		var s models.TopicSuggestion
		if err := json.Unmarshal(val, &s); err != nil {
			return fmt.Errorf("invalid suggestion row %s: %w", key, err)
		}
		if status == "" || s.Status == status {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// CountPendingSuggestions returns how many suggestions are pending for
// an org.
func CountPendingSuggestions(orgID string) (int, error) {
	pending, err := ListSuggestions(orgID, models.SuggestionPending)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// SuggestionLock serializes suggestion writes for one org so dedup
// checks and inserts cannot interleave.
func SuggestionLock(orgID string) interface{ Lock(); Unlock() } {
	return lockScope("suggestion:" + orgID)
}

// LastSuggestionTS returns the unix-nano timestamp of the submitter's
// most recent suggestion, zero when none exists.
func LastSuggestionTS(orgID, submitterHash string) (int64, error) {
	b, err := get(suggLastKey(orgID, submitterHash))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	ts, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid suggestion timestamp: %w", err)
	}
	return ts, nil
}

// SetLastSuggestionTS records the submitter's most recent suggestion time.
func SetLastSuggestionTS(orgID, submitterHash string, ts int64) error {
	return set(suggLastKey(orgID, submitterHash), []byte(strconv.FormatInt(ts, 10)))
}

// RecordWebhookEvent inserts a processed billing event id. Returns true
// when the id is fresh; false means the event was already processed and
// its side effects must be skipped.
func RecordWebhookEvent(ev *models.WebhookEvent) (bool, error) {
	if ev.ProcessedTS == 0 {
		ev.ProcessedTS = time.Now().UTC().UnixNano()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("failed to marshal webhook event: %w", err)
	}
	lock := lockScope("whevent")
	lock.Lock()
	defer lock.Unlock()
	err = insertIfAbsent(webhookEventKey(ev.ID), b)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
