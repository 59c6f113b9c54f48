package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"candorbox/pkg/models"
)

// SaveTopic persists a topic row.
func SaveTopic(t *models.Topic) error {
	if t.CreatedTS == 0 {
		t.CreatedTS = time.Now().UTC().UnixNano()
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal topic: %w", err)
	}
	return set(topicKey(t.ID), b)
}

// GetTopic loads a topic by id.
func GetTopic(id string) (*models.Topic, error) {
	b, err := get(topicKey(id))
	if err != nil {
		return nil, err
	}
	var t models.Topic
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("invalid topic row %s: %w", id, err)
	}
	return &t, nil
}

// SaveThread persists a thread row and its topic index entry.
func SaveThread(th *models.FeedbackThread) error {
	if th.CreatedTS == 0 {
		th.CreatedTS = time.Now().UTC().UnixNano()
	}
	b, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := set(threadKey(th.ID), b); err != nil {
		return err
	}
	return set(threadIdxKey(th.TopicID, th.ID), []byte(th.ID))
}

// GetThread loads a thread by id.
func GetThread(id string) (*models.FeedbackThread, error) {
	b, err := get(threadKey(id))
	if err != nil {
		return nil, err
	}
	var th models.FeedbackThread
	if err := json.Unmarshal(b, &th); err != nil {
		return nil, fmt.Errorf("invalid thread row %s: %w", id, err)
	}
	return &th, nil
}

// ListTopicThreads returns the ids of all threads under a topic.
func ListTopicThreads(topicID string) ([]string, error) {
	var ids []string
	err := scanPrefix(threadIdxPrefix(topicID), func(key string, val []byte) error {
		ids = append(ids, string(val))
		return nil
	})
	return ids, err
}

// ThreadLock serializes submission writes for one thread.
func ThreadLock(threadID string) interface{ Lock(); Unlock() } {
	return lockScope("thread:" + threadID)
}

// InsertItem writes a feedback item under its (thread, submitter) key,
// failing with ErrConflict when that submitter already has an item in
// the thread. The caller must hold ThreadLock for the item's thread.
func InsertItem(it *models.FeedbackItem) error {
	if it.CreatedTS == 0 {
		it.CreatedTS = time.Now().UTC().UnixNano()
	}
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	return insertIfAbsent(itemKey(it.ThreadID, it.SubmitterHash), b)
}

// GetItem loads one submitter's item in a thread.
func GetItem(threadID, submitterHash string) (*models.FeedbackItem, error) {
	b, err := get(itemKey(threadID, submitterHash))
	if err != nil {
		return nil, err
	}
	var it models.FeedbackItem
	if err := json.Unmarshal(b, &it); err != nil {
		return nil, fmt.Errorf("invalid item row: %w", err)
	}
	return &it, nil
}

// ListItems returns all items in a thread.
func ListItems(threadID string) ([]models.FeedbackItem, error) {
	var out []models.FeedbackItem
	err := scanPrefix(itemPrefix(threadID), func(key string, val []byte) error {
		var it models.FeedbackItem
		if err := json.Unmarshal(val, &it); err != nil {
			return fmt.Errorf("invalid item row %s: %w", key, err)
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

// AddParticipant records a distinct submitter in the thread's
// participation ledger. Returns true when the entry is new.
func AddParticipant(threadID, submitterHash string) (bool, error) {
	err := insertIfAbsent(threadSubKey(threadID, submitterHash), []byte("1"))
	if err == ErrConflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountParticipants returns the distinct-submitter cardinality for a
// thread, recomputed from the ledger index every time.
func CountParticipants(threadID string) (int, error) {
	return countPrefix(threadSubPrefix(threadID))
}

// HasTopicSubmitter reports whether the submitter already contributed to
// any thread of the topic.
func HasTopicSubmitter(topicID, submitterHash string) (bool, error) {
	_, err := get(topicSubKey(topicID, submitterHash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// MarkTopicSubmitter records a submitter against the topic.
func MarkTopicSubmitter(topicID, submitterHash string) error {
	return set(topicSubKey(topicID, submitterHash), []byte("1"))
}
