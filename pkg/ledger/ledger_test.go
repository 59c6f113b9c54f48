package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"candorbox/pkg/models"
	"candorbox/pkg/store"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
}

func newCollectingThread(t *testing.T, id string, k int) *models.FeedbackThread {
	t.Helper()
	th := &models.FeedbackThread{
		ID:         id,
		OrgID:      "org-1",
		TopicID:    "topic-1",
		KThreshold: k,
		Status:     models.ThreadCollecting,
	}
	require.NoError(t, store.SaveThread(th))
	return th
}

func TestRecordSubmissionDistinctCount(t *testing.T) {
	openTestStore(t)
	newCollectingThread(t, "th-1", 5)

	n, err := RecordSubmission("th-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = RecordSubmission("th-1", "hash-b")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// same submitter again does not move the count
	n, err = RecordSubmission("th-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMaybePromoteAtThreshold(t *testing.T) {
	openTestStore(t)
	th := newCollectingThread(t, "th-1", 5)

	for i := 0; i < 4; i++ {
		_, err := RecordSubmission("th-1", fmt.Sprintf("hash-%d", i))
		require.NoError(t, err)

		promoted, err := MaybePromote(th)
		require.NoError(t, err)
		require.False(t, promoted, "must not promote below threshold")
		require.Equal(t, models.ThreadCollecting, th.Status)
	}

	_, err := RecordSubmission("th-1", "hash-4")
	require.NoError(t, err)

	promoted, err := MaybePromote(th)
	require.NoError(t, err)
	require.True(t, promoted)
	require.Equal(t, models.ThreadReady, th.Status)
	require.Equal(t, 5, th.ParticipantCount)
	require.NotZero(t, th.PromotedTS)

	// the transition persists
	stored, err := store.GetThread("th-1")
	require.NoError(t, err)
	require.Equal(t, models.ThreadReady, stored.Status)
}

func TestMaybePromoteMonotonic(t *testing.T) {
	openTestStore(t)
	th := newCollectingThread(t, "th-1", 2)

	for _, h := range []string{"hash-a", "hash-b"} {
		_, err := RecordSubmission("th-1", h)
		require.NoError(t, err)
	}
	promoted, err := MaybePromote(th)
	require.NoError(t, err)
	require.True(t, promoted)
	firstTS := th.PromotedTS

	// a second call on a ready thread is a no-op
	promoted, err = MaybePromote(th)
	require.NoError(t, err)
	require.False(t, promoted)
	require.Equal(t, models.ThreadReady, th.Status)
	require.Equal(t, firstTS, th.PromotedTS)
}

func TestMaybePromoteDuplicatesDontCount(t *testing.T) {
	openTestStore(t)
	th := newCollectingThread(t, "th-1", 3)

	// three submissions from only two distinct people
	for _, h := range []string{"hash-a", "hash-b", "hash-a"} {
		_, err := RecordSubmission("th-1", h)
		require.NoError(t, err)
	}

	promoted, err := MaybePromote(th)
	require.NoError(t, err)
	require.False(t, promoted)
	require.Equal(t, models.ThreadCollecting, th.Status)
	require.Equal(t, 2, th.ParticipantCount)
}

func TestIsVisible(t *testing.T) {
	openTestStore(t)
	th := newCollectingThread(t, "th-1", 3)

	visible, err := IsVisible(th)
	require.NoError(t, err)
	require.False(t, visible)

	for _, h := range []string{"hash-a", "hash-b"} {
		_, err := RecordSubmission("th-1", h)
		require.NoError(t, err)
	}
	visible, err = IsVisible(th)
	require.NoError(t, err)
	require.False(t, visible, "two of three participants is still hidden")

	_, err = RecordSubmission("th-1", "hash-c")
	require.NoError(t, err)
	visible, err = IsVisible(th)
	require.NoError(t, err)
	require.True(t, visible)
}
