package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"candorbox/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(t.TempDir()))
	t.Cleanup(func() { _ = Close() })
}

func TestOrgRoundTrip(t *testing.T) {
	openTestStore(t)

	org := &models.Organization{
		ID: "org-1", Name: "Acme", KThreshold: 7, SeatCap: 250,
		BillingStatus: models.StatusTrialing,
	}
	require.NoError(t, SaveOrg(org))
	require.NotZero(t, org.CreatedTS)

	got, err := GetOrg("org-1")
	require.NoError(t, err)
	require.Equal(t, org.Name, got.Name)
	require.Equal(t, org.KThreshold, got.KThreshold)
	require.Equal(t, models.StatusTrialing, got.BillingStatus)

	_, err = GetOrg("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInsertItemConflict(t *testing.T) {
	openTestStore(t)

	it := &models.FeedbackItem{
		ID: "item-1", ThreadID: "th-1", SubmitterHash: "hash-a",
	}
	require.NoError(t, InsertItem(it))

	dup := &models.FeedbackItem{
		ID: "item-2", ThreadID: "th-1", SubmitterHash: "hash-a",
	}
	require.ErrorIs(t, InsertItem(dup), ErrConflict)

	// the first write is what survives
	got, err := GetItem("th-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, "item-1", got.ID)

	// a different submitter in the same thread is fine
	require.NoError(t, InsertItem(&models.FeedbackItem{
		ID: "item-3", ThreadID: "th-1", SubmitterHash: "hash-b",
	}))
	items, err := ListItems("th-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestParticipantLedger(t *testing.T) {
	openTestStore(t)

	fresh, err := AddParticipant("th-1", "hash-a")
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = AddParticipant("th-1", "hash-a")
	require.NoError(t, err)
	require.False(t, fresh, "re-adding must not be an error, just not fresh")

	_, err = AddParticipant("th-1", "hash-b")
	require.NoError(t, err)

	n, err := CountParticipants("th-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// counts are per thread
	n, err = CountParticipants("th-2")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestTopicSubmitterIndex(t *testing.T) {
	openTestStore(t)

	seen, err := HasTopicSubmitter("topic-1", "hash-a")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, MarkTopicSubmitter("topic-1", "hash-a"))

	seen, err = HasTopicSubmitter("topic-1", "hash-a")
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = HasTopicSubmitter("topic-2", "hash-a")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestThreadTopicIndex(t *testing.T) {
	openTestStore(t)

	for _, id := range []string{"th-1", "th-2"} {
		require.NoError(t, SaveThread(&models.FeedbackThread{
			ID: id, TopicID: "topic-1", OrgID: "org-1", KThreshold: 5,
			Status: models.ThreadCollecting,
		}))
	}
	require.NoError(t, SaveThread(&models.FeedbackThread{
		ID: "th-3", TopicID: "topic-2", OrgID: "org-1", KThreshold: 5,
		Status: models.ThreadCollecting,
	}))

	ids, err := ListTopicThreads("topic-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"th-1", "th-2"}, ids)
}

func TestSyncMembersReplaces(t *testing.T) {
	openTestStore(t)

	n, err := SyncMembers("org-1", []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	count, err := CountMembers("org-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// a later sync is a full replacement, not a merge
	n, err = SyncMembers("org-1", []string{"u2", "u4"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	count, err = CountMembers("org-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// duplicates in the roster collapse
	n, err = SyncMembers("org-1", []string{"u5", "u5", "u6"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMemberAddRemove(t *testing.T) {
	openTestStore(t)

	require.NoError(t, AddMember("org-1", "u1"))
	require.NoError(t, AddMember("org-1", "u2"))
	require.NoError(t, RemoveMember("org-1", "u1"))
	// removing an absent member is not an error
	require.NoError(t, RemoveMember("org-1", "ghost"))

	count, err := CountMembers("org-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSuggestionNormIndex(t *testing.T) {
	openTestStore(t)

	s := &models.TopicSuggestion{
		ID: "sug-1", OrgID: "org-1", Title: "Remote Work Policy",
		NormalizedTitle: "remote work policy",
		Status:          models.SuggestionPending,
		Supporters:      []string{"hash-a"},
	}
	require.NoError(t, SaveSuggestion(s))

	got, err := GetSuggestionByNorm("org-1", "remote work policy")
	require.NoError(t, err)
	require.Equal(t, "sug-1", got.ID)

	_, err = GetSuggestionByNorm("org-1", "something else")
	require.ErrorIs(t, err, ErrNotFound)

	// norm index is org-scoped
	_, err = GetSuggestionByNorm("org-2", "remote work policy")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSuggestionsStatusFilter(t *testing.T) {
	openTestStore(t)

	for i, st := range []models.SuggestionStatus{
		models.SuggestionPending, models.SuggestionApproved, models.SuggestionPending,
	} {
		require.NoError(t, SaveSuggestion(&models.TopicSuggestion{
			ID: "sug-" + string(rune('a'+i)), OrgID: "org-1",
			Title: "t", NormalizedTitle: "t" + string(rune('a'+i)), Status: st,
		}))
	}

	pending, err := CountPendingSuggestions("org-1")
	require.NoError(t, err)
	require.Equal(t, 2, pending)

	all, err := ListSuggestions("org-1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestLastSuggestionTS(t *testing.T) {
	openTestStore(t)

	ts, err := LastSuggestionTS("org-1", "hash-a")
	require.NoError(t, err)
	require.Zero(t, ts)

	require.NoError(t, SetLastSuggestionTS("org-1", "hash-a", 12345))
	ts, err = LastSuggestionTS("org-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, int64(12345), ts)
}

func TestRecordWebhookEvent(t *testing.T) {
	openTestStore(t)

	fresh, err := RecordWebhookEvent(&models.WebhookEvent{ID: "evt-1", Type: "subscription.updated"})
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = RecordWebhookEvent(&models.WebhookEvent{ID: "evt-1", Type: "subscription.updated"})
	require.NoError(t, err)
	require.False(t, fresh, "replayed id must not read as fresh")

	fresh, err = RecordWebhookEvent(&models.WebhookEvent{ID: "evt-2", Type: "subscription.updated"})
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestReadyLifecycle(t *testing.T) {
	require.NoError(t, Open(t.TempDir()))
	require.True(t, Ready())

	require.NoError(t, Close())
	require.False(t, Ready())

	_, err := GetOrg("org-1")
	require.Error(t, err, "reads after close must fail, not panic")
}
