package models

// ThreadStatus is the k-anonymity collection state of a feedback thread.
// The only transition is collecting -> ready and it never reverts.
type ThreadStatus string

const (
	ThreadCollecting ThreadStatus = "collecting"
	ThreadReady      ThreadStatus = "ready"
)

// ModerationStatus is independent of the k-anonymity state.
type ModerationStatus string

const (
	ModerationVisible ModerationStatus = "visible"
	ModerationHidden  ModerationStatus = "hidden"
)

// Topic is a feedback subject owned by one member of the organization.
// Ownership matters: owners may not submit into their own anonymity pool.
type Topic struct {
	ID        string `json:"id"`
	OrgID     string `json:"org"`
	OwnerID   string `json:"owner"`
	Title     string `json:"title,omitempty"`
	CreatedTS int64  `json:"created_ts,omitempty"`
}

type FeedbackThread struct {
	ID      string `json:"id"`
	OrgID   string `json:"org"`
	TopicID string `json:"topic"`

	// KThreshold is fixed at creation and never mutated afterwards.
	KThreshold int              `json:"k_threshold"`
	Status     ThreadStatus     `json:"status"`
	Moderation ModerationStatus `json:"moderation,omitempty"`

	// ParticipantCount is a cached copy of the distinct-submitter
	// cardinality. The authoritative value is always recomputed from the
	// participation index; this field exists for display only.
	ParticipantCount int `json:"participant_count,omitempty"`

	CreatedTS  int64 `json:"created_ts,omitempty"`
	PromotedTS int64 `json:"promoted_ts,omitempty"`
}

// FeedbackItem is a single person's encrypted submission. The storage key
// is (thread, submitter hash) so the one-item-per-submitter invariant is a
// property of the store, not just of handler logic.
type FeedbackItem struct {
	ID            string `json:"id"`
	OrgID         string `json:"org"`
	TopicID       string `json:"topic"`
	ThreadID      string `json:"thread"`
	SubmitterHash string `json:"submitter_hash"`

	// Ciphertext and Nonce are empty on rows written before encryption was
	// rolled out; presence of ciphertext is the encryption marker.
	Ciphertext []byte `json:"ciphertext,omitempty"`
	Nonce      []byte `json:"nonce,omitempty"`
	// AADHash records SHA-256 of the AAD string used at encryption time.
	// Audit/debug only, never consulted for enforcement.
	AADHash string `json:"aad_hash,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
}

// SuggestionStatus tracks moderation of proposed topics.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

type TopicSuggestion struct {
	ID              string           `json:"id"`
	OrgID           string           `json:"org"`
	Title           string           `json:"title"`
	NormalizedTitle string           `json:"normalized_title"`
	Status          SuggestionStatus `json:"status"`
	// Supporters holds submitter hashes; a near-duplicate suggestion adds
	// a supporter here instead of creating a second row.
	Supporters []string `json:"supporters,omitempty"`
	CreatedTS  int64    `json:"created_ts,omitempty"`
	UpdatedTS  int64    `json:"updated_ts,omitempty"`
}

// SupporterCount returns the number of distinct supporters.
func (s *TopicSuggestion) SupporterCount() int { return len(s.Supporters) }

// HasSupporter reports whether the submitter hash is already recorded.
func (s *TopicSuggestion) HasSupporter(hash string) bool {
	for _, h := range s.Supporters {
		if h == hash {
			return true
		}
	}
	return false
}

// WebhookEvent records a processed payment-provider event id so that
// at-least-once delivery cannot apply the same side effects twice.
type WebhookEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	ProcessedTS int64  `json:"processed_ts"`
}
