package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SubmitterHasher derives pseudonymous submitter identifiers. Keys are
// derived per scope (thread, topic, org) via HKDF from a single secret,
// so the same person hashes differently across threads and topics and
// cross-context correlation is impossible without the secret.
type SubmitterHasher struct {
	secret []byte
}

// NewSubmitterHasher requires at least 32 bytes of secret material.
func NewSubmitterHasher(secret []byte) (*SubmitterHasher, error) {
	if len(secret) < 32 {
		return nil, errors.New("hash secret must be at least 32 bytes")
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SubmitterHasher{secret: s}, nil
}

// ThreadHash returns the submitter's per-thread pseudonym.
func (h *SubmitterHasher) ThreadHash(orgID, threadID, submitterID string) string {
	return h.derive(orgID, "thread:"+threadID, submitterID)
}

// TopicHash returns the submitter's per-topic pseudonym, used by the
// one-submission-per-topic rule.
func (h *SubmitterHasher) TopicHash(orgID, topicID, submitterID string) string {
	return h.derive(orgID, "topic:"+topicID, submitterID)
}

// OrgHash returns the submitter's org-wide pseudonym, used by
// suggestion cooldowns and supporter sets.
func (h *SubmitterHasher) OrgHash(orgID, submitterID string) string {
	return h.derive(orgID, "org", submitterID)
}

func (h *SubmitterHasher) derive(orgID, info, submitterID string) string {
	kdf := hkdf.New(sha256.New, h.secret, []byte(orgID), []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		// HKDF over SHA-256 cannot fail for a 32-byte read
		panic(err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(submitterID))
	secureWipe(key)
	return hex.EncodeToString(mac.Sum(nil))
}
