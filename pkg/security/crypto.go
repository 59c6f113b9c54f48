package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"candorbox/pkg/logger"
	"candorbox/pkg/telemetry"
)

// Fields carries the free-text parts of one feedback item. All present
// fields travel together: they are packed into a single payload and
// sealed in exactly one AEAD call with one nonce. Encrypting fields
// separately under related nonces is how the previous format reused
// nonces across plaintexts; the packed payload is the fix, not an
// optimization.
type Fields struct {
	Content  *string `json:"content,omitempty"`
	Behavior *string `json:"behavior,omitempty"`
	Impact   *string `json:"impact,omitempty"`
}

// Sealed is the encrypted form of a Fields payload.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	// AADHash is SHA-256 hex of the AAD string used at encryption time.
	// Stored for audit and debugging, never consulted for enforcement.
	AADHash string
}

// FeedbackCrypto composes the key store, DEK cache, and AEAD codec to
// seal and open feedback payloads per organization.
type FeedbackCrypto struct {
	keys  *KeyStore
	cache *DEKCache
}

func NewFeedbackCrypto(keys *KeyStore, cache *DEKCache) *FeedbackCrypto {
	return &FeedbackCrypto{keys: keys, cache: cache}
}

// EncryptFields seals all present fields as one payload under the org's
// DEK with aad = orgID|threadID. Provisions the DEK lazily on first use.
func (f *FeedbackCrypto) EncryptFields(ctx context.Context, orgID, threadID string, fields Fields) (*Sealed, error) {
	if err := f.keys.EnsureDEK(ctx, orgID); err != nil {
		return nil, err
	}
	dek, err := f.cache.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	aad := ContextAAD(orgID, threadID)
	ct, nonce, err := Encrypt(dek, payload, aad)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(aad)
	return &Sealed{Ciphertext: ct, Nonce: nonce, AADHash: hex.EncodeToString(sum[:])}, nil
}

// DecryptFields opens a sealed payload. Rows written before the
// encryption rollout carry no ciphertext and no nonce; those return
// zero Fields with no error, and that is the only legitimate nulls
// path. An authentication failure on a row that does carry ciphertext
// is a security-relevant event: it is audited and counted, and the
// caller still receives zero Fields so legacy read paths keep working.
// Monitoring paths that need the hard error use DecryptFieldsStrict.
func (f *FeedbackCrypto) DecryptFields(ctx context.Context, orgID, threadID string, ciphertext, nonce []byte) (Fields, error) {
	fields, err := f.DecryptFieldsStrict(ctx, orgID, threadID, ciphertext, nonce)
	if errors.Is(err, ErrAuthentication) {
		logger.AuditEvent("feedback_decrypt_auth_failed", "org", orgID, "thread", threadID)
		telemetry.DecryptAuthFailures.Inc()
		return Fields{}, nil
	}
	if err != nil {
		return Fields{}, err
	}
	return fields, nil
}

// DecryptFieldsStrict opens a sealed payload and surfaces every
// failure, including ErrAuthentication on tampered rows.
func (f *FeedbackCrypto) DecryptFieldsStrict(ctx context.Context, orgID, threadID string, ciphertext, nonce []byte) (Fields, error) {
	if len(ciphertext) == 0 && len(nonce) == 0 {
		// never encrypted
		return Fields{}, nil
	}
	dek, err := f.cache.Get(ctx, orgID)
	if err != nil {
		return Fields{}, err
	}
	payload, err := Decrypt(dek, ciphertext, nonce, ContextAAD(orgID, threadID))
	if err != nil {
		return Fields{}, err
	}
	var fields Fields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Fields{}, fmt.Errorf("invalid decrypted payload: %w", err)
	}
	return fields, nil
}
