package security

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	"github.com/hashicorp/go-kms-wrapping/v2/aead"
)

// ErrMasterKeyMissing means no master key material is configured. This
// is a fatal misconfiguration; callers must fail closed rather than
// skip encryption.
var ErrMasterKeyMissing = errors.New("master key not configured")

// ErrNoNextKey is returned when rotation is requested but no newer
// master-key version is configured.
var ErrNoNextKey = errors.New("no newer master key configured for rotation")

type ringEntry struct {
	version string
	wrapper wrapping.Wrapper
}

// KeyRing holds versioned master keys, oldest first. Key selection is an
// explicit parameter everywhere; rotation never mutates process-wide
// configuration.
type KeyRing struct {
	entries []ringEntry
}

// NewKeyRing builds a ring from (version, hex key) pairs, oldest first.
// Every key must be 32 bytes of hex.
func NewKeyRing(ctx context.Context, keys [][2]string) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, ErrMasterKeyMissing
	}
	r := &KeyRing{}
	seen := map[string]struct{}{}
	for _, kv := range keys {
		version, hexKey := kv[0], kv[1]
		if version == "" {
			return nil, errors.New("keyring entry missing version")
		}
		if _, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate keyring version %q", version)
		}
		seen[version] = struct{}{}
		raw, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("keyring version %q: invalid hex: %w", version, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("keyring version %q: master key must be 32 bytes (AES-256)", version)
		}
		w := aead.NewWrapper()
		// The hashicorp AEAD wrapper expects a base64-encoded key.
		if _, err := w.SetConfig(ctx, wrapping.WithConfigMap(map[string]string{
			"key": base64.StdEncoding.EncodeToString(raw),
		})); err != nil {
			return nil, fmt.Errorf("keyring version %q: %w", version, err)
		}
		secureWipe(raw)
		r.entries = append(r.entries, ringEntry{version: version, wrapper: w})
	}
	return r, nil
}

// ActiveVersion returns the newest configured master-key version.
func (r *KeyRing) ActiveVersion() string {
	return r.entries[len(r.entries)-1].version
}

// HasNewerThan reports whether a version newer than v is configured.
func (r *KeyRing) HasNewerThan(v string) bool {
	for i, e := range r.entries {
		if e.version == v {
			return i < len(r.entries)-1
		}
	}
	return false
}

func (r *KeyRing) wrapperFor(version string) (wrapping.Wrapper, error) {
	for _, e := range r.entries {
		if e.version == version {
			return e.wrapper, nil
		}
	}
	return nil, fmt.Errorf("master key version %q not in ring", version)
}

// Wrap seals raw DEK bytes under the named master-key version with
// aad = orgID, returning the marshaled wrapping blob (nonce and
// ciphertext travel inside as one opaque value).
func (r *KeyRing) Wrap(ctx context.Context, version, orgID string, dek []byte) ([]byte, error) {
	w, err := r.wrapperFor(version)
	if err != nil {
		return nil, err
	}
	blob, err := w.Encrypt(ctx, dek, wrapping.WithAad([]byte(orgID)))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap DEK: %w", err)
	}
	return json.Marshal(blob)
}

// Unwrap opens a wrapped DEK blob under the named master-key version.
func (r *KeyRing) Unwrap(ctx context.Context, version, orgID string, wrapped []byte) ([]byte, error) {
	w, err := r.wrapperFor(version)
	if err != nil {
		return nil, err
	}
	var blob wrapping.BlobInfo
	if err := json.Unmarshal(wrapped, &blob); err != nil {
		return nil, fmt.Errorf("invalid wrapped DEK blob: %w", err)
	}
	dek, err := w.Decrypt(ctx, &blob, wrapping.WithAad([]byte(orgID)))
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap DEK: %w", err)
	}
	return dek, nil
}
