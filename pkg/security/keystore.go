package security

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"candorbox/pkg/logger"
	"candorbox/pkg/models"
	"candorbox/pkg/store"
)

// ErrOrgKeyMissing means LoadDEK was called for an org that was never
// provisioned via EnsureDEK.
var ErrOrgKeyMissing = errors.New("org key missing")

// KeyStore manages the single wrapped DEK per organization: lazy
// provisioning, unwrap on load, and rewrap-based rotation.
type KeyStore struct {
	ring *KeyRing
	// invalidate is called with the org id after a successful rotation
	// so any cached unwrapped DEK is dropped synchronously.
	invalidate func(orgID string)
}

func NewKeyStore(ring *KeyRing) *KeyStore {
	return &KeyStore{ring: ring, invalidate: func(string) {}}
}

// OnInvalidate registers the cache-invalidation hook used by RotateDEK.
func (s *KeyStore) OnInvalidate(fn func(orgID string)) {
	if fn != nil {
		s.invalidate = fn
	}
}

// EnsureDEK provisions a wrapped DEK for the org if none exists yet.
// Idempotent: concurrent calls for the same org serialize on the org
// key lock and at most one row is ever created.
func (s *KeyStore) EnsureDEK(ctx context.Context, orgID string) error {
	lock := store.OrgKeyLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := store.GetOrgKey(orgID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	dek := make([]byte, 32)
	if _, err := rand.Read(dek); err != nil {
		return fmt.Errorf("failed to generate DEK: %w", err)
	}
	defer secureWipe(dek)

	version := s.ring.ActiveVersion()
	wrapped, err := s.ring.Wrap(ctx, version, orgID, dek)
	if err != nil {
		return err
	}
	err = store.InsertOrgKey(&models.OrgKey{
		OrgID:      orgID,
		Wrapped:    wrapped,
		KekVersion: version,
		CreatedTS:  time.Now().UTC().UnixNano(),
	})
	if errors.Is(err, store.ErrConflict) {
		// lost a race inside the lock window; the existing row wins
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("org_dek_provisioned", "org", orgID, "kek_version", version)
	return nil
}

// LoadDEK unwraps and returns the org's DEK. The caller owns the
// returned bytes and should wipe them when done.
func (s *KeyStore) LoadDEK(ctx context.Context, orgID string) ([]byte, error) {
	row, err := store.GetOrgKey(orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: org %s", ErrOrgKeyMissing, orgID)
		}
		return nil, err
	}
	return s.ring.Unwrap(ctx, row.KekVersion, orgID, row.Wrapped)
}

// RotateDEK rewraps the org's DEK under the newest master key. The
// unwrapped DEK bytes are preserved exactly; only the wrapping changes.
// Fails before touching any row when no newer master key is configured.
// Single-flight per org via the org key lock.
func (s *KeyStore) RotateDEK(ctx context.Context, orgID string) error {
	lock := store.OrgKeyLock(orgID)
	lock.Lock()
	defer lock.Unlock()

	row, err := store.GetOrgKey(orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: org %s", ErrOrgKeyMissing, orgID)
		}
		return err
	}
	if !s.ring.HasNewerThan(row.KekVersion) {
		return ErrNoNextKey
	}

	dek, err := s.ring.Unwrap(ctx, row.KekVersion, orgID, row.Wrapped)
	if err != nil {
		return fmt.Errorf("rotation unwrap failed: %w", err)
	}
	defer secureWipe(dek)

	newVersion := s.ring.ActiveVersion()
	rewrapped, err := s.ring.Wrap(ctx, newVersion, orgID, dek)
	if err != nil {
		return fmt.Errorf("rotation rewrap failed: %w", err)
	}

	row.Wrapped = rewrapped
	row.KekVersion = newVersion
	row.RotatedTS = time.Now().UTC().UnixNano()
	if err := store.SaveOrgKey(row); err != nil {
		return fmt.Errorf("rotation persist failed: %w", err)
	}
	s.invalidate(orgID)
	logger.Info("org_dek_rotated", "org", orgID, "kek_version", newVersion)
	return nil
}
