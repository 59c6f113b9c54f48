package app

import (
	"encoding/hex"
	"fmt"

	"candorbox/pkg/config"
	"candorbox/pkg/models"
)

// validateConfig fails fast on misconfiguration that would otherwise
// surface as runtime errors mid-request: missing key material, an
// undersized hashing secret, or a k-threshold below the policy floor.
func validateConfig(cfg *config.Config) error {
	if len(cfg.Security.Keyring) == 0 {
		return fmt.Errorf("no master keys configured; set security.keyring or CANDORBOX_MASTER_KEY_HEX")
	}
	for _, e := range cfg.Security.Keyring {
		if e.Version == "" {
			return fmt.Errorf("keyring entry missing version")
		}
		raw, err := hex.DecodeString(e.Hex)
		if err != nil || len(raw) != 32 {
			return fmt.Errorf("keyring version %q: master key must be 64 hex chars (32 bytes)", e.Version)
		}
	}
	secret, err := hex.DecodeString(cfg.Security.HashSecretHex)
	if err != nil {
		return fmt.Errorf("invalid security.hash_secret_hex: %w", err)
	}
	if len(secret) < 32 {
		return fmt.Errorf("security.hash_secret_hex must be at least 32 bytes")
	}
	if cfg.Policy.KThresholdMin < models.MinKThreshold {
		return fmt.Errorf("policy.k_threshold_min below the floor of %d", models.MinKThreshold)
	}
	return nil
}
