package config

import "sync/atomic"

// RuntimeConfig carries derived key sets that handlers and middleware
// read on the hot path. Stored atomically so reloads never race reads.
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
}

var runtime atomic.Pointer[RuntimeConfig]

// SetRuntime installs the runtime config.
func SetRuntime(rc *RuntimeConfig) { runtime.Store(rc) }

// GetSigningKeys returns the keys accepted for submitter signatures.
// Empty when no runtime config is installed.
func GetSigningKeys() map[string]struct{} {
	if rc := runtime.Load(); rc != nil {
		return rc.SigningKeys
	}
	return nil
}
