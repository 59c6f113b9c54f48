package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Policy   PolicyConfig   `yaml:"policy"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds http and storage settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	DBPath  string `yaml:"db_path"`
}

// KeyringEntry names one master-key version. Key material is hex and is
// only ever supplied via configuration, never persisted in the store.
type KeyringEntry struct {
	Version string `yaml:"version"`
	Hex     string `yaml:"hex"`
}

// SecurityConfig holds key material and crypto knobs.
type SecurityConfig struct {
	// Keyring lists master-key versions, oldest first. The last entry is
	// the active wrapping key; earlier entries remain available so
	// rotation can unwrap DEKs written under them.
	Keyring []KeyringEntry `yaml:"keyring"`
	// HashSecretHex seeds per-thread submitter pseudonyms.
	HashSecretHex string `yaml:"hash_secret_hex"`
	// DEKCacheTTL bounds how long unwrapped DEKs stay in memory.
	DEKCacheTTL Duration        `yaml:"dek_cache_ttl"`
	AuditDir    string          `yaml:"audit_dir"`
	APIKeys     APIKeysConfig   `yaml:"api_keys"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// APIKeysConfig lists API keys by role. Frontend keys reach the member
// surfaces only; backend keys also sign submitter identities.
type APIKeysConfig struct {
	Backend  []string `yaml:"backend"`
	Frontend []string `yaml:"frontend"`
	Admin    []string `yaml:"admin"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-key request limits.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// PolicyConfig holds k-anonymity and admission-control knobs.
type PolicyConfig struct {
	KThresholdMin         int      `yaml:"k_threshold_min"`
	GracePeriodDays       int      `yaml:"grace_period_days"`
	SuggestionCooldown    Duration `yaml:"suggestion_cooldown"`
	MaxPendingSuggestions int      `yaml:"max_pending_suggestions"`
	DuplicateWindowDays   int      `yaml:"duplicate_window_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Duration is a yaml-friendly duration accepting "20m" or numeric seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
