package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// ParseCommandFlags parses command-line flags. Explicit flags win over
// config file and environment values.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: set}
}

// ResolveConfigPath picks the config path: an explicit flag wins,
// otherwise CANDORBOX_CONFIG, otherwise the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if p := os.Getenv("CANDORBOX_CONFIG"); p != "" {
		return p
	}
	return flagVal
}

// Load reads and parses the YAML config file at path, then applies
// environment overrides and defaults. A missing file is not an error;
// the env-only config is returned.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CANDORBOX_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CANDORBOX_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CANDORBOX_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("CANDORBOX_HASH_SECRET_HEX"); v != "" {
		cfg.Security.HashSecretHex = v
	}
	if v := os.Getenv("CANDORBOX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	// Master keys may be supplied as env pairs for deployments that keep
	// key material out of files: CANDORBOX_MASTER_KEY_HEX (active) and
	// CANDORBOX_MASTER_KEY_HEX_NEXT (staged rotation target).
	if v := os.Getenv("CANDORBOX_MASTER_KEY_HEX"); v != "" {
		cfg.Security.Keyring = append(cfg.Security.Keyring, KeyringEntry{Version: "v1", Hex: v})
	}
	if v := os.Getenv("CANDORBOX_MASTER_KEY_HEX_NEXT"); v != "" {
		cfg.Security.Keyring = append(cfg.Security.Keyring, KeyringEntry{Version: "v2", Hex: v})
	}
	if v := os.Getenv("CANDORBOX_API_BACKEND_KEY"); v != "" {
		cfg.Security.APIKeys.Backend = append(cfg.Security.APIKeys.Backend, v)
	}
	if v := os.Getenv("CANDORBOX_API_FRONTEND_KEY"); v != "" {
		cfg.Security.APIKeys.Frontend = append(cfg.Security.APIKeys.Frontend, v)
	}
	if v := os.Getenv("CANDORBOX_API_ADMIN_KEY"); v != "" {
		cfg.Security.APIKeys.Admin = append(cfg.Security.APIKeys.Admin, v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Security.DEKCacheTTL == 0 {
		cfg.Security.DEKCacheTTL = Duration(20 * time.Minute)
	}
	if cfg.Policy.KThresholdMin < 5 {
		cfg.Policy.KThresholdMin = 5
	}
	if cfg.Policy.GracePeriodDays <= 0 {
		cfg.Policy.GracePeriodDays = 7
	}
	if cfg.Policy.SuggestionCooldown == 0 {
		cfg.Policy.SuggestionCooldown = Duration(24 * time.Hour)
	}
	if cfg.Policy.MaxPendingSuggestions <= 0 {
		cfg.Policy.MaxPendingSuggestions = 50
	}
	if cfg.Policy.DuplicateWindowDays <= 0 {
		cfg.Policy.DuplicateWindowDays = 90
	}
}
