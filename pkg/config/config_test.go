package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  address: "127.0.0.1"
  port: 9090
  db_path: "/tmp/candorbox-db"
security:
  keyring:
    - version: v1
      hex: "aa"
    - version: v2
      hex: "bb"
  hash_secret_hex: "cc"
  dek_cache_ttl: 5m
  api_keys:
    backend: ["bk-1"]
    admin: ["ad-1"]
policy:
  k_threshold_min: 7
  grace_period_days: 14
  suggestion_cooldown: 12h
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "/tmp/candorbox-db", cfg.Server.DBPath)

	require.Len(t, cfg.Security.Keyring, 2)
	require.Equal(t, "v2", cfg.Security.Keyring[1].Version)
	require.Equal(t, 5*time.Minute, cfg.Security.DEKCacheTTL.Duration())
	require.Equal(t, []string{"bk-1"}, cfg.Security.APIKeys.Backend)

	require.Equal(t, 7, cfg.Policy.KThresholdMin)
	require.Equal(t, 14, cfg.Policy.GracePeriodDays)
	require.Equal(t, 12*time.Hour, cfg.Policy.SuggestionCooldown.Duration())
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.Equal(t, 20*time.Minute, cfg.Security.DEKCacheTTL.Duration())
	require.Equal(t, 5, cfg.Policy.KThresholdMin)
	require.Equal(t, 7, cfg.Policy.GracePeriodDays)
	require.Equal(t, 24*time.Hour, cfg.Policy.SuggestionCooldown.Duration())
	require.Equal(t, 50, cfg.Policy.MaxPendingSuggestions)
	require.Equal(t, 90, cfg.Policy.DuplicateWindowDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CANDORBOX_ADDR", "10.1.2.3")
	t.Setenv("CANDORBOX_PORT", "7070")
	t.Setenv("CANDORBOX_MASTER_KEY_HEX", "aa")
	t.Setenv("CANDORBOX_MASTER_KEY_HEX_NEXT", "bb")
	t.Setenv("CANDORBOX_API_BACKEND_KEY", "bk-env")
	t.Setenv("CANDORBOX_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "10.1.2.3:7070", cfg.Addr())
	require.Len(t, cfg.Security.Keyring, 2)
	require.Equal(t, "v1", cfg.Security.Keyring[0].Version)
	require.Equal(t, "v2", cfg.Security.Keyring[1].Version)
	require.Contains(t, cfg.Security.APIKeys.Backend, "bk-env")
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestKThresholdFloorIsEnforced(t *testing.T) {
	path := writeConfigFile(t, `
policy:
  k_threshold_min: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Policy.KThresholdMin, "configured floor below 5 is raised")
}

func TestDurationUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{`"20m"`, 20 * time.Minute},
		{`"1h30m"`, 90 * time.Minute},
		{`30`, 30 * time.Second},
		{`1.5`, 1500 * time.Millisecond},
	}
	for _, tc := range cases {
		var d Duration
		require.NoError(t, yaml.Unmarshal([]byte(tc.in), &d), "input %s", tc.in)
		require.Equal(t, tc.want, d.Duration(), "input %s", tc.in)
	}

	var d Duration
	require.Error(t, yaml.Unmarshal([]byte(`"soon"`), &d))
}

func TestResolveConfigPath(t *testing.T) {
	require.Equal(t, "/from/flag", ResolveConfigPath("/from/flag", true))

	t.Setenv("CANDORBOX_CONFIG", "/from/env")
	require.Equal(t, "/from/env", ResolveConfigPath("./config.yaml", false))
	require.Equal(t, "/from/flag", ResolveConfigPath("/from/flag", true), "explicit flag beats env")

	t.Setenv("CANDORBOX_CONFIG", "")
	require.Equal(t, "./config.yaml", ResolveConfigPath("./config.yaml", false))
}

func TestRuntimeKeys(t *testing.T) {
	SetRuntime(&RuntimeConfig{
		BackendKeys: map[string]struct{}{"bk-1": {}},
		SigningKeys: map[string]struct{}{"bk-1": {}, "legacy": {}},
	})
	keys := GetSigningKeys()
	require.Contains(t, keys, "bk-1")
	require.Contains(t, keys, "legacy")
}
