package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"candorbox/pkg/admission"
	"candorbox/pkg/antigaming"
	"candorbox/pkg/api/handlers"
	"candorbox/pkg/config"
	"candorbox/pkg/security"
	"candorbox/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg       *config.Config
	addr      string
	dbPath    string
	version   string
	commit    string
	buildDate string

	deps *handlers.Deps
	srv  *http.Server
}

// New initializes everything that does not require a running context:
// config validation, the store, the key ring and the wired domain
// components. Call Run to start the HTTP server and block until
// shutdown.
func New(cfg *config.Config, addr, dbPath, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// backend keys double as submitter-signing secrets
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range cfg.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	if err := store.Open(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dbPath, err)
	}

	deps, err := buildDeps(context.Background(), cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		addr:      addr,
		dbPath:    dbPath,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		deps:      deps,
	}, nil
}

// buildDeps wires the crypto, hashing, anti-gaming and admission
// components from config.
func buildDeps(ctx context.Context, cfg *config.Config) (*handlers.Deps, error) {
	keys := make([][2]string, 0, len(cfg.Security.Keyring))
	for _, e := range cfg.Security.Keyring {
		keys = append(keys, [2]string{e.Version, e.Hex})
	}
	ring, err := security.NewKeyRing(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("invalid keyring: %w", err)
	}

	keystore := security.NewKeyStore(ring)
	cache := security.NewDEKCache(keystore, cfg.Security.DEKCacheTTL.Duration(), nil)
	keystore.OnInvalidate(cache.Invalidate)

	secret, err := hex.DecodeString(cfg.Security.HashSecretHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hash_secret_hex: %w", err)
	}
	hasher, err := security.NewSubmitterHasher(secret)
	if err != nil {
		return nil, err
	}

	guard := antigaming.NewGuard(
		cfg.Policy.SuggestionCooldown.Duration(),
		cfg.Policy.MaxPendingSuggestions,
		time.Duration(cfg.Policy.DuplicateWindowDays)*24*time.Hour,
		nil,
	)
	controller := admission.NewController(time.Duration(cfg.Policy.GracePeriodDays)*24*time.Hour, nil)

	return &handlers.Deps{
		Crypto:    security.NewFeedbackCrypto(keystore, cache),
		Keys:      keystore,
		Hasher:    hasher,
		Guard:     guard,
		Admission: controller,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or a
// fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()
	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.srv != nil {
		_ = a.srv.Shutdown(ctx)
	}
	return store.Close()
}
