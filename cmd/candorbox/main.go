package main

import (
	"context"

	"github.com/joho/godotenv"

	"candorbox/internal/app"
	"candorbox/pkg/config"
	"candorbox/pkg/logger"
	"candorbox/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Init("info")
		shutdown.Abort("failed to load config", err, "", 0)
	}

	logger.Init(cfg.Logging.Level)
	if cfg.Security.AuditDir != "" {
		if err := logger.AttachAuditFileSink(cfg.Security.AuditDir); err != nil {
			logger.Warn("audit_sink_unavailable", "dir", cfg.Security.AuditDir, "err", err)
		}
	}

	// explicit flags win over config and env
	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := flags.DB
	if !flags.Set["db"] && cfg.Server.DBPath != "" {
		dbPath = cfg.Server.DBPath
	}

	a, err := app.New(cfg, addr, dbPath, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dbPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, dbPath)
	}
	logger.Info("shutdown_complete")
}
