package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/onfelt/holdemd/internal/auth"
	"github.com/onfelt/holdemd/internal/escrow"
	"github.com/onfelt/holdemd/internal/server"
	"github.com/onfelt/holdemd/internal/storage"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdemd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DBPath   string `long:"db" help:"SQLite database path (overrides config)"`
	Seed     int64  `long:"seed" help:"Deterministic RNG seed (overrides config; 0 uses the clock)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DBPath != "" {
		cfg.Server.DBPath = CLI.DBPath
	}
	if CLI.Seed != 0 {
		cfg.Server.Seed = CLI.Seed
	}
	if cfg.Server.Seed == 0 {
		cfg.Server.Seed = time.Now().UnixNano()
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			kctx.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	addr := CLI.Addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	}

	var store storage.Store = storage.NopStore{}
	if cfg.Server.DBPath != "" {
		sqlStore, err := storage.OpenSQLite(cfg.Server.DBPath)
		if err != nil {
			logger.Error("open database", "path", cfg.Server.DBPath, "err", err)
			kctx.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	// Without an escrow endpoint the server runs self-contained: tokens are
	// wallet addresses and every wallet starts with a dev-mode balance.
	var validator auth.Validator
	vault := escrow.NewMemVault(logger)
	if cfg.Escrow.AuthURL != "" {
		validator = auth.NewHTTPValidator(cfg.Escrow.AuthURL, cfg.Escrow.AdminSecret, 5*time.Second)
	} else {
		validator = auth.NewDevValidator()
		if cfg.Escrow.DevFunding > 0 {
			vault.SetDefaultFunding(cfg.Escrow.DevFunding)
		}
		logger.Warn("running in dev mode: tokens are wallet addresses, chips are in-memory")
	}

	lobby, err := server.NewLobby(cfg, logger, quartz.NewReal(), vault, store)
	if err != nil {
		logger.Error("build lobby", "err", err)
		kctx.Exit(1)
	}
	srv := server.NewServer(addr, logger, lobby, validator, server.NewMetrics())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting holdemd", "addr", addr, "tables", len(cfg.Tables))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lobby.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if err := g.Wait(); err != nil {
		logger.Error("server exited", "err", err)
		kctx.Exit(1)
	}
	logger.Info("shutdown complete")
}
