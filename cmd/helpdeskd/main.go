package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/helpdesk-io/helpdesk/internal/api"
	"github.com/helpdesk-io/helpdesk/internal/auth"
	"github.com/helpdesk-io/helpdesk/internal/config"
	"github.com/helpdesk-io/helpdesk/internal/digest"
	"github.com/helpdesk-io/helpdesk/internal/lifecycle"
	"github.com/helpdesk-io/helpdesk/internal/logbuf"
	"github.com/helpdesk-io/helpdesk/internal/notify"
	"github.com/helpdesk-io/helpdesk/internal/project"
	"github.com/helpdesk-io/helpdesk/internal/scheduler"
	"github.com/helpdesk-io/helpdesk/internal/store"
)

func main() {
	configPath := flag.StringP("config", "c", os.Getenv("HELPDESK_CONFIG"), "Path to config file (.json, .jsonc, .yaml)")
	envFile := flag.String("env-file", ".env", "Optional .env file read when no config file is given")
	verbose := flag.BoolP("verbose", "v", false, "Verbose logging")
	flag.Parse()

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv(*envFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := logbuf.ParseLevel(cfg.Log.Level)
	if *verbose {
		level = slog.LevelDebug
	}
	logBuf := logbuf.New(cfg.Log.BufferLen)
	logger := slog.New(logbuf.NewHandler(newHandler(cfg.Log.Format, level), logBuf, slog.LevelDebug))
	slog.SetDefault(logger)

	if err := run(cfg, logger, logBuf); err != nil {
		logger.Error("helpdeskd failed", "error", err)
		os.Exit(1)
	}
}

func newHandler(format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func run(cfg *config.Config, logger *slog.Logger, logBuf *logbuf.Buffer) error {
	logger.Info("helpdeskd starting", "db", cfg.Store.Path, "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Store
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. Services
	engine := lifecycle.New(st, logger)
	projects := project.New(st, logger)
	accounts := auth.New(st, auth.Options{
		SessionTTL:  cfg.Auth.TTL(),
		EmailDomain: cfg.Auth.EmailDomain,
	}, logger)

	if a := cfg.Auth.Admin; a != nil {
		username := a.Username
		if username == "" {
			username = "admin"
		}
		created, err := accounts.EnsureAdmin(ctx, auth.AdminSeed{Username: username, Email: a.Email, Password: a.Password})
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if !created {
			logger.Debug("bootstrap admin already present", "email", a.Email)
		}
	}

	// 3. Scheduled jobs
	sched := scheduler.New(logger)
	if err := sched.AddJob("purge-sessions", cfg.Auth.PurgeSchedule, func(ctx context.Context) {
		n, err := accounts.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("session purge failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("expired sessions purged", "count", n)
		}
	}); err != nil {
		return err
	}

	if cfg.Digest.Enabled() {
		sinks, err := digestSinks(cfg.Digest, logger)
		if err != nil {
			return err
		}
		job := digest.NewJob(engine, notify.New(logger, sinks...), logger)
		if err := sched.AddJob("digest", cfg.Digest.Schedule, job.Run); err != nil {
			return err
		}
		logger.Info("digest enabled", "schedule", cfg.Digest.Schedule, "sinks", len(sinks))
	}

	// 4. API server
	srv := api.NewServer(api.Services{
		Tickets:  engine,
		Projects: projects,
		Accounts: accounts,
		Logs:     logBuf,
	}, api.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Gzip:          !cfg.Server.DisableGzip,
	}, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	wg.Add(2)
	go func() {
		defer wg.Done()
		safeGo(logger, "scheduler", func() { sched.Start(ctx) })
	}()
	go func() {
		defer wg.Done()
		safeGo(logger, "api-server", func() {
			if err := srv.Start(ctx); err != nil {
				errCh <- err
			}
		})
	}()

	// 5. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case runErr = <-errCh:
	}
	cancel()
	wg.Wait()
	engine.Drain()
	logger.Info("helpdeskd stopped")
	return runErr
}

func digestSinks(d config.DigestConfig, logger *slog.Logger) ([]notify.Sink, error) {
	var sinks []notify.Sink
	if d.Slack != nil {
		sinks = append(sinks, notify.NewSlack(d.Slack.WebhookURL, nil))
	}
	if d.Telegram != nil {
		tg, err := notify.NewTelegram(d.Telegram.Token, d.Telegram.ChatID, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	return sinks, nil
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
