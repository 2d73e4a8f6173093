package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-telegram/bot"
	"market-telegram/config"
	"market-telegram/db"
	"market-telegram/lang"
	"market-telegram/metrics"
	"market-telegram/services"
	"market-telegram/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type rootOptions struct {
	logFormat string // "text" | "json"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "market-telegram",
		Short:         "Telegram bot for ordering products by weight",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, serve)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log output format (json|text)")
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, migrate)
		},
	})
	return cmd
}

// run loads configuration, sets up logging and the database, then calls fn.
func run(ctx context.Context, opts *rootOptions, fn func(context.Context, *config.Config) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	logger, err := newLogger(opts.logFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return err
	}
	slog.SetDefault(logger)

	if err := db.Init(ctx, cfg.DB); err != nil {
		slog.Error("connect database", "err", err)
		return err
	}
	defer db.Close()

	if err := fn(ctx, cfg); err != nil {
		slog.Error("exit", "err", err)
		return err
	}
	return nil
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be json or text", format)
	}
}

func migrate(ctx context.Context, _ *config.Config) error {
	return db.Migrate(ctx, db.Pool)
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, db.Pool); err != nil {
			return err
		}
	}

	tr, err := lang.Load(cfg.DefaultLanguage)
	if err != nil {
		return err
	}
	tg, err := bot.NewTelegram(cfg.Telegram.Token, cfg.Telegram.Rate)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := tg.SetCommands(); err != nil {
		slog.Warn("register bot commands", "err", err)
	}

	store := services.NewStore(db.Pool)
	m := metrics.New()
	b, err := bot.New(bot.Deps{
		Messenger: tg,
		Catalog:   store,
		Orders:    store,
		Users:     store,
		Lang:      tr,
		Admins:    cfg.Admins,
		Sessions:  session.NewManager(cfg.Session.FlowTimeout, cfg.Session.TTL),
		Metrics:   m,
		Logger:    slog.Default(),
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx, tg.Events(ctx)) })
	g.Go(func() error { return b.Sweep(ctx, time.Minute) })
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			slog.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("bot started",
		"username", tg.Username(),
		"admins", cfg.Admins.Len(),
		"default_language", tr.Default(),
	)
	err = g.Wait()
	slog.Info("bot stopped")
	return err
}
