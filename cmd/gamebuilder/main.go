package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tatianab/game-builder/internal/agent"
	"github.com/tatianab/game-builder/internal/config"
	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/server"
	"github.com/tatianab/game-builder/internal/session"
	"github.com/tatianab/game-builder/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gamebuilder",
		Short:         "Turn a game idea into a playable browser game",
		Long:          "Clarifies your idea through a short Q&A, plans the game, and writes index.html, style.css and game.js.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the web API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	return root
}

func newLogger(level string, def zapcore.Level) (*zap.Logger, error) {
	lvl := def
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: log level %q", errs.ErrConfiguration, level)
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func setup(ctx context.Context, defLevel zapcore.Level) (*config.Config, *zap.Logger, *engine.Gemini, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := newLogger(cfg.LogLevel, defLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	gemini, err := engine.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.BackendTimeout, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return cfg, log, gemini, nil
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, gemini, err := setup(ctx, zapcore.WarnLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer gemini.Close()

	a := agent.New(gemini, engine.DefaultPrompts(),
		tui.NewPrompter(os.Stdin, os.Stdout), tui.NewConsole(os.Stdout),
		cfg.OutputDir, log)
	_, err = a.Run(ctx)
	if errors.Is(err, errs.ErrInterrupted) || errors.Is(err, context.Canceled) {
		fmt.Println("\n\nInterrupted by user. Goodbye!")
		return nil
	}
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, gemini, err := setup(ctx, zapcore.InfoLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer gemini.Close()

	store := session.NewStore(cfg.SessionTTL, log)
	if cfg.SessionTTL > 0 {
		go store.Run(ctx, time.Minute)
	}

	svc := server.NewService(gemini, engine.DefaultPrompts(), store, cfg.OutputDir, log)
	return svc.Serve(ctx, cfg.Addr)
}
