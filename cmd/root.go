// Package cmd implements the librarian command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexdjulin/librarian/internal/app"
	"github.com/alexdjulin/librarian/internal/config"
	"github.com/alexdjulin/librarian/internal/log"
	"github.com/alexdjulin/librarian/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Alice, your AI librarian for classic literature",
	Long: `Librarian is a terminal AI assistant specialized in books.
It answers literary questions from its own vector library, looks up
Wikipedia articles, and pulls YouTube book review transcripts, growing
its knowledge base as you chat.

Running librarian without a subcommand starts an interactive chat.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// setupApp loads configuration, installs the process logger, and wires
// the application. The returned cleanup releases everything; call it
// exactly once.
func setupApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogFormat == "json",
	})
	slog.SetDefault(logger)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing application: %w", err)
	}

	cleanup := func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}

	return a, cleanup, nil
}

// getOrCreateSession returns the session the CLI is attached to,
// creating and recording a fresh one when none exists or the recorded
// one is gone.
func getOrCreateSession(ctx context.Context, store *session.Store, cfg *config.Config) (*session.Session, error) {
	currentID, err := session.LoadCurrentSessionID()
	if err != nil {
		return nil, fmt.Errorf("loading session state: %w", err)
	}

	if currentID != nil {
		sess, err := store.Session(ctx, *currentID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("validating session: %w", err)
		}
	}

	sess, err := store.CreateSession(ctx, defaultSessionTitle, cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if err := session.SaveCurrentSessionID(sess.ID); err != nil {
		slog.Warn("saving session state", "error", err)
	}

	return sess, nil
}

// defaultSessionTitle is the placeholder title until the first message
// produces a generated one.
const defaultSessionTitle = "New Session"
