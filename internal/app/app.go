// Package app is the composition root: Setup wires configuration,
// tracing, the database, Genkit with the provider plugins, the library
// store, the research clients, the tools, and the chat agent into one
// App, releasing everything already built when a later step fails.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexdjulin/librarian/internal/chat"
	"github.com/alexdjulin/librarian/internal/config"
	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/session"
	"github.com/alexdjulin/librarian/internal/tools"
	"github.com/alexdjulin/librarian/internal/wikipedia"
	"github.com/alexdjulin/librarian/internal/youtube"
)

// App holds every initialized component. Fields are set by Setup and
// read-only afterwards; Close releases them in reverse order.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Genkit plumbing
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DocStore  *postgresql.DocStore
	Retriever ai.Retriever

	// Storage
	DBPool       *pgxpool.Pool
	Library      *library.Store
	SessionStore *session.Store

	// Knowledge processing
	Summarizer *library.Summarizer
	Grader     *library.Grader

	// Research clients. YouTube is nil when YOUTUBE_API_KEY is not set.
	Wikipedia *wikipedia.Client
	YouTube   *youtube.Client

	// Agent surface
	Toolsets *tools.Toolsets
	Agent    *chat.Agent

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order: the
// database pool first, then the trace exporter (flushing buffered
// spans). Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}

	return nil
}
