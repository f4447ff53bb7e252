package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/alexdjulin/librarian/db"
	"github.com/alexdjulin/librarian/internal/chat"
	"github.com/alexdjulin/librarian/internal/config"
	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/session"
	"github.com/alexdjulin/librarian/internal/tools"
	"github.com/alexdjulin/librarian/internal/wikipedia"
	"github.com/alexdjulin/librarian/internal/youtube"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	postgres, err := providePostgresPlugin(ctx, pool, cfg)
	if err != nil {
		return nil, err
	}

	g, err := provideGenkit(ctx, cfg, postgres, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	docStore, retriever, err := provideLibraryDocs(ctx, g, postgres, embedder)
	if err != nil {
		return nil, err
	}
	a.DocStore = docStore
	a.Retriever = retriever

	store, err := library.NewStore(pool, embedder, docStore, library.Config{
		AddSimilarityThreshold:    cfg.AddSimilarityThreshold,
		SearchSimilarityThreshold: cfg.SearchSimilarityThreshold,
		TopK:                      cfg.SearchTopK,
		ChunkSize:                 cfg.ChunkSize,
		ChunkOverlap:              cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating library store: %w", err)
	}
	a.Library = store

	summarizer, err := library.NewSummarizer(g, cfg.FullSummarizerName(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}
	a.Summarizer = summarizer

	grader, err := library.NewGrader(g, cfg.FullSummarizerName(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating grader: %w", err)
	}
	a.Grader = grader

	a.Wikipedia = wikipedia.New(logger)

	// Video research is optional: without YOUTUBE_API_KEY the librarian
	// still answers from the library shelves and Wikipedia.
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		yt, err := youtube.New(key, logger)
		if err != nil {
			return nil, fmt.Errorf("creating youtube client: %w", err)
		}
		a.YouTube = yt
	} else {
		logger.Warn("YOUTUBE_API_KEY not set, video research tools disabled")
	}

	sessionStore, err := session.New(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.SessionStore = sessionStore

	toolsets, err := provideToolsets(a)
	if err != nil {
		return nil, err
	}
	a.Toolsets = toolsets

	agent, err := chat.New(chat.Config{
		Genkit:       g,
		Retriever:    retriever,
		SessionStore: sessionStore,
		Logger:       logger,
		Tools:        toolsets.All,
		ModelName:    cfg.FullModelName(),
		MaxTurns:     cfg.MaxTurns,
		LibraryTopK:  cfg.SearchTopK,
		Language:     cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("creating librarian agent: %w", err)
	}
	a.Agent = agent

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit
// initialization. Must be called before provideGenkit so the
// TracerProvider is ready when Genkit starts creating spans.
//
// Spans go to a local OpenTelemetry collector over OTLP HTTP; an empty
// endpoint disables export entirely.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(), // local collector doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("OTLP tracing enabled",
		"endpoint", cfg.OTLPEndpoint,
		"service", cfg.ServiceName,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		// Independent context: shutdown runs during teardown when the
		// parent is already canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// providePostgresPlugin creates the Genkit PostgreSQL plugin, wrapping
// the existing connection pool for use with Genkit's DocStore.
func providePostgresPlugin(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) (*postgresql.Postgres, error) {
	pEngine, err := postgresql.NewPostgresEngine(ctx, postgresql.WithPool(pool), postgresql.WithDatabase(cfg.PostgresDBName))
	if err != nil {
		return nil, fmt.Errorf("creating postgres engine: %w", err)
	}

	return &postgresql.Postgres{Engine: pEngine}, nil
}

// provideGenkit initializes Genkit with the configured AI provider and
// PostgreSQL plugins. Supports openai (default), gemini, and ollama.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config, postgres *postgresql.Postgres, logger *slog.Logger) (*genkit.Genkit, error) {
	promptDir := cfg.PromptDir
	if promptDir == "" {
		promptDir = "prompts"
	}

	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderOpenAI
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx,
			genkit.WithPlugins(ollamaPlugin, postgres),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		// Register embedder for the library's vector search
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGemini, config.ProviderGoogleAI:
		g = genkit.Init(ctx,
			genkit.WithPlugins(&googlegenai.GoogleAI{}, postgres),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	default: // "openai"
		g = genkit.Init(ctx,
			genkit.WithPlugins(&openai.OpenAI{}, postgres),
			genkit.WithPromptDir(promptDir),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - openai: auto-registered in Init(), looked up by model name
//   - ollama: registered in provideGenkit, keyed by server address
//   - gemini: GoogleAIEmbedder(g, modelName)
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGemini, config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // "openai"
		return genkit.LookupEmbedder(g, api.NewName(config.ProviderOpenAI, cfg.EmbedderModel))
	}
}

// provideLibraryDocs creates the Genkit PostgreSQL DocStore and
// Retriever over the library's documents table. The DocStore indexes
// documents, the Retriever searches them.
func provideLibraryDocs(ctx context.Context, g *genkit.Genkit, postgres *postgresql.Postgres, embedder ai.Embedder) (*postgresql.DocStore, ai.Retriever, error) {
	cfg := library.NewDocStoreConfig(embedder)
	docStore, retriever, err := postgresql.DefineRetriever(ctx, g, postgres, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("defining retriever: %w", err)
	}

	return docStore, retriever, nil
}

// provideToolsets builds the research toolsets and registers their
// tools with Genkit.
func provideToolsets(a *App) (*tools.Toolsets, error) {
	deps := tools.Deps{
		Store:      a.Library,
		Summarizer: a.Summarizer,
		Grader:     a.Grader,
		Wikipedia:  a.Wikipedia,
		YouTubeConfig: tools.YouTubeConfig{
			MaxResults:         a.Config.YouTubeMaxResults,
			MaxTranscriptChars: a.Config.MaxTranscriptChars,
		},
		Logger: a.Logger,
	}
	// Assign only when the client exists, so the interface stays nil
	// and RegisterAll skips the video tools.
	if a.YouTube != nil {
		deps.YouTube = a.YouTube
	}

	toolsets, err := tools.RegisterAll(a.Genkit, deps)
	if err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	a.Logger.Info("tools registered at construction", "count", len(toolsets.All))
	return toolsets, nil
}
