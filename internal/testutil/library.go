package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexdjulin/librarian/internal/library"
)

// LibraryEnv bundles the Genkit plumbing library integration tests
// need: a Genkit instance with the Postgres plugin, the deterministic
// mock embedder, and the DocStore/Retriever pair over the documents
// table.
type LibraryEnv struct {
	Genkit    *genkit.Genkit
	Mock      *MockEmbedder
	Embedder  ai.Embedder
	DocStore  *postgresql.DocStore
	Retriever ai.Retriever
}

// SetupLibraryEnv wires the Genkit Postgres plugin around an existing
// test pool (from SetupTestDB) and registers the mock embedder. The
// repo's prompts directory is loaded so prompt-driven components work.
// No API keys required; embeddings are deterministic, steer them with
// Mock.SetVector.
func SetupLibraryEnv(tb testing.TB, pool *pgxpool.Pool) *LibraryEnv {
	tb.Helper()

	ctx := context.Background()

	engine, err := postgresql.NewPostgresEngine(ctx,
		postgresql.WithPool(pool),
		postgresql.WithDatabase("librarian_test"),
	)
	if err != nil {
		tb.Fatalf("creating postgres engine: %v", err)
	}
	pg := &postgresql.Postgres{Engine: engine}

	root, err := ProjectRoot()
	if err != nil {
		tb.Fatalf("finding project root: %v", err)
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(pg),
		genkit.WithPromptDir(filepath.Join(root, "prompts")),
	)
	if g == nil {
		tb.Fatal("genkit.Init returned nil")
	}

	mock := NewMockEmbedder(VectorDim)
	embedder := mock.Register(g)

	docStore, retriever, err := postgresql.DefineRetriever(ctx, g, pg, library.NewDocStoreConfig(embedder))
	if err != nil {
		tb.Fatalf("defining retriever: %v", err)
	}

	return &LibraryEnv{
		Genkit:    g,
		Mock:      mock,
		Embedder:  embedder,
		DocStore:  docStore,
		Retriever: retriever,
	}
}
