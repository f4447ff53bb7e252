package tools

// library.go defines the two collection search tools. They read the
// knowledge the research tools (wikipedia, youtube) accumulate, so the
// agent checks the library before reaching for external APIs.

import (
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/alexdjulin/librarian/internal/library"
)

// Tool name constants for library search operations.
const (
	// SearchBookInfoName is the Genkit tool name for searching book information.
	SearchBookInfoName = "search_book_info"
	// SearchBookReviewsName is the Genkit tool name for searching book reviews.
	SearchBookReviewsName = "search_book_reviews"
)

const (
	// DefaultSearchTopK is the result count when the model passes none.
	DefaultSearchTopK = 3
	// MaxTopK caps the result count for all searches.
	MaxTopK = 10
)

// LibrarySearchInput defines input for both library search tools.
type LibrarySearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query string"`
	TopK  int    `json:"topK,omitempty" jsonschema_description:"Maximum results to return (1-10, default: 3)"`
}

// Library holds dependencies for the collection search handlers.
type Library struct {
	store  BookStore
	logger *slog.Logger
}

// NewLibrary creates a Library toolset.
func NewLibrary(store BookStore, logger *slog.Logger) (*Library, error) {
	if store == nil {
		return nil, fmt.Errorf("book store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Library{store: store, logger: logger}, nil
}

// RegisterLibrary registers both collection search tools with Genkit.
func RegisterLibrary(g *genkit.Genkit, lt *Library) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if lt == nil {
		return nil, fmt.Errorf("Library is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchBookInfoName,
			"Search the library for book information: title, author, plot, "+
				"release year, anecdotes, historical context. "+
				"The library holds encyclopedia knowledge gathered in earlier research. "+
				"Always try this before searching Wikipedia. "+
				"Returns: matching passages with metadata and distance scores. "+
				"Default topK: 3. Maximum topK: 10.",
			WithEvents(SearchBookInfoName, lt.SearchBookInfo)),
		genkit.DefineTool(g, SearchBookReviewsName,
			"Search the library for book reviews, opinions, and reader impressions "+
				"summarized from video reviews in earlier research. "+
				"Always try this before searching YouTube. "+
				"Returns: matching passages with metadata and distance scores. "+
				"Default topK: 3. Maximum topK: 10.",
			WithEvents(SearchBookReviewsName, lt.SearchBookReviews)),
	}, nil
}

// clampTopK validates topK and returns a value within [1, MaxTopK].
// If topK <= 0, returns defaultVal.
func clampTopK(topK, defaultVal int) int {
	if topK <= 0 {
		return defaultVal
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// SearchBookInfo searches the encyclopedia knowledge collection.
func (l *Library) SearchBookInfo(ctx *ai.ToolContext, input LibrarySearchInput) (Result, error) {
	return l.search(ctx, input, library.SourceBookInfo)
}

// SearchBookReviews searches the video review collection.
func (l *Library) SearchBookReviews(ctx *ai.ToolContext, input LibrarySearchInput) (Result, error) {
	return l.search(ctx, input, library.SourceBookReviews)
}

func (l *Library) search(ctx *ai.ToolContext, input LibrarySearchInput, sourceType string) (Result, error) {
	l.logger.Info("library search called", "source_type", sourceType, "query", input.Query, "topK", input.TopK)

	if input.Query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	topK := clampTopK(input.TopK, DefaultSearchTopK)

	hits, err := l.store.Search(ctx, input.Query, sourceType, topK)
	if err != nil {
		l.logger.Warn("library search failed", "source_type", sourceType, "query", input.Query, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("searching %s: %v", sourceType, err)), nil
	}

	l.logger.Info("library search succeeded", "source_type", sourceType, "query", input.Query, "result_count", len(hits))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        input.Query,
			"result_count": len(hits),
			"results":      hits,
		},
	}, nil
}
