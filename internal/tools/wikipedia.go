package tools

// wikipedia.go defines search_wikipedia: fetch the top article for a
// query, keep only the passages relevant to it, and file the summary
// under book info so later searches answer from the library.

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/wikipedia"
)

// SearchWikipediaName is the Genkit tool name for encyclopedia research.
const SearchWikipediaName = "search_wikipedia"

// SearchWikipediaInput defines input for the search_wikipedia tool.
type SearchWikipediaInput struct {
	Query string `json:"query" jsonschema_description:"The search query: book title, the word Book or Novel, and the information wanted, e.g. 'The Great Gatsby, Novel, Main Characters'"`
}

// Wikipedia holds dependencies for the search_wikipedia handler.
type Wikipedia struct {
	wiki       ArticleFinder
	summarizer Summarizer
	store      BookStore
	logger     *slog.Logger
}

// NewWikipedia creates a Wikipedia toolset.
func NewWikipedia(wiki ArticleFinder, summarizer Summarizer, store BookStore, logger *slog.Logger) (*Wikipedia, error) {
	if wiki == nil {
		return nil, fmt.Errorf("article finder is required")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("book store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Wikipedia{wiki: wiki, summarizer: summarizer, store: store, logger: logger}, nil
}

// RegisterWikipedia registers the search_wikipedia tool with Genkit.
func RegisterWikipedia(g *genkit.Genkit, wt *Wikipedia) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if wt == nil {
		return nil, fmt.Errorf("Wikipedia is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchWikipediaName,
			"Retrieve information from Wikipedia based on a search query. "+
				"Never search for more than one concept at a single step; "+
				"to compare multiple concepts, search for each one individually. "+
				"The response is already a summary of the Wikipedia page with the relevant information. "+
				"The query should name the book, mention the support, and state what to find out, "+
				"e.g. 'Journey To The Center Of The Earth, Book, Plot'.",
			WithEvents(SearchWikipediaName, wt.SearchWikipedia)),
	}, nil
}

// SearchWikipedia fetches and summarizes the top article for a query.
// The summary is persisted into book info; persistence problems are
// logged but never cost the model its answer.
func (w *Wikipedia) SearchWikipedia(ctx *ai.ToolContext, input SearchWikipediaInput) (Result, error) {
	w.logger.Info("SearchWikipedia called", "query", input.Query)

	if input.Query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	title, content, err := w.wiki.TopArticle(ctx, input.Query)
	if errors.Is(err, wikipedia.ErrNoArticle) {
		w.logger.Info("SearchWikipedia found no article", "query", input.Query)
		return errorResult(ErrCodeNotFound, fmt.Sprintf("no Wikipedia article found for %q", input.Query)), nil
	}
	if err != nil {
		w.logger.Warn("SearchWikipedia failed", "query", input.Query, "error", err)
		return errorResult(ErrCodeNetwork, fmt.Sprintf("searching Wikipedia: %v", err)), nil
	}

	summary, err := w.summarizer.Summarize(ctx, content, input.Query)
	if err != nil {
		w.logger.Warn("SearchWikipedia summarization failed", "query", input.Query, "title", title, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("summarizing article %q: %v", title, err)), nil
	}

	stored, err := w.store.Add(ctx, summary, library.SourceBookInfo, map[string]any{
		"query":  input.Query,
		"source": "wikipedia",
		"title":  title,
	})
	if err != nil {
		w.logger.Warn("SearchWikipedia could not store summary", "title", title, "error", err)
		stored = false
	}

	w.logger.Info("SearchWikipedia succeeded", "query", input.Query, "title", title, "stored", stored)
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":   input.Query,
			"title":   title,
			"summary": summary,
			"stored":  stored,
		},
	}, nil
}
