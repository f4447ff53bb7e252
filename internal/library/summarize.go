package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Prompt names, matching the files under the prompt directory.
const (
	summarizerPromptName = "summarizer"
	graderPromptName     = "grader"
)

// Summarizer condenses fetched source text down to what a query asked
// for. The extraction prompt runs at temperature 0; the output is a
// single flowing string, never a list.
type Summarizer struct {
	prompt    ai.Prompt
	modelName string
	logger    *slog.Logger
}

// NewSummarizer loads the summarizer prompt. modelName is the
// provider-qualified model the prompt executes on.
func NewSummarizer(g *genkit.Genkit, modelName string, logger *slog.Logger) (*Summarizer, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prompt := genkit.LookupPrompt(g, summarizerPromptName)
	if prompt == nil {
		return nil, fmt.Errorf("prompt %q not found: ensure the prompt directory is configured", summarizerPromptName)
	}

	return &Summarizer{prompt: prompt, modelName: modelName, logger: logger}, nil
}

// Summarize extracts the query-relevant information from source.
func (s *Summarizer) Summarize(ctx context.Context, source, query string) (string, error) {
	resp, err := s.prompt.Execute(ctx,
		ai.WithInput(map[string]any{"context": source, "query": query}),
		ai.WithModelName(s.modelName),
	)
	if err != nil {
		return "", fmt.Errorf("executing summarizer prompt: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("summarizer returned no text")
	}

	s.logger.Debug("summarized source",
		"source_chars", len(source),
		"summary_chars", len(text))
	return text, nil
}

// Grader answers whether a video is about literature before the
// librarian spends a transcript fetch and a summary on it.
type Grader struct {
	prompt    ai.Prompt
	modelName string
	logger    *slog.Logger
}

// NewGrader loads the grader prompt.
func NewGrader(g *genkit.Genkit, modelName string, logger *slog.Logger) (*Grader, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prompt := genkit.LookupPrompt(g, graderPromptName)
	if prompt == nil {
		return nil, fmt.Errorf("prompt %q not found: ensure the prompt directory is configured", graderPromptName)
	}

	return &Grader{prompt: prompt, modelName: modelName, logger: logger}, nil
}

// IsLiterature grades a video by its title and description. The prompt
// is constrained to answer yes or no; anything else reads as no.
func (g *Grader) IsLiterature(ctx context.Context, title, description string) (bool, error) {
	resp, err := g.prompt.Execute(ctx,
		ai.WithInput(map[string]any{"title": title, "description": description}),
		ai.WithModelName(g.modelName),
	)
	if err != nil {
		return false, fmt.Errorf("executing grader prompt: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Text()))
	relevant := strings.HasPrefix(answer, "yes")

	g.logger.Debug("graded video relevance", "title", title, "relevant", relevant)
	return relevant, nil
}
