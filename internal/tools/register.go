package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/youtube"
)

// BookStore is the slice of the library store the tools use.
type BookStore interface {
	// Add persists text into a collection. The stored flag is false
	// when the relevance gate skipped the text.
	Add(ctx context.Context, text, sourceType string, metadata map[string]any) (bool, error)

	// Search returns the closest passages of a collection.
	Search(ctx context.Context, query, sourceType string, topK int) ([]library.SearchResult, error)

	// CachedVideoSummary returns a previously stored transcript
	// summary for a video id, if any.
	CachedVideoSummary(ctx context.Context, videoID string) (string, bool, error)
}

// Summarizer extracts the passages of a source text relevant to a
// query. An empty query asks for a plain summary.
type Summarizer interface {
	Summarize(ctx context.Context, source, query string) (string, error)
}

// Grader decides whether a video is about literature.
type Grader interface {
	IsLiterature(ctx context.Context, title, description string) (bool, error)
}

// ArticleFinder is the encyclopedia lookup search_wikipedia uses.
type ArticleFinder interface {
	TopArticle(ctx context.Context, query string) (title, content string, err error)
}

// VideoSource is the video platform surface the YouTube tools use.
type VideoSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]youtube.Video, error)
	VideoByID(ctx context.Context, videoID string) (*youtube.Video, error)
	Transcript(ctx context.Context, videoID string) (string, error)
}

// Deps bundles the dependencies shared by the librarian toolsets.
// YouTube may be nil: without a video source the video tools are
// skipped and the librarian answers from the library and Wikipedia.
type Deps struct {
	Store      BookStore
	Summarizer Summarizer
	Grader     Grader
	Wikipedia  ArticleFinder
	YouTube    VideoSource

	// YouTubeConfig tunes search result and transcript limits.
	// Zero values fall back to the defaults.
	YouTubeConfig YouTubeConfig

	Logger *slog.Logger
}

// Toolsets holds the constructed toolsets together with every Genkit
// tool they registered. The MCP server reuses the same handler structs,
// so a tool behaves identically whether the model or an MCP client
// calls it.
type Toolsets struct {
	Library   *Library
	Wikipedia *Wikipedia
	YouTube   *YouTube // nil when Deps.YouTube was nil
	Profile   *Profile

	// All lists the registered tools in registration order, ready for
	// ai.WithTools.
	All []ai.Tool
}

// RegisterAll builds every librarian toolset and registers its tools
// with Genkit.
func RegisterAll(g *genkit.Genkit, deps Deps) (*Toolsets, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}

	ts := &Toolsets{}

	lib, err := NewLibrary(deps.Store, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating library toolset: %w", err)
	}
	ts.Library = lib
	libraryTools, err := RegisterLibrary(g, lib)
	if err != nil {
		return nil, err
	}
	ts.All = append(ts.All, libraryTools...)

	wiki, err := NewWikipedia(deps.Wikipedia, deps.Summarizer, deps.Store, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating wikipedia toolset: %w", err)
	}
	ts.Wikipedia = wiki
	wikipediaTools, err := RegisterWikipedia(g, wiki)
	if err != nil {
		return nil, err
	}
	ts.All = append(ts.All, wikipediaTools...)

	if deps.YouTube != nil {
		yt, err := NewYouTube(deps.YouTube, deps.Store, deps.Summarizer, deps.Grader, deps.YouTubeConfig, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating youtube toolset: %w", err)
		}
		ts.YouTube = yt
		youtubeTools, err := RegisterYouTube(g, yt)
		if err != nil {
			return nil, err
		}
		ts.All = append(ts.All, youtubeTools...)
	}

	profile, err := NewProfile(deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating profile toolset: %w", err)
	}
	ts.Profile = profile
	profileTools, err := RegisterProfile(g, profile)
	if err != nil {
		return nil, err
	}
	ts.All = append(ts.All, profileTools...)

	return ts, nil
}
