package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/log"
	"github.com/alexdjulin/librarian/internal/tools"
	"github.com/alexdjulin/librarian/internal/youtube"
)

// fakeBookStore implements tools.BookStore.
type fakeBookStore struct {
	hits      []library.SearchResult
	searchErr error
	added     []string
}

func (f *fakeBookStore) Add(_ context.Context, text, _ string, _ map[string]any) (bool, error) {
	f.added = append(f.added, text)
	return true, nil
}

func (f *fakeBookStore) Search(_ context.Context, _, _ string, _ int) ([]library.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeBookStore) CachedVideoSummary(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// fakeFinder implements tools.ArticleFinder.
type fakeFinder struct {
	title   string
	content string
}

func (f *fakeFinder) TopArticle(context.Context, string) (string, string, error) {
	return f.title, f.content, nil
}

// fakeSummarizer implements tools.Summarizer.
type fakeSummarizer struct{ out string }

func (f *fakeSummarizer) Summarize(context.Context, string, string) (string, error) {
	return f.out, nil
}

// fakeGrader implements tools.Grader.
type fakeGrader struct{ relevant bool }

func (f *fakeGrader) IsLiterature(context.Context, string, string) (bool, error) {
	return f.relevant, nil
}

// fakeVideos implements tools.VideoSource.
type fakeVideos struct {
	videos     []youtube.Video
	transcript string
}

func (f *fakeVideos) Search(context.Context, string, int) ([]youtube.Video, error) {
	return f.videos, nil
}

func (f *fakeVideos) VideoByID(_ context.Context, id string) (*youtube.Video, error) {
	for i := range f.videos {
		if f.videos[i].VideoID == id {
			return &f.videos[i], nil
		}
	}
	return nil, errors.New("video not found")
}

func (f *fakeVideos) Transcript(context.Context, string) (string, error) {
	return f.transcript, nil
}

// serverFixture bundles the fakes behind a ready-to-use server.
type serverFixture struct {
	store      *fakeBookStore
	finder     *fakeFinder
	summarizer *fakeSummarizer
	grader     *fakeGrader
	videos     *fakeVideos
}

func newFixture() *serverFixture {
	return &serverFixture{
		store:      &fakeBookStore{},
		finder:     &fakeFinder{title: "Moby-Dick", content: "a long article about a whale"},
		summarizer: &fakeSummarizer{out: "a concise summary"},
		grader:     &fakeGrader{relevant: true},
		videos:     &fakeVideos{},
	}
}

func (f *serverFixture) toolsets(t *testing.T) (*tools.Library, *tools.Wikipedia, *tools.YouTube) {
	t.Helper()
	logger := log.NewNop()

	lib, err := tools.NewLibrary(f.store, logger)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	wiki, err := tools.NewWikipedia(f.finder, f.summarizer, f.store, logger)
	if err != nil {
		t.Fatalf("NewWikipedia() error = %v", err)
	}
	yt, err := tools.NewYouTube(f.videos, f.store, f.summarizer, f.grader, tools.YouTubeConfig{}, logger)
	if err != nil {
		t.Fatalf("NewYouTube() error = %v", err)
	}
	return lib, wiki, yt
}

func (f *serverFixture) server(t *testing.T) *Server {
	t.Helper()
	lib, wiki, yt := f.toolsets(t)

	s, err := NewServer(Config{
		Name:      "librarian",
		Version:   "test",
		Logger:    log.NewNop(),
		Library:   lib,
		Wikipedia: wiki,
		YouTube:   yt,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func TestNewServer_Validation(t *testing.T) {
	lib, wiki, _ := newFixture().toolsets(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing name",
			cfg:     Config{Version: "1.0.0", Library: lib, Wikipedia: wiki},
			wantErr: "server name is required",
		},
		{
			name:    "missing version",
			cfg:     Config{Name: "librarian", Library: lib, Wikipedia: wiki},
			wantErr: "server version is required",
		},
		{
			name:    "missing library toolset",
			cfg:     Config{Name: "librarian", Version: "1.0.0", Wikipedia: wiki},
			wantErr: "library toolset is required",
		},
		{
			name:    "missing wikipedia toolset",
			cfg:     Config{Name: "librarian", Version: "1.0.0", Library: lib},
			wantErr: "wikipedia toolset is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(tt.cfg)
			if err == nil {
				t.Fatal("NewServer() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewServer() error = %v, want containing %q", err, tt.wantErr)
			}
			if s != nil {
				t.Error("expected nil server on error")
			}
		})
	}
}

func TestNewServer_WithoutVideoSource(t *testing.T) {
	lib, wiki, _ := newFixture().toolsets(t)

	// No YouTube toolset: the server still serves library and Wikipedia.
	s, err := NewServer(Config{
		Name:      "librarian",
		Version:   "1.0.0",
		Logger:    log.NewNop(),
		Library:   lib,
		Wikipedia: wiki,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if s.youtubeTools != nil {
		t.Error("expected no youtube toolset")
	}
}

func TestServer_SearchBookInfo(t *testing.T) {
	f := newFixture()
	f.store.hits = []library.SearchResult{{Content: "Call me Ishmael.", Distance: 0.12}}
	s := f.server(t)

	result, _, err := s.SearchBookInfo(context.Background(), nil, tools.LibrarySearchInput{Query: "moby dick"})
	if err != nil {
		t.Fatalf("SearchBookInfo() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("SearchBookInfo() returned error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "Call me Ishmael.") {
		t.Errorf("result should contain the stored passage: %s", text)
	}
	if !strings.Contains(text, `"result_count":1`) {
		t.Errorf("result should report one hit: %s", text)
	}
}

func TestServer_SearchBookInfo_EmptyQuery(t *testing.T) {
	s := newFixture().server(t)

	result, _, err := s.SearchBookInfo(context.Background(), nil, tools.LibrarySearchInput{})
	if err != nil {
		t.Fatalf("SearchBookInfo() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an empty query")
	}

	text := textOf(t, result)
	if !strings.Contains(text, "query is required") {
		t.Errorf("result should name the validation failure: %s", text)
	}
}

func TestServer_SearchBookReviews_StoreFailure(t *testing.T) {
	f := newFixture()
	f.store.searchErr = errors.New("connection refused")
	s := f.server(t)

	result, _, err := s.SearchBookReviews(context.Background(), nil, tools.LibrarySearchInput{Query: "dune"})
	if err != nil {
		t.Fatalf("SearchBookReviews() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when the store fails")
	}
	if text := textOf(t, result); !strings.Contains(text, string(tools.ErrCodeExecution)) {
		t.Errorf("result should carry the execution error code: %s", text)
	}
}

func TestServer_SearchWikipedia(t *testing.T) {
	f := newFixture()
	f.summarizer.out = "A whale of a tale."
	s := f.server(t)

	result, _, err := s.SearchWikipedia(context.Background(), nil, tools.SearchWikipediaInput{Query: "Moby Dick, Book, Plot"})
	if err != nil {
		t.Fatalf("SearchWikipedia() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("SearchWikipedia() returned error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "Moby-Dick") {
		t.Errorf("result should carry the article title: %s", text)
	}
	if !strings.Contains(text, "A whale of a tale.") {
		t.Errorf("result should carry the summary: %s", text)
	}

	// The summary was filed on the shelves for later searches.
	if len(f.store.added) != 1 {
		t.Errorf("stored summaries = %d, want 1", len(f.store.added))
	}
}

func TestServer_GetVideoTranscript(t *testing.T) {
	f := newFixture()
	f.videos.videos = []youtube.Video{{
		VideoID:     "dQw4w9WgXcQ",
		Title:       "Moby Dick book review",
		Description: "my thoughts on the whale",
	}}
	f.videos.transcript = "so I finally read Moby Dick and"
	s := f.server(t)

	input := tools.GetVideoTranscriptInput{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
	result, _, err := s.GetVideoTranscript(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("GetVideoTranscript() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("GetVideoTranscript() returned error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "so I finally read Moby Dick and") {
		t.Errorf("result should carry the transcript: %s", text)
	}
	if !strings.Contains(text, `"relevant":true`) {
		t.Errorf("result should mark the video relevant: %s", text)
	}
}

func TestServer_GetVideoTranscript_NotLiterature(t *testing.T) {
	f := newFixture()
	f.grader.relevant = false
	f.videos.videos = []youtube.Video{{
		VideoID:     "dQw4w9WgXcQ",
		Title:       "unrelated gaming stream",
		Description: "no books here",
	}}
	s := f.server(t)

	input := tools.GetVideoTranscriptInput{URL: "dQw4w9WgXcQ"}
	result, _, err := s.GetVideoTranscript(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("GetVideoTranscript() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("a refused video is not a protocol error: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "not relevant to literature") {
		t.Errorf("result should carry the refusal message: %s", text)
	}
	if !strings.Contains(text, `"relevant":false`) {
		t.Errorf("result should mark the video irrelevant: %s", text)
	}
}

func TestServer_SearchYouTubeReviews(t *testing.T) {
	f := newFixture()
	f.videos.videos = []youtube.Video{{
		VideoID: "abc12345678",
		Title:   "Dune review",
		Channel: "BookTube",
	}}
	f.videos.transcript = "short transcript"
	s := f.server(t)

	result, _, err := s.SearchYouTubeReviews(context.Background(), nil, tools.SearchYouTubeReviewsInput{Query: "dune book review"})
	if err != nil {
		t.Fatalf("SearchYouTubeReviews() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("SearchYouTubeReviews() returned error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "Dune review") {
		t.Errorf("result should carry the video title: %s", text)
	}
	// The transcript fits the limit, so it is passed through whole.
	if !strings.Contains(text, "short transcript") {
		t.Errorf("result should carry the transcript summary: %s", text)
	}
}
