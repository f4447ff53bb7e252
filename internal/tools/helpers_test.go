package tools

// helpers_test.go provides the scripted fakes the handler tests share.

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"

	"github.com/alexdjulin/librarian/internal/library"
	"github.com/alexdjulin/librarian/internal/youtube"
)

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

type addCall struct {
	text       string
	sourceType string
	metadata   map[string]any
}

type searchCall struct {
	query      string
	sourceType string
	topK       int
}

// fakeStore scripts the BookStore surface and records every call.
type fakeStore struct {
	addStored bool
	addErr    error
	addCalls  []addCall

	searchHits  []library.SearchResult
	searchErr   error
	searchCalls []searchCall

	cachedSummary string
	cachedOK      bool
	cachedErr     error
	cachedCalls   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{addStored: true}
}

func (f *fakeStore) Add(_ context.Context, text, sourceType string, metadata map[string]any) (bool, error) {
	f.addCalls = append(f.addCalls, addCall{text: text, sourceType: sourceType, metadata: metadata})
	if f.addErr != nil {
		return false, f.addErr
	}
	return f.addStored, nil
}

func (f *fakeStore) Search(_ context.Context, query, sourceType string, topK int) ([]library.SearchResult, error) {
	f.searchCalls = append(f.searchCalls, searchCall{query: query, sourceType: sourceType, topK: topK})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

func (f *fakeStore) CachedVideoSummary(_ context.Context, videoID string) (string, bool, error) {
	f.cachedCalls = append(f.cachedCalls, videoID)
	return f.cachedSummary, f.cachedOK, f.cachedErr
}

type summarizeCall struct {
	source string
	query  string
}

// fakeSummarizer returns a fixed summary and records inputs.
type fakeSummarizer struct {
	summary string
	err     error
	calls   []summarizeCall
}

func (f *fakeSummarizer) Summarize(_ context.Context, source, query string) (string, error) {
	f.calls = append(f.calls, summarizeCall{source: source, query: query})
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type gradeCall struct {
	title       string
	description string
}

// fakeGrader returns a fixed verdict and records inputs.
type fakeGrader struct {
	relevant bool
	err      error
	calls    []gradeCall
}

func (f *fakeGrader) IsLiterature(_ context.Context, title, description string) (bool, error) {
	f.calls = append(f.calls, gradeCall{title: title, description: description})
	if f.err != nil {
		return false, f.err
	}
	return f.relevant, nil
}

// fakeFinder returns a fixed article and records queries.
type fakeFinder struct {
	title   string
	content string
	err     error
	queries []string
}

func (f *fakeFinder) TopArticle(_ context.Context, query string) (string, string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", "", f.err
	}
	return f.title, f.content, nil
}

type videoSearchCall struct {
	query      string
	maxResults int
}

// fakeVideoSource scripts the VideoSource surface. Transcripts come
// from the transcripts map; missing ids fail.
type fakeVideoSource struct {
	videos      []youtube.Video
	searchErr   error
	searchCalls []videoSearchCall

	video     *youtube.Video
	byIDErr   error
	byIDCalls []string

	transcripts     map[string]string
	transcriptErr   error
	transcriptCalls []string
}

func (f *fakeVideoSource) Search(_ context.Context, query string, maxResults int) ([]youtube.Video, error) {
	f.searchCalls = append(f.searchCalls, videoSearchCall{query: query, maxResults: maxResults})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.videos, nil
}

func (f *fakeVideoSource) VideoByID(_ context.Context, videoID string) (*youtube.Video, error) {
	f.byIDCalls = append(f.byIDCalls, videoID)
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.video, nil
}

func (f *fakeVideoSource) Transcript(_ context.Context, videoID string) (string, error) {
	f.transcriptCalls = append(f.transcriptCalls, videoID)
	if f.transcriptErr != nil {
		return "", f.transcriptErr
	}
	if transcript, ok := f.transcripts[videoID]; ok {
		return transcript, nil
	}
	return "", errors.New("no transcript scripted")
}

func testVideo(id string) youtube.Video {
	return youtube.Video{
		VideoID:     id,
		Title:       "Reviewing Moby Dick",
		Description: "A deep dive into Melville's classic.",
		Channel:     "Book Corner",
		Thumbnail:   "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		VideoLink:   youtube.WatchURL(id),
	}
}
