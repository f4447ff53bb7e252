package tools

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/go-cmp/cmp"

	"github.com/alexdjulin/librarian/internal/testutil"
)

func fullDeps() Deps {
	return Deps{
		Store:      newFakeStore(),
		Summarizer: &fakeSummarizer{},
		Grader:     &fakeGrader{},
		Wikipedia:  &fakeFinder{},
		YouTube:    &fakeVideoSource{},
		Logger:     testutil.DiscardLogger(),
	}
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())

	ts, err := RegisterAll(g, fullDeps())
	if err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	if ts.Library == nil || ts.Wikipedia == nil || ts.YouTube == nil || ts.Profile == nil {
		t.Error("RegisterAll() left a toolset nil")
	}

	names := make([]string, 0, len(ts.All))
	for _, tool := range ts.All {
		names = append(names, tool.Name())
	}
	sort.Strings(names)

	want := []string{
		GetVideoTranscriptName,
		LibrarianProfileName,
		SearchBookInfoName,
		SearchBookReviewsName,
		SearchWikipediaName,
		SearchYouTubeReviewsName,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("registered tool names mismatch (-want +got):\n%s", diff)
	}

	for _, name := range want {
		if genkit.LookupTool(g, name) == nil {
			t.Errorf("tool %q not found in the registry", name)
		}
	}
}

func TestRegisterAll_WithoutVideoSource(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())

	deps := fullDeps()
	deps.YouTube = nil

	ts, err := RegisterAll(g, deps)
	if err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	if ts.YouTube != nil {
		t.Error("YouTube toolset built without a video source")
	}
	if len(ts.All) != 4 {
		t.Errorf("registered %d tools, want 4 (video tools skipped)", len(ts.All))
	}
	for _, name := range []string{SearchYouTubeReviewsName, GetVideoTranscriptName} {
		if genkit.LookupTool(g, name) != nil {
			t.Errorf("tool %q registered despite missing video source", name)
		}
	}
}

func TestRegisterAll_NilGenkit(t *testing.T) {
	t.Parallel()

	if _, err := RegisterAll(nil, fullDeps()); err == nil {
		t.Error("RegisterAll(nil) error = nil, want non-nil")
	}
}

func TestRegisterAll_MissingDependency(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())

	deps := fullDeps()
	deps.Store = nil

	_, err := RegisterAll(g, deps)
	if err == nil {
		t.Fatal("RegisterAll() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "library toolset") {
		t.Errorf("error = %v, want the failing toolset named", err)
	}
}
