package chat

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"

	"github.com/alexdjulin/librarian/internal/session"
)

// stubRetriever is a minimal ai.Retriever implementation for validation
// tests that never reach retrieval.
type stubRetriever struct{}

func (*stubRetriever) Name() string { return "stub-retriever" }
func (*stubRetriever) Retrieve(_ context.Context, _ *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
	return &ai.RetrieverResponse{}, nil
}
func (*stubRetriever) Register(_ api.Registry) {}

// TestConfig_validate tests that each validation check in Config.validate()
// fires independently. Each case provides enough deps to pass prior checks.
func TestConfig_validate(t *testing.T) {
	t.Parallel()

	// Minimal non-nil stubs — validate() only checks nil, never dereferences.
	stubG := new(genkit.Genkit)
	stubR := new(stubRetriever)
	stubS := new(session.Store)
	stubL := slog.New(slog.DiscardHandler)

	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{
			name:        "nil genkit",
			cfg:         Config{},
			errContains: "genkit instance is required",
		},
		{
			name: "nil retriever",
			cfg: Config{
				Genkit: stubG,
			},
			errContains: "retriever is required",
		},
		{
			name: "nil session store",
			cfg: Config{
				Genkit:    stubG,
				Retriever: stubR,
			},
			errContains: "session store is required",
		},
		{
			name: "nil logger",
			cfg: Config{
				Genkit:       stubG,
				Retriever:    stubR,
				SessionStore: stubS,
			},
			errContains: "logger is required",
		},
		{
			name: "empty tools",
			cfg: Config{
				Genkit:       stubG,
				Retriever:    stubR,
				SessionStore: stubS,
				Logger:       stubL,
				Tools:        []ai.Tool{},
			},
			errContains: "at least one tool is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.validate()
			if err == nil {
				t.Fatal("validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("validate() error = %q, want to contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestFormatLibraryContext(t *testing.T) {
	t.Parallel()

	doc := func(text string) *ai.Document {
		return ai.DocumentFromText(text, nil)
	}

	tests := []struct {
		name      string
		docs      []*ai.Document
		maxTokens int
		want      string
	}{
		{
			name:      "no documents",
			docs:      nil,
			maxTokens: 100,
			want:      "",
		},
		{
			name:      "single document",
			docs:      []*ai.Document{doc("To the Lighthouse by Virginia Woolf")},
			maxTokens: 100,
			want:      "- To the Lighthouse by Virginia Woolf",
		},
		{
			name:      "entries separated by blank lines",
			docs:      []*ai.Document{doc("first entry"), doc("second entry")},
			maxTokens: 100,
			want:      "- first entry\n\n- second entry",
		},
		{
			name: "stops at token budget",
			docs: []*ai.Document{
				doc(strings.Repeat("a", 16)), // 8 tokens
				doc(strings.Repeat("b", 16)), // 8 tokens, 16 > 10
			},
			maxTokens: 10,
			want:      "- " + strings.Repeat("a", 16),
		},
		{
			// Documents arrive most relevant first; once one overflows,
			// nothing after it may be injected even if it would fit.
			name: "budget break preserves relevance order",
			docs: []*ai.Document{
				doc(strings.Repeat("a", 16)), // 8 tokens
				doc(strings.Repeat("b", 30)), // 15 tokens, over budget
				doc("cc"),                    // 1 token, would fit
			},
			maxTokens: 10,
			want:      "- " + strings.Repeat("a", 16),
		},
		{
			name:      "skips empty documents",
			docs:      []*ai.Document{doc(""), doc("   "), doc("real entry")},
			maxTokens: 100,
			want:      "- real entry",
		},
		{
			name:      "trims surrounding whitespace",
			docs:      []*ai.Document{doc("  padded  \n")},
			maxTokens: 100,
			want:      "- padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatLibraryContext(tt.docs, tt.maxTokens)
			if got != tt.want {
				t.Errorf("formatLibraryContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocumentText(t *testing.T) {
	t.Parallel()

	docWithMedia := &ai.Document{
		Content: []*ai.Part{
			ai.NewTextPart("Moby-Dick "),
			{Kind: ai.PartMedia, ContentType: "image/png", Text: "https://example.com/cover.png"},
			ai.NewTextPart("by Herman Melville"),
		},
	}

	if got, want := documentText(docWithMedia), "Moby-Dick by Herman Melville"; got != want {
		t.Errorf("documentText() = %q, want %q", got, want)
	}

	if got := documentText(&ai.Document{}); got != "" {
		t.Errorf("documentText(empty) = %q, want empty", got)
	}
}

func TestDeepCopyMessages_NilInput(t *testing.T) {
	t.Parallel()
	got := deepCopyMessages(nil)
	if got != nil {
		t.Errorf("deepCopyMessages(nil) = %v, want nil", got)
	}
}

func TestDeepCopyMessages_EmptySlice(t *testing.T) {
	t.Parallel()
	got := deepCopyMessages([]*ai.Message{})
	if got == nil {
		t.Fatal("deepCopyMessages(empty) = nil, want non-nil empty slice")
	}
	if len(got) != 0 {
		t.Errorf("deepCopyMessages(empty) len = %d, want 0", len(got))
	}
}

func TestDeepCopyMessages_MutateOriginalText(t *testing.T) {
	t.Parallel()

	original := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hello world")),
	}

	copied := deepCopyMessages(original)

	// Mutate the original message's content slice
	original[0].Content[0].Text = "MUTATED"

	if copied[0].Content[0].Text != "hello world" {
		t.Errorf("deepCopyMessages() copy was affected by original mutation: got %q, want %q",
			copied[0].Content[0].Text, "hello world")
	}
}

func TestDeepCopyMessages_MutateOriginalContentSlice(t *testing.T) {
	t.Parallel()

	original := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("first"), ai.NewTextPart("second")),
	}

	copied := deepCopyMessages(original)

	// Append to original's content slice — should not affect copy
	original[0].Content = append(original[0].Content, ai.NewTextPart("third"))

	if len(copied[0].Content) != 2 {
		t.Errorf("deepCopyMessages() copy content len = %d, want 2", len(copied[0].Content))
	}
}

func TestDeepCopyMessages_PreservesRole(t *testing.T) {
	t.Parallel()

	original := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("q")),
		ai.NewModelMessage(ai.NewTextPart("a")),
	}

	copied := deepCopyMessages(original)

	if copied[0].Role != ai.RoleUser {
		t.Errorf("deepCopyMessages()[0].Role = %q, want %q", copied[0].Role, ai.RoleUser)
	}
	if copied[1].Role != ai.RoleModel {
		t.Errorf("deepCopyMessages()[1].Role = %q, want %q", copied[1].Role, ai.RoleModel)
	}
}

func TestDeepCopyMessages_Metadata(t *testing.T) {
	t.Parallel()

	original := []*ai.Message{{
		Role:     ai.RoleUser,
		Content:  []*ai.Part{ai.NewTextPart("test")},
		Metadata: map[string]any{"key": "value"},
	}}

	copied := deepCopyMessages(original)

	// Mutate original metadata
	original[0].Metadata["key"] = "MUTATED"

	if copied[0].Metadata["key"] != "value" {
		t.Errorf("deepCopyMessages() metadata was affected by mutation: got %q, want %q",
			copied[0].Metadata["key"], "value")
	}
}

func TestDeepCopyPart_NilInput(t *testing.T) {
	t.Parallel()
	got := deepCopyPart(nil)
	if got != nil {
		t.Errorf("deepCopyPart(nil) = %v, want nil", got)
	}
}

func TestDeepCopyPart_TextPart(t *testing.T) {
	t.Parallel()

	original := ai.NewTextPart("hello")
	copied := deepCopyPart(original)

	original.Text = "MUTATED"

	if copied.Text != "hello" {
		t.Errorf("deepCopyPart() text affected by mutation: got %q, want %q", copied.Text, "hello")
	}
}

func TestDeepCopyPart_ToolRequest(t *testing.T) {
	t.Parallel()

	original := &ai.Part{
		Kind: ai.PartToolRequest,
		ToolRequest: &ai.ToolRequest{
			Name:  "search_book_info",
			Input: map[string]any{"query": "Beloved"},
		},
	}

	copied := deepCopyPart(original)

	// Mutate original ToolRequest name
	original.ToolRequest.Name = "MUTATED"

	if copied.ToolRequest.Name != "search_book_info" {
		t.Errorf("deepCopyPart() ToolRequest.Name affected by mutation: got %q, want %q",
			copied.ToolRequest.Name, "search_book_info")
	}
}

func TestDeepCopyPart_ToolResponse(t *testing.T) {
	t.Parallel()

	original := &ai.Part{
		Kind: ai.PartToolResponse,
		ToolResponse: &ai.ToolResponse{
			Name:   "search_book_info",
			Output: "Beloved is a novel by Toni Morrison.",
		},
	}

	copied := deepCopyPart(original)

	original.ToolResponse.Name = "MUTATED"

	if copied.ToolResponse.Name != "search_book_info" {
		t.Errorf("deepCopyPart() ToolResponse.Name affected by mutation: got %q, want %q",
			copied.ToolResponse.Name, "search_book_info")
	}
}

func TestDeepCopyPart_Resource(t *testing.T) {
	t.Parallel()

	original := &ai.Part{
		Kind:     ai.PartMedia,
		Resource: &ai.ResourcePart{Uri: "https://example.com/cover.png"},
	}

	copied := deepCopyPart(original)

	original.Resource.Uri = "MUTATED"

	if copied.Resource.Uri != "https://example.com/cover.png" {
		t.Errorf("deepCopyPart() Resource.Uri affected by mutation: got %q, want %q",
			copied.Resource.Uri, "https://example.com/cover.png")
	}
}

func TestDeepCopyPart_PartMetadata(t *testing.T) {
	t.Parallel()

	original := &ai.Part{
		Kind:     ai.PartText,
		Text:     "test",
		Custom:   map[string]any{"c": "custom"},
		Metadata: map[string]any{"m": "meta"},
	}

	copied := deepCopyPart(original)

	original.Custom["c"] = "MUTATED"
	original.Metadata["m"] = "MUTATED"

	if copied.Custom["c"] != "custom" {
		t.Errorf("deepCopyPart() Custom map affected: got %q, want %q", copied.Custom["c"], "custom")
	}
	if copied.Metadata["m"] != "meta" {
		t.Errorf("deepCopyPart() Metadata map affected: got %q, want %q", copied.Metadata["m"], "meta")
	}
}

func TestShallowCopyMap_NilInput(t *testing.T) {
	t.Parallel()
	got := shallowCopyMap(nil)
	if got != nil {
		t.Errorf("shallowCopyMap(nil) = %v, want nil", got)
	}
}

func TestShallowCopyMap_IndependentKeys(t *testing.T) {
	t.Parallel()

	original := map[string]any{"a": "1", "b": "2"}
	copied := shallowCopyMap(original)

	// Add new key to original
	original["c"] = "3"

	if _, ok := copied["c"]; ok {
		t.Error("shallowCopyMap() new key in original appeared in copy")
	}
	if len(copied) != 2 {
		t.Errorf("shallowCopyMap() copy len = %d, want 2", len(copied))
	}
}

func TestShallowCopyMap_MutateValue(t *testing.T) {
	t.Parallel()

	original := map[string]any{"key": "value"}
	copied := shallowCopyMap(original)

	// Overwrite original value
	original["key"] = "MUTATED"

	if copied["key"] != "value" {
		t.Errorf("shallowCopyMap() value affected by mutation: got %q, want %q",
			copied["key"], "value")
	}
}
