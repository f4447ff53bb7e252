package library

import (
	"strings"
	"testing"
)

func TestSplitText_Empty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \n\t  "},
		{name: "blank paragraphs", text: "\n\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SplitText(tt.text, 500, 50); got != nil {
				t.Errorf("SplitText(%q) = %v, want nil", tt.text, got)
			}
		})
	}
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	text := "The Master and Margarita is a novel by Mikhail Bulgakov."

	chunks := SplitText(text, 500, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want %q", chunks[0], text)
	}
}

func TestSplitText_TrimsSurroundingWhitespace(t *testing.T) {
	t.Parallel()

	chunks := SplitText("  hello world  \n", 500, 50)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Errorf("chunks = %v, want [hello world]", chunks)
	}
}

func TestSplitText_MergesParagraphsUpToSize(t *testing.T) {
	t.Parallel()

	// Three 300-char paragraphs with a 500-char limit: no two fit together,
	// so each paragraph becomes its own chunk.
	a := strings.Repeat("a", 300)
	b := strings.Repeat("b", 300)
	c := strings.Repeat("c", 300)
	text := a + "\n\n" + b + "\n\n" + c

	chunks := SplitText(text, 500, 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []string{a, b, c} {
		if chunks[i] != want {
			t.Errorf("chunk %d = %q..., want %c*300", i, chunks[i][:10], want[0])
		}
	}
}

func TestSplitText_OverlapCarriesTrailingParagraphs(t *testing.T) {
	t.Parallel()

	// Seven 60-char paragraphs, 200-char chunks, 80-char overlap. Each chunk
	// holds three paragraphs and the last paragraph of a chunk reappears as
	// the first paragraph of the next one.
	letters := []string{"a", "b", "c", "d", "e", "f", "g"}
	pieces := make([]string, len(letters))
	for i, l := range letters {
		pieces[i] = strings.Repeat(l, 60)
	}
	text := strings.Join(pieces, "\n\n")

	chunks := SplitText(text, 200, 80)
	want := []string{
		strings.Join(pieces[0:3], "\n\n"),
		strings.Join(pieces[2:5], "\n\n"),
		strings.Join(pieces[4:7], "\n\n"),
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitText_OversizeParagraphKeptWhole(t *testing.T) {
	t.Parallel()

	// A paragraph longer than the chunk size is never split mid-paragraph.
	long := strings.Repeat("x", 600)
	short := strings.Repeat("y", 100)
	text := long + "\n\n" + short

	chunks := SplitText(text, 500, 50)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != long {
		t.Errorf("first chunk length = %d, want 600", len(chunks[0]))
	}
	if chunks[1] != short {
		t.Errorf("second chunk = %q, want %q", chunks[1], short)
	}
}

func TestSplitText_InvalidSizesFallBackToDefaults(t *testing.T) {
	t.Parallel()

	text := "short text"

	for _, size := range []int{0, -10} {
		chunks := SplitText(text, size, 50)
		if len(chunks) != 1 || chunks[0] != text {
			t.Errorf("SplitText(size=%d) = %v, want single chunk", size, chunks)
		}
	}

	// Overlap >= size is ignored rather than looping forever.
	a := strings.Repeat("a", 40)
	b := strings.Repeat("b", 40)
	chunks := SplitText(a+"\n\n"+b, 50, 60)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with oversized overlap, got %d: %v", len(chunks), chunks)
	}
}

func TestSplitText_ChunksCoverAllContent(t *testing.T) {
	t.Parallel()

	pieces := make([]string, 20)
	for i := range pieces {
		pieces[i] = strings.Repeat(string(rune('a'+i)), 35)
	}
	text := strings.Join(pieces, "\n\n")

	chunks := SplitText(text, 150, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	joined := strings.Join(chunks, "\n\n")
	for _, p := range pieces {
		if !strings.Contains(joined, p) {
			t.Errorf("paragraph %q missing from chunks", p[:5])
		}
	}
}
