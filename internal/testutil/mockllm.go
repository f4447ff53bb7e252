package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Registered names of the fakes.
const (
	MockModelName    = "mock/test-model"
	MockEmbedderName = "mock/test-embedder"
)

// VectorDim matches the documents table's embedding column size.
const VectorDim = 1536

// MockLLM is a deterministic Genkit model for tests. Rules map a
// substring of the latest user message to a canned reply; unmatched
// messages get the fallback. A rule that carries tool requests fires
// only once, so a tool-calling turn settles into a plain reply on the
// follow-up generation instead of looping until MaxTurns.
//
// Safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	rules    []*mockRule
	fallback string
	calls    []ModelCall
}

type mockRule struct {
	pattern  string
	response string
	tools    []*ai.ToolRequest
	spent    bool
}

// ModelCall records one generation served by the mock.
type ModelCall struct {
	UserMessage string
	Response    string
}

// NewMockLLM creates a mock model that answers fallback when no rule
// matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse maps a case-insensitive substring of the user message to a
// reply. Rules are checked in registration order; first match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, &mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// AddToolResponse maps a substring to a reply that also requests the
// given tool calls. The rule is consumed by its first match; register a
// plain response with the same pattern after it to script the turn that
// follows the tool output.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, &mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
		tools:    tools,
	})
}

// Calls returns a copy of every generation the mock has served.
func (m *MockLLM) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset forgets recorded calls and re-arms spent tool rules.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	for _, r := range m.rules {
		r.spent = false
	}
}

// Register installs the mock under MockModelName and returns it.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, MockModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	var matched *mockRule
	lower := strings.ToLower(userText)
	for _, r := range m.rules {
		if r.spent {
			continue
		}
		if strings.Contains(lower, r.pattern) {
			matched = r
			break
		}
	}

	responseText := m.fallback
	var toolRequests []*ai.ToolRequest
	if matched != nil {
		responseText = matched.response
		toolRequests = matched.tools
		if len(matched.tools) > 0 {
			matched.spent = true
		}
	}

	m.calls = append(m.calls, ModelCall{
		UserMessage: userText,
		Response:    responseText,
	})
	m.mu.Unlock()

	if cb != nil && responseText != "" {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(responseText)},
		})
	}

	var parts []*ai.Part
	for _, tr := range toolRequests {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	if responseText != "" || len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(responseText))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}

// MockEmbedder produces deterministic embeddings: explicit vectors
// registered with SetVector, otherwise a unit vector derived from the
// content's SHA-256. Equal content always embeds equally, which is all
// vector search tests need.
//
// Safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder. dim <= 0 uses VectorDim so
// vectors fit the migrated documents schema.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = VectorDim
	}
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector pins the vector for a content string. Use it to steer exact
// cosine similarity between test inputs.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// Register installs the mock under MockEmbedderName and returns it.
func (e *MockEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, MockEmbedderName, &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{
			Embedding: e.vectorFor(documentText(doc)),
		}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	v, ok := e.vectors[content]
	e.mu.Unlock()
	if ok {
		return v
	}
	return deterministicVector(content, e.dim)
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector derives a unit vector from content, re-hashing the
// digest whenever it runs out of bytes so every dimension gets fresh
// entropy.
func deterministicVector(content string, dim int) []float32 {
	vec := make([]float32, dim)
	block := sha256.Sum256([]byte(content))
	offset := 0
	for i := range vec {
		if offset+4 > len(block) {
			block = sha256.Sum256(block[:])
			offset = 0
		}
		bits := binary.LittleEndian.Uint32(block[offset : offset+4])
		offset += 4
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if n := math.Sqrt(norm); n > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / n)
		}
	}
	return vec
}
