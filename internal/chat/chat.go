// Package chat implements the librarian's conversational agent: a
// prompt-driven Genkit loop that answers with session history, library
// context retrieved from the vector store, and the research tools.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/postgresql"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alexdjulin/librarian/internal/session"
)

// Agent name and description constants
const (
	// Name is the unique identifier for the librarian agent.
	Name = "librarian"

	// Description describes the librarian agent's capabilities.
	Description = "A librarian assistant that recommends books and answers literary questions using a local library, Wikipedia, and YouTube reviews."

	// LibrarianPromptName is the name of the Dotprompt file for the agent.
	// This corresponds to prompts/librarian.prompt.
	LibrarianPromptName = "librarian"

	// libraryContextTimeout limits how long the library lookup can take
	// per request.
	libraryContextTimeout = 5 * time.Second

	// defaultLibraryTopK is how many library entries are retrieved for
	// prompt context when the caller does not configure a value.
	defaultLibraryTopK = 3

	// fallbackResponseMessage is returned when the model produces an empty response.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// Sentinel errors for agent operations.
var (
	// ErrInvalidSession indicates the session ID is invalid or malformed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates agent execution failed.
	ErrExecutionFailed = errors.New("execution failed")
)

// Response represents the complete result of an agent execution.
type Response struct {
	FinalText    string            // Model's final text output
	ToolRequests []*ai.ToolRequest // Tool requests made during execution
}

// StreamCallback is called for each chunk of streaming response.
// The chunk contains partial content that can be immediately displayed
// to the user. Return an error to abort the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config contains all required parameters for the librarian agent.
type Config struct {
	Genkit       *genkit.Genkit
	Retriever    ai.Retriever // Genkit Retriever over the library's documents table
	SessionStore *session.Store
	Logger       *slog.Logger
	Tools        []ai.Tool // Pre-registered tools from tools.RegisterAll

	// Configuration values
	ModelName   string // Provider-qualified model name (e.g., "openai/gpt-4o-mini", "ollama/llama3.3")
	MaxTurns    int    // Maximum agentic loop turns
	LibraryTopK int    // Library entries retrieved per turn for prompt context
	Language    string // Response language preference

	// Resilience configuration
	RetryConfig          RetryConfig          // LLM retry settings (zero-value uses defaults)
	CircuitBreakerConfig CircuitBreakerConfig // Circuit breaker settings (zero-value uses defaults)
	RateLimiter          *rate.Limiter        // Optional: proactive rate limiting (nil = use default)

	// Token management
	TokenBudget TokenBudget // Token budget for context window (zero-value uses defaults)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.SessionStore == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the librarian's conversational core. It is stateless across
// requests; all configuration is captured immutably at construction so
// concurrent executions share nothing mutable.
type Agent struct {
	// Immutable configuration (captured at construction)
	modelName      string // Provider-qualified model name (overrides Dotprompt model)
	languagePrompt string // Resolved language for prompt template
	maxTurns       int
	libraryTopK    int

	// Resilience (captured at construction)
	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter // Proactive rate limiting (nil = disabled)

	// Token management (captured at construction)
	tokenBudget TokenBudget

	// Dependencies (read-only after construction)
	g         *genkit.Genkit
	retriever ai.Retriever
	sessions  *session.Store
	logger    *slog.Logger
	tools     []ai.Tool    // Pre-registered tools (passed in via Config)
	toolRefs  []ai.ToolRef // Cached at construction (ai.Tool implements ai.ToolRef)
	toolNames string       // Cached as comma-separated for logging
	prompt    ai.Prompt    // Cached Dotprompt instance
}

// New creates a librarian agent.
//
// The persona and base instructions live in prompts/librarian.prompt;
// ModelName overrides the model configured there, supporting multiple
// providers.
//
// Example:
//
//	agent, err := chat.New(chat.Config{
//	    Genkit:       g,
//	    Retriever:    retriever, // from postgresql.DefineRetriever
//	    SessionStore: sessionStore,
//	    Logger:       logger,
//	    Tools:        tools, // pre-registered via tools.RegisterAll
//	    ModelName:    cfg.ChatModel,
//	    Language:     cfg.Language,
//	})
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Apply defaults for optional configuration values
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	topK := cfg.LibraryTopK
	if topK <= 0 {
		topK = defaultLibraryTopK
	}

	// Resolve language once at construction
	languagePrompt := cfg.Language
	if languagePrompt == "" || languagePrompt == "auto" {
		languagePrompt = "the same language as the user's input (auto-detect)"
	}

	// Apply resilience defaults if not configured
	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	tokenBudget := cfg.TokenBudget
	if tokenBudget.MaxHistoryTokens == 0 {
		tokenBudget.MaxHistoryTokens = DefaultTokenBudget().MaxHistoryTokens
	}
	if tokenBudget.MaxContextTokens == 0 {
		tokenBudget.MaxContextTokens = DefaultTokenBudget().MaxContextTokens
	}

	// Use provided rate limiter or create default
	// Default: 10 requests/sec sustained, burst of 30
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	// Cache tool refs and names at construction (zero allocation per request)
	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		// Immutable configuration
		modelName:      cfg.ModelName,
		languagePrompt: languagePrompt,
		maxTurns:       maxTurns,
		libraryTopK:    topK,

		// Resilience
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,

		// Token management
		tokenBudget: tokenBudget,

		// Dependencies
		g:         cfg.Genkit,
		retriever: cfg.Retriever,
		sessions:  cfg.SessionStore,
		logger:    cfg.Logger,
		tools:     cfg.Tools,                 // Already registered with Genkit
		toolRefs:  toolRefs,                  // Cached for ai.WithTools()
		toolNames: strings.Join(names, ", "), // Cached for logging
	}

	// Load Dotprompt (librarian.prompt) - REQUIRED
	a.prompt = genkit.LookupPrompt(a.g, LibrarianPromptName)
	if a.prompt == nil {
		return nil, fmt.Errorf("dotprompt '%s' not found: ensure prompts directory is configured correctly", LibrarianPromptName)
	}
	a.logger.Debug("loaded dotprompt successfully", "prompt_name", LibrarianPromptName)

	a.logger.Info("librarian agent initialized",
		"totalTools", len(a.tools),
		"maxTurns", a.maxTurns,
	)

	return a, nil
}

// Execute runs the agent with the given input (non-streaming).
// This is a convenience wrapper around ExecuteStream with nil callback.
func (a *Agent) Execute(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	return a.ExecuteStream(ctx, sessionID, input, nil)
}

// ExecuteStream runs the agent with optional streaming output.
// If callback is non-nil, it is called for each chunk of the response as
// it is generated; otherwise the response is generated without streaming.
// The final response is always returned after generation completes.
func (a *Agent) ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback StreamCallback) (*Response, error) {
	streaming := callback != nil
	a.logger.Debug("executing librarian agent",
		"session_id", sessionID,
		"streaming", streaming)

	// Load history and look up library context in parallel.
	type historyResult struct {
		msgs []*ai.Message
		err  error
	}
	type contextResult struct {
		text string
		err  error
	}

	// Buffered (cap 1) so a goroutine can finish its single send even if
	// the caller returns early on a context error.
	historyCh := make(chan historyResult, 1)
	contextCh := make(chan contextResult, 1)

	go func() {
		msgs, err := a.sessions.History(ctx, sessionID)
		historyCh <- historyResult{msgs, err}
	}()

	go func() {
		lookupCtx, cancel := context.WithTimeout(ctx, libraryContextTimeout)
		defer cancel()
		text, err := a.libraryContext(lookupCtx, input)
		contextCh <- contextResult{text, err}
	}()

	hr := <-historyCh
	if hr.err != nil {
		return nil, fmt.Errorf("getting history: %w", hr.err)
	}

	var libraryContext string
	cr := <-contextCh
	if cr.err != nil {
		a.logger.Debug("library context lookup failed", "error", cr.err) // non-fatal
	} else {
		libraryContext = cr.text
	}

	resp, err := a.generateResponse(ctx, input, hr.msgs, libraryContext, callback)
	if err != nil {
		return nil, err
	}

	responseText := resp.Text()

	// Only apply fallback when truly empty (no text AND no tool requests).
	// An empty text with pending tool requests is valid agentic behavior.
	if strings.TrimSpace(responseText) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response with no tool requests",
			"session_id", sessionID)
		responseText = fallbackResponseMessage
	}

	// Save the new turn to the session store
	newMessages := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(input)),
		ai.NewModelMessage(ai.NewTextPart(responseText)),
	}
	if err := a.sessions.AppendMessages(ctx, sessionID, newMessages); err != nil {
		a.logger.Warn("appending messages to history", "error", err) // best-effort: don't fail the request
	}

	return &Response{
		FinalText:    responseText,
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// generateResponse is the unified response generation logic for both
// streaming and non-streaming modes. libraryContext is injected into the
// prompt template; empty string means nothing relevant is on the shelves.
func (a *Agent) generateResponse(ctx context.Context, input string, historyMessages []*ai.Message, libraryContext string, callback StreamCallback) (*ai.ModelResponse, error) {
	// Build messages: deep copy history and append current user input.
	// CRITICAL: Deep copy is required to prevent a DATA RACE in Genkit's
	// renderMessages(), which modifies msg.Content in-place; concurrent
	// executions sharing the same message objects would race.
	messages := deepCopyMessages(historyMessages)

	// Apply token budget before adding the new message
	messages = a.truncateHistory(messages, a.tokenBudget.MaxHistoryTokens)

	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	// Build prompt input map
	promptInput := map[string]any{
		"language":     a.languagePrompt,
		"current_date": time.Now().Format("2006-01-02"),
	}
	if libraryContext != "" {
		promptInput["library_context"] = libraryContext
	}

	// Build execute options (using cached toolRefs and languagePrompt)
	opts := []ai.PromptExecuteOption{
		ai.WithInput(promptInput),
		ai.WithMessagesFn(func(_ context.Context, _ any) ([]*ai.Message, error) {
			return messages, nil
		}),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}

	// Override model from Dotprompt if configured (supports multi-provider)
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	// Add streaming callback if provided
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	// Diagnostic logging (using cached toolNames - zero allocation)
	a.logger.Debug("executing prompt",
		"toolCount", len(a.tools),
		"tools", a.toolNames,
		"maxTurns", a.maxTurns,
		"queryLength", len(input),
	)

	// Check circuit breaker before attempting request
	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("circuit breaker is open, rejecting request",
			"state", a.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	// Execute prompt with retry mechanism
	resp, err := a.executeWithRetry(ctx, opts)
	if err != nil {
		a.circuitBreaker.Failure()
		return nil, err
	}

	a.circuitBreaker.Success()
	return resp, nil
}

// libraryContext retrieves the library entries most relevant to the
// query and formats them for prompt injection. Both collections are
// searched; an empty string means nothing relevant is stored.
func (a *Agent) libraryContext(ctx context.Context, query string) (string, error) {
	req := &ai.RetrieverRequest{
		Query: ai.DocumentFromText(query, nil),
		Options: &postgresql.RetrieverOptions{
			K: a.libraryTopK,
		},
	}

	resp, err := a.retriever.Retrieve(ctx, req)
	if err != nil {
		return "", fmt.Errorf("retrieving library context: %w", err)
	}

	text := formatLibraryContext(resp.Documents, a.tokenBudget.MaxContextTokens)
	if text != "" {
		a.logger.Debug("injecting library context",
			"document_count", len(resp.Documents),
			"context_length", len(text),
		)
	}
	return text, nil
}

// formatLibraryContext joins document snippets, most relevant first,
// stopping at the first entry that would overflow the token budget.
func formatLibraryContext(docs []*ai.Document, maxTokens int) string {
	var b strings.Builder
	used := 0
	for _, doc := range docs {
		text := strings.TrimSpace(documentText(doc))
		if text == "" {
			continue
		}
		cost := estimateTokens(text)
		if used+cost > maxTokens {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("- ")
		b.WriteString(text)
		used += cost
	}
	return b.String()
}

// documentText extracts all text content from a document's parts.
func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deepCopyMessages creates independent copies of Message and Part structs.
//
// WORKAROUND: Genkit's renderMessages() modifies msg.Content in-place,
// causing data races in concurrent executions. This function creates
// independent struct copies to prevent the race.
//
// Tested version: github.com/firebase/genkit/go v1.4.0
//
// To remove this workaround:
// 1. Upgrade Genkit: go get -u github.com/firebase/genkit/go@latest
// 2. Run: go test -race ./internal/chat/...
// 3. If race detector passes, remove deepCopyMessages() calls
// 4. If race still fails, update version in this comment
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil // Preserve nil vs empty slice semantics
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart creates an independent copy of an ai.Part struct.
//
// Note on Input/Output fields: ToolRequest.Input and ToolResponse.Output
// are type `any` and copied by reference. This is acceptable because
// Genkit's renderMessages() only mutates msg.Content slices, not tool
// data, and tool inputs/outputs are JSON-serializable primitives. If a
// deep copy of these fields is ever needed, use an encoding/json round
// trip.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input, // Reference copy - see function doc
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output, // Reference copy - see function doc
			Ref:    p.ToolResponse.Ref,
		}
	}
	if p.Resource != nil {
		cp.Resource = &ai.ResourcePart{Uri: p.Resource.Uri}
	}
	return cp
}

// shallowCopyMap copies map keys and values but not nested structures.
// Nested maps, slices, or pointers remain shared with the original.
func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Title generation constants.
const (
	titleGenerationTimeout = 5 * time.Second
	titleInputMaxRunes     = 500
)

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a chat session based on this first message.`, session.TitleMaxLength) + `
The title should capture the main topic or intent.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

// GenerateTitle generates a concise session title from the user's first
// message. Best-effort: returns empty string on failure.
func (a *Agent) GenerateTitle(ctx context.Context, userMessage string) string {
	ctx, cancel := context.WithTimeout(ctx, titleGenerationTimeout)
	defer cancel()

	inputRunes := []rune(userMessage)
	if len(inputRunes) > titleInputMaxRunes {
		userMessage = string(inputRunes[:titleInputMaxRunes]) + "..."
	}

	opts := []ai.GenerateOption{
		ai.WithPrompt(titlePrompt, userMessage),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	response, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		a.logger.Debug("AI title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(response.Text())
	if title == "" {
		return ""
	}

	titleRunes := []rune(title)
	if len(titleRunes) > session.TitleMaxLength {
		title = string(titleRunes[:session.TitleMaxLength-3]) + "..."
	}

	return title
}
