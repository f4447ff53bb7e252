package chat

import (
	"slices"

	"github.com/firebase/genkit/go/ai"
)

// TokenBudget controls how much of the model's context window the agent
// spends on each input category.
type TokenBudget struct {
	MaxHistoryTokens int // Maximum tokens for conversation history
	MaxContextTokens int // Maximum tokens for injected library context
}

// DefaultTokenBudget returns a budget sized for ~32k context models,
// leaving room for the system prompt, tools, and the response.
func DefaultTokenBudget() TokenBudget {
	return TokenBudget{
		MaxHistoryTokens: 8000,
		MaxContextTokens: 2000,
	}
}

// estimateTokens approximates the token count of a string using a
// runes/2 heuristic: CJK is roughly one token per rune, English roughly
// one per four, and halving rune count averages mixed input acceptably.
// Any non-empty string costs at least one token.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len([]rune(text)) / 2
	if n < 1 {
		return 1
	}
	return n
}

// estimateMessagesTokens estimates total tokens across messages by
// summing their text parts.
func estimateMessagesTokens(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		for _, part := range msg.Content {
			total += estimateTokens(part.Text)
		}
	}
	return total
}

// truncateHistory drops old messages until the remainder fits maxTokens.
// A leading system message is always kept and its cost counts against
// the budget. Remaining messages are kept newest first; a message too
// large for the remaining budget is skipped rather than stopping the
// walk, so one oversized message in the middle does not discard
// everything older than it.
func (a *Agent) truncateHistory(msgs []*ai.Message, maxTokens int) []*ai.Message {
	if len(msgs) == 0 {
		return msgs
	}

	used := 0
	var system *ai.Message
	rest := msgs
	if msgs[0].Role == ai.RoleSystem {
		system = msgs[0]
		used = estimateMessagesTokens(msgs[:1])
		rest = msgs[1:]
	}

	kept := make([]*ai.Message, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		cost := estimateMessagesTokens(rest[i : i+1])
		if used+cost > maxTokens {
			continue
		}
		kept = append(kept, rest[i])
		used += cost
	}
	slices.Reverse(kept)

	if len(kept) < len(rest) {
		a.logger.Debug("history truncated to fit token budget",
			"dropped", len(rest)-len(kept),
			"kept", len(kept),
			"estimatedTokens", used,
		)
	}

	if system != nil {
		return append([]*ai.Message{system}, kept...)
	}
	return kept
}
