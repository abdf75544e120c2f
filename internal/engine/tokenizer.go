package engine

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Tokenizer provides token counting for text.
type Tokenizer interface {
	// CountTokens returns the estimated number of tokens in text.
	CountTokens(text string) int
}

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English text.
// It is used as a threshold signal, not for billing.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := utf8.RuneCountInString(text)
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	return estimateFromCounts(charCount, whitespaceCount)
}

// estimateFromCounts is the formula behind EstimateTokens:
// (characters / 4) + (whitespace / 6), minimum 1 for non-empty text.
func estimateFromCounts(chars, whitespace int) int {
	if chars == 0 {
		return 0
	}
	estimated := (chars / 4) + (whitespace / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// DefaultTokenizer uses estimation; no provider ships a local tokenizer for
// the models we talk to.
type DefaultTokenizer struct{}

// CountTokens implements Tokenizer using estimation.
func (DefaultTokenizer) CountTokens(text string) int {
	return EstimateTokens(text)
}

// CountTokensForMessages counts tokens for a slice of messages.
// It includes formatting overhead (role names, separators) in the count.
func CountTokensForMessages(tokenizer Tokenizer, messages []ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += tokenizer.CountTokens(string(msg.Role))
		total += tokenizer.CountTokens(msg.Content)

		for _, tc := range msg.ToolCalls {
			total += tokenizer.CountTokens(tc.Name)
			argsJSON, _ := json.Marshal(tc.Args)
			total += tokenizer.CountTokens(string(argsJSON))
		}

		// ~4 tokens of per-message formatting overhead
		total += 4
	}
	return total
}

// CountTokensForSchemas estimates the prompt cost of declared tool schemas.
func CountTokensForSchemas(tokenizer Tokenizer, schemas []ToolSchema) int {
	total := 0
	for _, s := range schemas {
		total += tokenizer.CountTokens(s.Name) + tokenizer.CountTokens(s.Description) + tokenizer.CountTokens(s.JSONSchema) + 10
	}
	return total
}
