package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "empty",
			text: "",
			want: 0,
		},
		{
			name: "short word",
			text: "hello",
			want: 1, // 5 chars / 4 = 1
		},
		{
			name: "sentence",
			text: "hello world this is a test",
			want: 6, // 26 chars / 4 = 6 + 5 spaces / 6 = 0
		},
		{
			name: "single rune",
			text: "a",
			want: 1, // minimum for non-empty text
		},
		{
			name: "multibyte counts runes",
			text: "日本語のテキスト",
			want: 2, // 8 runes / 4
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestEstimateTokens_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog\n", 200)
	first := EstimateTokens(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EstimateTokens(text))
	}
}

func TestEstimateTokens_GrowsWithAppendedText(t *testing.T) {
	words := strings.Fields(strings.Repeat("alpha beta gamma delta ", 50))
	prev := 0
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(w)
		got := EstimateTokens(b.String())
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestCountTokensForMessages(t *testing.T) {
	tokenizer := DefaultTokenizer{}

	tests := []struct {
		name     string
		messages []ChatMessage
		minWant  int
	}{
		{
			name: "single message",
			messages: []ChatMessage{
				{Role: RoleUser, Content: "hello"},
			},
			// Role(user=1) + Content(hello=1) + Overhead(4) = 6
			minWant: 6,
		},
		{
			name: "with tool calls",
			messages: []ChatMessage{
				{
					Role:    RoleAssistant,
					Content: "calling tool",
					ToolCalls: []ToolCall{
						{Name: "youtube_search", Args: map[string]any{"query": "black holes"}},
					},
				},
			},
			minWant: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountTokensForMessages(tokenizer, tt.messages)
			assert.GreaterOrEqual(t, got, tt.minWant)
		})
	}
}
