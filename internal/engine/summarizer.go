package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SummarizerConfig holds the length-branch policy values.
type SummarizerConfig struct {
	Threshold     int // summarize only above this many estimated tokens
	ChunkTokens   int // max estimated tokens per chunk
	OverlapTokens int // estimated tokens repeated at the start of the next chunk
}

// DefaultSummarizerConfig returns the policy values used in production.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Threshold:     6000,
		ChunkTokens:   7000,
		OverlapTokens: 100,
	}
}

// ChunkedSummarizer reduces a long text by summarizing overlapping chunks
// independently and concatenating the summaries with newlines. There is no
// second pass over the concatenation: a very long transcript yields a long
// list of chunk summaries rather than one merged summary.
type ChunkedSummarizer struct {
	llm          LLMClient
	model        string
	systemPrompt string
	cfg          SummarizerConfig
	callTimeout  time.Duration
	opts         ChatOptions
}

func NewChunkedSummarizer(llm LLMClient, model, systemPrompt string, cfg SummarizerConfig, callTimeout time.Duration) *ChunkedSummarizer {
	return &ChunkedSummarizer{
		llm:          llm,
		model:        model,
		systemPrompt: systemPrompt,
		cfg:          cfg,
		callTimeout:  callTimeout,
		opts:         ChatOptions{MaxOutputTokens: 1024, Temperature: 0.3},
	}
}

// NeedsSummary reports whether text exceeds the summarization threshold.
func (s *ChunkedSummarizer) NeedsSummary(text string) bool {
	return EstimateTokens(text) > s.cfg.Threshold
}

// SummarizeLong summarizes every chunk of text in order. Any chunk failure
// aborts the whole reduction with ErrSummarizationFailed.
func (s *ChunkedSummarizer) SummarizeLong(ctx context.Context, text string) (string, error) {
	chunks := ChunkText(text, s.cfg.ChunkTokens, s.cfg.OverlapTokens)
	if len(chunks) == 0 {
		return "", nil
	}

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		msgs := []ChatMessage{
			{Role: RoleSystem, Content: s.systemPrompt},
			{Role: RoleUser, Content: chunk},
		}
		resp, err := chatWithTimeout(ctx, s.llm, s.callTimeout, s.model, msgs, nil, s.opts)
		if err != nil {
			return "", fmt.Errorf("%w: chunk %d/%d: %w", ErrSummarizationFailed, i+1, len(chunks), err)
		}
		summaries = append(summaries, strings.TrimSpace(resp.Assistant.Content))
	}

	return strings.Join(summaries, "\n"), nil
}

// ChunkText splits text at word boundaries into chunks whose estimated size
// is at most chunkTokens. Consecutive chunks share a tail of roughly
// overlapTokens so content at a boundary appears in both. Words are rejoined
// with single spaces.
func ChunkText(text string, chunkTokens, overlapTokens int) []string {
	if chunkTokens <= 0 {
		return nil
	}
	words := splitOversized(strings.Fields(text), chunkTokens)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start
		chars, spaces := 0, 0
		for end < len(words) {
			addChars, addSpaces := utf8.RuneCountInString(words[end]), 0
			if end > start {
				addChars++
				addSpaces = 1
			}
			if end > start && estimateFromCounts(chars+addChars, spaces+addSpaces) > chunkTokens {
				break
			}
			chars += addChars
			spaces += addSpaces
			end++
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}

		start = end - overlapWords(words[start:end], overlapTokens)
	}
	return chunks
}

// overlapWords returns how many trailing words of chunk fit in overlapTokens,
// always leaving at least one word behind so the next chunk makes progress.
func overlapWords(chunk []string, overlapTokens int) int {
	if overlapTokens <= 0 {
		return 0
	}
	k, chars, spaces := 0, 0, 0
	for k < len(chunk)-1 {
		w := chunk[len(chunk)-1-k]
		addChars, addSpaces := utf8.RuneCountInString(w), 0
		if k > 0 {
			addChars++
			addSpaces = 1
		}
		if estimateFromCounts(chars+addChars, spaces+addSpaces) > overlapTokens {
			break
		}
		chars += addChars
		spaces += addSpaces
		k++
	}
	return k
}

// splitOversized cuts any single word that alone exceeds the chunk budget.
func splitOversized(words []string, chunkTokens int) []string {
	maxRunes := chunkTokens * 4
	out := make([]string, 0, len(words))
	for _, w := range words {
		if EstimateTokens(w) <= chunkTokens {
			out = append(out, w)
			continue
		}
		r := []rune(w)
		for len(r) > 0 {
			n := min(maxRunes, len(r))
			out = append(out, string(r[:n]))
			r = r[n:]
		}
	}
	return out
}
