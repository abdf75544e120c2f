package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numberedWords returns "w0 w1 ... w(n-1)" so chunk positions are recoverable.
func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func wordIndex(t *testing.T, w string) int {
	t.Helper()
	i, err := strconv.Atoi(strings.TrimPrefix(w, "w"))
	require.NoError(t, err)
	return i
}

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", 100, 10))
	assert.Nil(t, ChunkText("   \n\t ", 100, 10))
	assert.Nil(t, ChunkText("some text", 0, 0))
}

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	chunks := ChunkText("hello   world\nagain", 100, 10)
	assert.Equal(t, []string{"hello world again"}, chunks)
}

func TestChunkText_BoundsCoverageAndOverlap(t *testing.T) {
	const total = 5000
	text := numberedWords(total)
	chunks := ChunkText(text, 200, 20)
	require.Greater(t, len(chunks), 1)

	prevFirst, prevLast := -1, -1
	for i, c := range chunks {
		assert.LessOrEqual(t, EstimateTokens(c), 200, "chunk %d over budget", i)

		words := strings.Fields(c)
		first, last := wordIndex(t, words[0]), wordIndex(t, words[len(words)-1])
		assert.Equal(t, len(words)-1, last-first, "chunk %d is not contiguous", i)

		if i == 0 {
			assert.Equal(t, 0, first)
		} else {
			assert.Greater(t, first, prevFirst, "chunk %d makes no progress", i)
			assert.LessOrEqual(t, first, prevLast, "chunk %d does not overlap its predecessor", i)
			overlap := strings.Join(strings.Fields(chunks[i-1])[first-prevFirst:], " ")
			assert.LessOrEqual(t, EstimateTokens(overlap), 20)
		}
		prevFirst, prevLast = first, last
	}
	assert.Equal(t, total-1, prevLast)
}

func TestChunkText_NoOverlapConcatenatesExactly(t *testing.T) {
	text := numberedWords(3000)
	chunks := ChunkText(text, 150, 0)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestChunkText_SplitsOversizedWord(t *testing.T) {
	long := strings.Repeat("x", 100)
	chunks := ChunkText("a "+long+" b", 10, 0)
	for _, c := range chunks {
		assert.LessOrEqual(t, EstimateTokens(c), 10)
	}
	assert.Equal(t, "a"+long+"b", strings.ReplaceAll(strings.Join(chunks, ""), " ", ""))
}

func TestNeedsSummary_Threshold(t *testing.T) {
	s := NewChunkedSummarizer(scripted(), "m", "p", DefaultSummarizerConfig(), time.Second)
	assert.False(t, s.NeedsSummary(strings.Repeat("a", 24000))) // exactly 6000
	assert.True(t, s.NeedsSummary(strings.Repeat("a", 24004)))  // 6001
}

func TestSummarizeLong_JoinsChunkSummariesInOrder(t *testing.T) {
	llm := &fakeLLM{fn: func(_ context.Context, n int, msgs []ChatMessage, _ []ToolSchema) (LLMResponse, error) {
		return textReply(fmt.Sprintf("  part %d  ", n)), nil
	}}
	cfg := SummarizerConfig{Threshold: 50, ChunkTokens: 100, OverlapTokens: 10}
	s := NewChunkedSummarizer(llm, "m", "summarize this part", cfg, time.Second)

	text := numberedWords(1000)
	out, err := s.SummarizeLong(context.Background(), text)
	require.NoError(t, err)

	n := len(ChunkText(text, 100, 10))
	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("part %d", i)
	}
	assert.Equal(t, strings.Join(want, "\n"), out)

	calls := llm.Calls()
	require.Len(t, calls, n)
	assert.Equal(t, "summarize this part", calls[0].msgs[0].Content)
	assert.Equal(t, RoleUser, calls[0].msgs[1].Role)
	assert.Empty(t, calls[0].schemas)
}

func TestSummarizeLong_AnyChunkFailureFails(t *testing.T) {
	llm := &fakeLLM{fn: func(_ context.Context, n int, _ []ChatMessage, _ []ToolSchema) (LLMResponse, error) {
		if n == 1 {
			return LLMResponse{}, errors.New("bad request")
		}
		return textReply("ok"), nil
	}}
	cfg := SummarizerConfig{Threshold: 50, ChunkTokens: 100, OverlapTokens: 10}
	s := NewChunkedSummarizer(llm, "m", "p", cfg, time.Second)

	out, err := s.SummarizeLong(context.Background(), numberedWords(1000))
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrSummarizationFailed)
	assert.ErrorIs(t, err, ErrModelCallFailed)
	assert.Len(t, llm.Calls(), 2)
}
