package video

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/youtube"
)

type fakeSearcher struct {
	videos []youtube.Video
	err    error
	query  string
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int64) ([]youtube.Video, error) {
	f.query = query
	return f.videos, f.err
}

type fakeTranscripts struct {
	text  string
	err   error
	delay time.Duration
}

func (f fakeTranscripts) Fetch(ctx context.Context, _ string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeMeta struct {
	video   *youtube.Video
	err     error
	delay   time.Duration
	running *atomic.Int32
}

func (f fakeMeta) Video(ctx context.Context, id string) (*youtube.Video, error) {
	if f.running != nil {
		f.running.Add(1)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.video, f.err
}

func TestSearchTool(t *testing.T) {
	s := &fakeSearcher{videos: []youtube.Video{
		{ID: "bh1", Title: "Black Holes", Channel: "Kurzgesagt", Views: "10"},
	}}
	tool := NewSearchTool(s)

	out, err := tool.Fn(context.Background(), map[string]any{"query": "  black holes "})
	require.NoError(t, err)
	videos := out.([]engine.VideoSummary)
	require.Len(t, videos, 1)
	assert.Equal(t, "black holes", s.query)
	assert.Equal(t, "https://www.youtube.com/watch?v=bh1", videos[0].URL)
	assert.Equal(t, "Kurzgesagt", videos[0].Channel)

	_, err = tool.Fn(context.Background(), map[string]any{"query": " "})
	assert.ErrorIs(t, err, engine.ErrInvalidArguments)

	s.err = errors.New("quota exceeded")
	_, err = tool.Fn(context.Background(), map[string]any{"query": "x"})
	assert.EqualError(t, err, "quota exceeded")
}

func TestFetchTranscriptTool(t *testing.T) {
	meta := fakeMeta{video: &youtube.Video{ID: "abc123", Title: "Title", Duration: "PT5M", Views: "7", PublishedAt: "2024-01-01T00:00:00Z"}}
	tool := NewFetchTranscriptTool(fakeTranscripts{text: "hello world"}, meta)

	out, err := tool.Fn(context.Background(), map[string]any{"url": "https://www.youtube.com/watch?v=abc123"})
	require.NoError(t, err)
	tr := out.(*engine.Transcript)
	assert.Equal(t, &engine.Transcript{
		VideoID:     "abc123",
		Text:        "hello world",
		Title:       "Title",
		PublishedAt: "2024-01-01T00:00:00Z",
		Duration:    "PT5M",
		ViewCount:   "7",
	}, tr)
}

func TestFetchTranscriptTool_Errors(t *testing.T) {
	ctx := context.Background()

	tool := NewFetchTranscriptTool(fakeTranscripts{text: "x"}, nil)
	_, err := tool.Fn(ctx, map[string]any{"url": "not a url"})
	assert.ErrorIs(t, err, engine.ErrInvalidURL)

	tool = NewFetchTranscriptTool(fakeTranscripts{err: youtube.ErrNoTranscript}, nil)
	_, err = tool.Fn(ctx, map[string]any{"url": "https://youtu.be/abc"})
	assert.ErrorIs(t, err, engine.ErrTranscriptUnavailable)

	boom := errors.New("connection reset")
	tool = NewFetchTranscriptTool(fakeTranscripts{err: boom}, nil)
	_, err = tool.Fn(ctx, map[string]any{"url": "https://youtu.be/abc"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, engine.ErrTranscriptUnavailable)
}

func TestFetchTranscriptTool_MetadataFailureKeepsTranscript(t *testing.T) {
	tool := NewFetchTranscriptTool(fakeTranscripts{text: "words"}, fakeMeta{err: youtube.ErrVideoNotFound})

	out, err := tool.Fn(context.Background(), map[string]any{"url": "https://youtu.be/abc"})
	require.NoError(t, err)
	tr := out.(*engine.Transcript)
	assert.Equal(t, "words", tr.Text)
	assert.Empty(t, tr.Title)
}

func TestFetchTranscriptTool_FetchesConcurrently(t *testing.T) {
	var running atomic.Int32
	tool := NewFetchTranscriptTool(
		fakeTranscripts{text: "t", delay: 100 * time.Millisecond},
		fakeMeta{video: &youtube.Video{Title: "T"}, delay: 100 * time.Millisecond, running: &running},
	)

	start := time.Now()
	_, err := tool.Fn(context.Background(), map[string]any{"url": "https://youtu.be/abc"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 190*time.Millisecond)
	assert.Equal(t, int32(1), running.Load())
}
