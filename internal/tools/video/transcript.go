package video

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/youtube"
)

// TranscriptSource returns the caption text of a video.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// MetadataSource returns the metadata of a video.
type MetadataSource interface {
	Video(ctx context.Context, id string) (*youtube.Video, error)
}

// fetchTranscriptImpl fetches transcript text and metadata concurrently and
// returns once both are done. A metadata failure leaves the metadata fields
// empty; a transcript failure fails the call.
func fetchTranscriptImpl(ctx context.Context, transcripts TranscriptSource, meta MetadataSource, rawURL string) (*engine.Transcript, error) {
	id, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidURL, err)
	}

	var (
		text string
		info *youtube.Video
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := transcripts.Fetch(gctx, id)
		if err != nil {
			if errors.Is(err, youtube.ErrNoTranscript) {
				return fmt.Errorf("%w: %v", engine.ErrTranscriptUnavailable, err)
			}
			return err
		}
		text = t
		return nil
	})
	if meta != nil {
		g.Go(func() error {
			v, err := meta.Video(gctx, id)
			if err == nil {
				info = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tr := &engine.Transcript{VideoID: id, Text: text}
	if info != nil {
		tr.Title = info.Title
		tr.Description = info.Description
		tr.PublishedAt = info.PublishedAt
		tr.Duration = info.Duration
		tr.ViewCount = info.Views
	}
	return tr, nil
}

// NewFetchTranscriptTool creates the fetch_transcript tool. meta may be nil,
// in which case only the transcript text is returned.
func NewFetchTranscriptTool(transcripts TranscriptSource, meta MetadataSource) engine.Tool {
	return engine.Tool{
		Kind:        engine.ToolFetchTranscript,
		Description: "Fetch the transcript of a YouTube video from its URL (youtube.com/watch?v=... or youtu.be/...). Returns the transcript text with the video's title, description, publish date, duration and view count.",
		SchemaJSON:  `{"type":"object","properties":{"url":{"type":"string","description":"The URL of the YouTube video."}},"required":["url"]}`,
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			a, err := engine.DecodeArgs[engine.FetchTranscriptArgs](args)
			if err != nil {
				return nil, err
			}
			return fetchTranscriptImpl(ctx, transcripts, meta, a.URL)
		},
	}
}
