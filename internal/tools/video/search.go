package video

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/youtube"
)

// Searcher finds videos for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int64) ([]youtube.Video, error)
}

func searchImpl(ctx context.Context, s Searcher, query string) ([]engine.VideoSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", engine.ErrInvalidArguments)
	}

	videos, err := s.Search(ctx, query, youtube.DefaultSearchResults)
	if err != nil {
		return nil, err
	}

	out := make([]engine.VideoSummary, 0, len(videos))
	for _, v := range videos {
		out = append(out, engine.VideoSummary{
			VideoID:     v.ID,
			Title:       v.Title,
			Description: v.Description,
			Channel:     v.Channel,
			Views:       v.Views,
			URL:         youtube.WatchURL(v.ID),
			Thumbnail:   v.Thumbnail,
		})
	}
	return out, nil
}

// NewSearchTool creates the youtube_search tool.
func NewSearchTool(s Searcher) engine.Tool {
	return engine.Tool{
		Kind: engine.ToolSearch,
		Description: `Search YouTube for videos matching a query. Returns up to 10 videos with video_id, title, description, channel, views, url and thumbnail so the user can pick one to summarize.

Use it when the user asks for a video, movie, clip or tutorial without giving a link.`,
		SchemaJSON: `{"type":"object","properties":{"query":{"type":"string","description":"The query to search for. Could be the title or a description of the video."}},"required":["query"]}`,
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			a, err := engine.DecodeArgs[engine.SearchArgs](args)
			if err != nil {
				return nil, err
			}
			return searchImpl(ctx, s, a.Query)
		},
	}
}
