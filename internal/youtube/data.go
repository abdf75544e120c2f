package youtube

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultSearchResults is how many videos a search returns.
const DefaultSearchResults = 10

var videoParts = []string{"snippet", "statistics", "contentDetails"}

// DataClient wraps the YouTube Data API v3 for search and video metadata.
type DataClient struct {
	svc *ytapi.Service
}

// NewDataClient creates a Data API client authenticated by apiKey. Extra
// options (endpoint, HTTP client) are applied after the key.
func NewDataClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataClient, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := ytapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &DataClient{svc: svc}, nil
}

// Search finds up to limit videos for query. Search hits are enriched with one
// batched videos.list call; a hit the batch does not return keeps its search
// snippet.
func (c *DataClient) Search(ctx context.Context, query string, limit int64) ([]Video, error) {
	if limit <= 0 {
		limit = DefaultSearchResults
	}

	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	var ids []string
	hits := make(map[string]*ytapi.SearchResult, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		hits[item.Id.VideoId] = item
	}
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := c.videos(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := details[id]; ok {
			out = append(out, videoFromItem(v))
			continue
		}
		out = append(out, videoFromSearch(hits[id]))
	}
	return out, nil
}

// Video returns the metadata of one video.
func (c *DataClient) Video(ctx context.Context, id string) (*Video, error) {
	details, err := c.videos(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	item, ok := details[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, id)
	}
	v := videoFromItem(item)
	return &v, nil
}

func (c *DataClient) videos(ctx context.Context, ids []string) (map[string]*ytapi.Video, error) {
	resp, err := c.svc.Videos.List(videoParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list: %w", err)
	}
	out := make(map[string]*ytapi.Video, len(resp.Items))
	for _, item := range resp.Items {
		out[item.Id] = item
	}
	return out, nil
}

func videoFromItem(item *ytapi.Video) Video {
	v := Video{ID: item.Id, Views: "0"}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.Channel = s.ChannelTitle
		v.PublishedAt = s.PublishedAt
		v.Thumbnail = highThumbnail(s.Thumbnails)
	}
	if st := item.Statistics; st != nil && st.ViewCount > 0 {
		v.Views = strconv.FormatUint(st.ViewCount, 10)
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = cd.Duration
	}
	return v
}

func videoFromSearch(item *ytapi.SearchResult) Video {
	v := Video{ID: item.Id.VideoId, Views: "0"}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.Channel = s.ChannelTitle
		v.PublishedAt = s.PublishedAt
		v.Thumbnail = highThumbnail(s.Thumbnails)
	}
	return v
}

func highThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
