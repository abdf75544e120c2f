package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/easywatch/internal/observability"
)

// DefaultTranscriptBaseURL is the youtube-transcript.io API host.
const DefaultTranscriptBaseURL = "https://www.youtube-transcript.io"

// TranscriptClient fetches caption text from youtube-transcript.io.
type TranscriptClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewTranscriptClient(baseURL, token string, timeout time.Duration) *TranscriptClient {
	if baseURL == "" {
		baseURL = DefaultTranscriptBaseURL
	}
	return &TranscriptClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type transcriptRequest struct {
	IDs []string `json:"ids"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Tracks []struct {
		Language   string `json:"language"`
		Transcript []struct {
			Text string `json:"text"`
		} `json:"transcript"`
	} `json:"tracks"`
}

// Fetch returns the first non-empty caption track of videoID as one string,
// segments joined by spaces. A video without tracks fails with ErrNoTranscript.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string) (string, error) {
	jsonData, err := json.Marshal(transcriptRequest{IDs: []string{videoID}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcripts", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript API error (status %d): %s", resp.StatusCode, observability.Preview(string(body), 200))
	}

	var results []transcriptResponse
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	for _, r := range results {
		if r.ID != "" && r.ID != videoID {
			continue
		}
		for _, track := range r.Tracks {
			parts := make([]string, 0, len(track.Transcript))
			for _, seg := range track.Transcript {
				if t := strings.TrimSpace(seg.Text); t != "" {
					parts = append(parts, t)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " "), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoTranscript, videoID)
}
