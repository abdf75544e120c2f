package youtube

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidURL is returned when no video id can be found in a URL.
	ErrInvalidURL = errors.New("invalid youtube url")
	// ErrNoTranscript is returned when the transcript service has no tracks.
	ErrNoTranscript = errors.New("no transcript tracks")
	// ErrVideoNotFound is returned when the Data API knows no such video.
	ErrVideoNotFound = errors.New("video not found")
)

var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([\w-]+)`)

// ExtractVideoID returns the id from a watch URL (...v=ID) or a short
// link (...youtu.be/ID).
func ExtractVideoID(rawURL string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return m[1], nil
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Video is the metadata the assistant shows for a video.
type Video struct {
	ID          string
	Title       string
	Description string
	Channel     string
	Views       string // decimal view count, "0" when hidden
	Thumbnail   string
	PublishedAt string
	Duration    string // ISO-8601, as returned by the API
}
