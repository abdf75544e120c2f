package tools

import (
	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/tools/video"
	"github.com/ChamsBouzaiene/easywatch/internal/youtube"
)

// NewToolRegistry binds the declared tools to the YouTube clients.
// data serves both search and transcript metadata.
func NewToolRegistry(data *youtube.DataClient, transcripts *youtube.TranscriptClient) *engine.ToolRegistry {
	return engine.NewToolRegistry(
		video.NewSearchTool(data),
		video.NewFetchTranscriptTool(transcripts, data),
	)
}
