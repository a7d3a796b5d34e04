package services

import (
	"strings"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// AssembleTranscript renders each turn as "<source>: <message>", one per line, in order.
func AssembleTranscript(messages []models.TranscriptMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Source+": "+m.Message)
	}
	return strings.Join(lines, "\n")
}

// ValidSource reports whether s is a known transcript speaker.
func ValidSource(s string) bool {
	return s == models.SourceUser || s == models.SourceAI
}
