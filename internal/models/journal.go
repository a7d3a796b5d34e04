package models

import (
	"time"
)

// JournalEntry is one analysed journaling session. Rows are written once and never updated.
type JournalEntry struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"userId"`
	RawEntry          string    `json:"rawEntry"`
	SummarizedEntry   string    `json:"summarizedEntry"`
	Title             string    `json:"title"`
	MoodScore         string    `json:"moodScore"` // decimal with two places, e.g. "72.50"
	SignificantEvents []string  `json:"significantEvents"`
	CreatedAt         time.Time `json:"createdAt"`
}

// MaxSignificantEvents bounds JournalEntry.SignificantEvents.
const MaxSignificantEvents = 4

// Transcript speakers.
const (
	SourceUser = "user"
	SourceAI   = "ai"
)

// TranscriptMessage is a single turn captured during a live voice session.
type TranscriptMessage struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// DailyMood is one point on the mood trend chart.
type DailyMood struct {
	Date      string  `json:"date"`
	MoodScore float64 `json:"moodScore"`
	Entries   int     `json:"entries"`
}
