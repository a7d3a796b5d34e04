package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// Tone is the conversational framing the user picks before a session.
type Tone string

const (
	ToneVent    Tone = "vent"
	ToneChat    Tone = "chat"
	ToneUnwind  Tone = "unwind"
	ToneReflect Tone = "reflect"
)

// ToneInfo describes a tone for clients and for the prompt.
type ToneInfo struct {
	ID          Tone   `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Modifier    string `json:"-"`
}

var tones = []ToneInfo{
	{
		ID:          ToneVent,
		Label:       "Vent",
		Description: "Get something off your chest without being fixed.",
		Modifier: `The user wants to vent. Let them lead. Do not offer solutions, silver linings or advice
unless they ask for it. Validate what they feel and keep your questions gentle and short.`,
	},
	{
		ID:          ToneChat,
		Label:       "Chat",
		Description: "A relaxed conversation about your day.",
		Modifier: `The user wants a casual chat. Be friendly and curious about the small details of their
day. Light humour is fine when they set the tone.`,
	},
	{
		ID:          ToneUnwind,
		Label:       "Unwind",
		Description: "Slow down and decompress before rest.",
		Modifier: `The user wants to unwind. Speak slowly and calmly. Steer toward what went well, what they
can let go of tonight, and how their body feels right now.`,
	},
	{
		ID:          ToneReflect,
		Label:       "Reflect",
		Description: "Look back on patterns and what they mean to you.",
		Modifier: `The user wants to reflect. Help them notice patterns across recent days and connect
today's events to what they care about. Ask one thoughtful question at a time.`,
	},
}

// Tones returns the supported tones in display order.
func Tones() []ToneInfo {
	out := make([]ToneInfo, len(tones))
	copy(out, tones)
	return out
}

// ParseTone resolves a tone id. Matching ignores case and surrounding space.
func ParseTone(s string) (ToneInfo, error) {
	id := Tone(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range tones {
		if t.ID == id {
			return t, nil
		}
	}
	return ToneInfo{}, fmt.Errorf("%w: unknown tone %q", ErrValidation, s)
}

// ContextWindowDays and ContextMaxEntries bound the recent history fed into the prompt.
const (
	ContextWindowDays = 7
	ContextMaxEntries = 7
)

// MoodDay is one recent mood score labelled with its day.
type MoodDay struct {
	Day       string `json:"day"`
	MoodScore string `json:"moodScore"`
}

// EventsDay is one entry's significant events labelled with its day.
type EventsDay struct {
	Day               string   `json:"day"`
	SignificantEvents []string `json:"significantEvents"`
}

// ContextBundle is everything the prompt needs to know about the user.
type ContextBundle struct {
	Memory                    []string    `json:"memory"`
	Details                   string      `json:"details"`
	MoodScoresWithDays        []MoodDay   `json:"moodScoresWithDays"`
	SignificantEventsWithDays []EventsDay `json:"significantEventsWithDays"`
}

// DayLabel renders t as "Monday 2026-10-19" in UTC.
func DayLabel(t time.Time) string {
	return t.UTC().Format("Monday 2006-01-02")
}

// BuildContextBundle assembles the bundle from a user (nil for someone who has never submitted)
// and their recent entries, newest first. At most ContextMaxEntries entries are used.
func BuildContextBundle(user *models.User, recent []models.JournalEntry) ContextBundle {
	b := ContextBundle{
		Memory:                    []string{},
		MoodScoresWithDays:        []MoodDay{},
		SignificantEventsWithDays: []EventsDay{},
	}
	if user != nil {
		b.Memory = append(b.Memory, user.Memory...)
		b.Details = user.Details
	}
	if len(recent) > ContextMaxEntries {
		recent = recent[:ContextMaxEntries]
	}
	for _, e := range recent {
		day := DayLabel(e.CreatedAt)
		b.MoodScoresWithDays = append(b.MoodScoresWithDays, MoodDay{Day: day, MoodScore: e.MoodScore})
		if len(e.SignificantEvents) > 0 {
			events := make([]string, len(e.SignificantEvents))
			copy(events, e.SignificantEvents)
			b.SignificantEventsWithDays = append(b.SignificantEventsWithDays, EventsDay{Day: day, SignificantEvents: events})
		}
	}
	return b
}

// ComposePrompt builds the voice agent's system prompt. It is a pure function of its inputs.
func ComposePrompt(tone ToneInfo, bundle ContextBundle) string {
	var b strings.Builder

	b.WriteString(basePersona)
	b.WriteString("\n\n")
	b.WriteString(tone.Modifier)
	b.WriteString("\n\n----\n")

	fmt.Fprintf(&b, "Chosen tone: %s (%s)\n", tone.Label, tone.Description)

	if d := strings.TrimSpace(bundle.Details); d != "" {
		b.WriteString("\nAbout the user:\n")
		b.WriteString(d)
		b.WriteString("\n")
	}

	b.WriteString("\nWhat you remember about the user:\n")
	if len(bundle.Memory) == 0 {
		b.WriteString("Nothing yet.\n")
	}
	for i, m := range bundle.Memory {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(m)
		b.WriteString("\n")
	}

	b.WriteString("\nMood over the last 7 days (0-100, newest first):\n")
	if len(bundle.MoodScoresWithDays) == 0 {
		b.WriteString("No entries.\n")
	}
	for _, m := range bundle.MoodScoresWithDays {
		fmt.Fprintf(&b, "- %s: %s\n", m.Day, m.MoodScore)
	}

	b.WriteString("\nSignificant events over the last 7 days:\n")
	if len(bundle.SignificantEventsWithDays) == 0 {
		b.WriteString("None.\n")
	}
	for _, e := range bundle.SignificantEventsWithDays {
		fmt.Fprintf(&b, "- %s: %s\n", e.Day, strings.Join(e.SignificantEvents, "; "))
	}
	b.WriteString("----")

	return b.String()
}
