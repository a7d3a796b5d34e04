package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

func TestDayLabel(t *testing.T) {
	t.Parallel()

	got := DayLabel(time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC))
	if got != "Monday 2026-10-19" {
		t.Fatalf("DayLabel=%q", got)
	}

	// Labels are computed in UTC regardless of the input location.
	loc := time.FixedZone("UTC-7", -7*60*60)
	got = DayLabel(time.Date(2026, 10, 19, 20, 0, 0, 0, loc))
	if got != "Tuesday 2026-10-20" {
		t.Fatalf("DayLabel offset=%q", got)
	}
}

func TestParseTone(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"vent", "CHAT", " unwind ", "Reflect"} {
		tone, err := ParseTone(id)
		if err != nil {
			t.Fatalf("ParseTone(%q): %v", id, err)
		}
		if string(tone.ID) != strings.ToLower(strings.TrimSpace(id)) {
			t.Fatalf("ParseTone(%q).ID=%q", id, tone.ID)
		}
	}
	for _, id := range []string{"", "angry", "ventt"} {
		if _, err := ParseTone(id); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseTone(%q) err=%v", id, err)
		}
	}
	if n := len(Tones()); n != 4 {
		t.Fatalf("len(Tones())=%d", n)
	}
}

func TestBuildContextBundle(t *testing.T) {
	t.Parallel()

	t.Run("nil user", func(t *testing.T) {
		b := BuildContextBundle(nil, nil)
		if b.Memory == nil || b.MoodScoresWithDays == nil || b.SignificantEventsWithDays == nil {
			t.Fatalf("bundle has nil slices: %+v", b)
		}
		if b.Details != "" {
			t.Fatalf("Details=%q", b.Details)
		}
	})

	t.Run("truncates and skips empty events", func(t *testing.T) {
		day := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		var recent []models.JournalEntry
		for i := 0; i < ContextMaxEntries+3; i++ {
			e := models.JournalEntry{
				MoodScore: fmt.Sprintf("%d.00", 50+i),
				CreatedAt: day.AddDate(0, 0, -i),
			}
			if i%2 == 0 {
				e.SignificantEvents = []string{fmt.Sprintf("event %d", i)}
			}
			recent = append(recent, e)
		}
		user := &models.User{Memory: []string{"a", "b"}, Details: "Nurse, night shifts"}

		b := BuildContextBundle(user, recent)
		if len(b.MoodScoresWithDays) != ContextMaxEntries {
			t.Fatalf("moods=%d, want %d", len(b.MoodScoresWithDays), ContextMaxEntries)
		}
		if b.MoodScoresWithDays[0].Day != "Monday 2026-10-19" || b.MoodScoresWithDays[0].MoodScore != "50.00" {
			t.Fatalf("first mood=%+v", b.MoodScoresWithDays[0])
		}
		// Entries 0, 2, 4, 6 carry events.
		if len(b.SignificantEventsWithDays) != 4 {
			t.Fatalf("events=%+v", b.SignificantEventsWithDays)
		}
		if b.Details != "Nurse, night shifts" || len(b.Memory) != 2 {
			t.Fatalf("bundle=%+v", b)
		}

		// The bundle does not alias the user's slice.
		b.Memory[0] = "changed"
		if user.Memory[0] != "a" {
			t.Fatalf("bundle aliases user memory")
		}
	})
}

func TestComposePrompt(t *testing.T) {
	t.Parallel()

	tone, err := ParseTone("vent")
	if err != nil {
		t.Fatalf("ParseTone: %v", err)
	}

	t.Run("empty context", func(t *testing.T) {
		got := ComposePrompt(tone, BuildContextBundle(nil, nil))
		for _, want := range []string{
			basePersona,
			tone.Modifier,
			"Chosen tone: Vent (" + tone.Description + ")",
			"Nothing yet.",
			"No entries.",
			"None.",
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("prompt missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "About the user:") {
			t.Fatalf("prompt has details section without details:\n%s", got)
		}
		if !strings.HasSuffix(got, "----") {
			t.Fatalf("prompt should end with the closing rule:\n%s", got)
		}
	})

	t.Run("full context", func(t *testing.T) {
		bundle := ContextBundle{
			Memory:  []string{"Started a new job on 2026-09-01", "Has a dog named Pepper"},
			Details: "  Lives in Denver.  ",
			MoodScoresWithDays: []MoodDay{
				{Day: "Monday 2026-10-19", MoodScore: "72.50"},
				{Day: "Sunday 2026-10-18", MoodScore: "40.00"},
			},
			SignificantEventsWithDays: []EventsDay{
				{Day: "Sunday 2026-10-18", SignificantEvents: []string{"Argued with brother", "Missed flight"}},
			},
		}
		got := ComposePrompt(tone, bundle)
		for _, want := range []string{
			"About the user:\nLives in Denver.\n",
			"1. Started a new job on 2026-09-01\n2. Has a dog named Pepper\n",
			"- Monday 2026-10-19: 72.50\n- Sunday 2026-10-18: 40.00\n",
			"- Sunday 2026-10-18: Argued with brother; Missed flight\n",
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("prompt missing %q:\n%s", want, got)
			}
		}
		for _, absent := range []string{"Nothing yet.", "No entries.", "None."} {
			if strings.Contains(got, absent) {
				t.Fatalf("prompt has placeholder %q with data present", absent)
			}
		}
		if again := ComposePrompt(tone, bundle); again != got {
			t.Fatalf("ComposePrompt is not deterministic")
		}
	})
}
