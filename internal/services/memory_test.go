package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

type recordingWriter struct {
	mu     sync.Mutex
	stored map[string][]string
	writes int
	err    error
}

func (w *recordingWriter) SetMemory(_ context.Context, userID string, memory []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.stored == nil {
		w.stored = map[string][]string{}
	}
	w.stored[userID] = append([]string(nil), memory...)
	w.writes++
	return nil
}

func TestBuildMemoryInput(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	got := buildMemoryInput(today, nil, "user: hi")
	want := "Today's date: Monday, October 19, 2026\n\nExisting memories:\n(none)\n\nTranscript:\nuser: hi"
	if got != want {
		t.Fatalf("input=%q\nwant=%q", got, want)
	}

	got = buildMemoryInput(today, []string{"Has a dog", "Lives in Denver"}, "user: hi")
	if !strings.Contains(got, "Existing memories:\n1. Has a dog\n2. Lives in Denver\n") {
		t.Fatalf("input=%q", got)
	}
}

func TestMemoryUpdater_AppendsNewItems(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.responses["MemoryUpdate"] = `{"newMemories":["  Ran a half marathon on 2026-10-18 ", ""]}`
	w := &recordingWriter{}
	m := NewMemoryUpdater(client, "memory-model", w)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	user := &models.User{ID: "u1", Memory: []string{"Has a dog"}}
	added, err := m.Update(context.Background(), user, "user: I ran a half marathon yesterday!")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !reflect.DeepEqual(added, []string{"Ran a half marathon on 2026-10-18"}) {
		t.Fatalf("added=%v", added)
	}
	if !reflect.DeepEqual(w.stored["u1"], []string{"Has a dog", "Ran a half marathon on 2026-10-18"}) {
		t.Fatalf("stored=%v", w.stored["u1"])
	}
	req, _ := client.lastCall("MemoryUpdate")
	if !strings.HasPrefix(req.Input, "Today's date: Monday, October 19, 2026") || req.Model != "memory-model" {
		t.Fatalf("request=%+v", req)
	}
}

func TestMemoryUpdater_NothingNewSkipsWrite(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.responses["MemoryUpdate"] = `{"newMemories":[" "]}`
	w := &recordingWriter{}
	m := NewMemoryUpdater(client, "memory-model", w)

	added, err := m.Update(context.Background(), &models.User{ID: "u1", Memory: []string{}}, "user: quiet day")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(added) != 0 || w.writes != 0 {
		t.Fatalf("added=%v writes=%d", added, w.writes)
	}
}

func TestMemoryUpdater_Errors(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.errs["MemoryUpdate"] = ErrUpstream
	m := NewMemoryUpdater(client, "memory-model", &recordingWriter{})
	if _, err := m.Update(context.Background(), &models.User{ID: "u1"}, "user: x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v, want ErrUpstream", err)
	}

	client = newFakeClient()
	client.responses["MemoryUpdate"] = `{"newMemories":["x"]}`
	m = NewMemoryUpdater(client, "memory-model", &recordingWriter{err: ErrPersistence})
	if _, err := m.Update(context.Background(), &models.User{ID: "u1"}, "user: x"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("err=%v, want ErrPersistence", err)
	}

	if _, err := m.Update(context.Background(), nil, "user: x"); err == nil {
		t.Fatalf("nil user accepted")
	}
}

// Two updates computed from the same snapshot overwrite each other: the last writer wins.
func TestMemoryUpdater_SameSnapshotLastWriterWins(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	snapshot := &models.User{ID: "u1", Memory: []string{"Has a dog"}}

	first := newFakeClient()
	first.responses["MemoryUpdate"] = `{"newMemories":["Moved to Lisbon on 2026-10-01"]}`
	second := newFakeClient()
	second.responses["MemoryUpdate"] = `{"newMemories":["Started pottery class on 2026-10-15"]}`

	if _, err := NewMemoryUpdater(first, "m", w).Update(context.Background(), snapshot, "user: a"); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	if _, err := NewMemoryUpdater(second, "m", w).Update(context.Background(), snapshot, "user: b"); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	want := []string{"Has a dog", "Started pottery class on 2026-10-15"}
	if !reflect.DeepEqual(w.stored["u1"], want) {
		t.Fatalf("stored=%v, want %v", w.stored["u1"], want)
	}
}
