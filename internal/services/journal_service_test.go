package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const (
	goodAnalysis = `{"moodScore":72.5,"summary":"I got promoted today and celebrated with Sam.","title":"Promotion day","significantEvents":["Got promoted"," "]}`
	noMemories   = `{"newMemories":[]}`
)

type pipelineFixture struct {
	store  *Store
	client *fakeClient
	cache  *memCache
	runs   *memRunLog
	svc    *JournalService
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	st := newTestStore(t)
	client := newFakeClient()
	cache := newMemCache()
	runs := &memRunLog{}
	svc := NewJournalService(st, NewAnalyzer(client, "analysis-model"), NewMemoryUpdater(client, "memory-model", st), cache, runs)
	t.Cleanup(svc.Wait)
	return &pipelineFixture{store: st, client: client, cache: cache, runs: runs, svc: svc}
}

func TestCreateEntry_Success(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.client.responses["JournalAnalysis"] = goodAnalysis
	f.client.responses["MemoryUpdate"] = `{"newMemories":["Got promoted to team lead on 2026-10-19"]}`

	identity := models.Identity{ID: "u1", Email: "a@example.com"}
	raw := "user: I got promoted today!\nai: That's wonderful, how did you celebrate?\nuser: Dinner with Sam."

	entry, err := f.svc.CreateEntry(ctx, identity, raw)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if entry.RawEntry != raw {
		t.Fatalf("RawEntry=%q", entry.RawEntry)
	}
	if entry.Title != "Promotion day" || entry.MoodScore != "72.50" {
		t.Fatalf("entry=%+v", entry)
	}
	if !reflect.DeepEqual(entry.SignificantEvents, []string{"Got promoted"}) {
		t.Fatalf("SignificantEvents=%v", entry.SignificantEvents)
	}

	stored, err := f.store.GetEntry(ctx, "u1", entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if stored.SummarizedEntry != entry.SummarizedEntry {
		t.Fatalf("stored summary=%q", stored.SummarizedEntry)
	}

	user, err := f.store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !reflect.DeepEqual(user.Memory, []string{"Got promoted to team lead on 2026-10-19"}) {
		t.Fatalf("Memory=%v", user.Memory)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("Email=%q", user.Email)
	}

	if f.client.callCount() != 2 {
		t.Fatalf("calls=%d, want 2", f.client.callCount())
	}
	if req, ok := f.client.lastCall("JournalAnalysis"); !ok || req.Input != raw || req.Model != "analysis-model" {
		t.Fatalf("analysis request=%+v ok=%v", req, ok)
	}

	run := f.runs.last(t)
	if run.Status != models.RunStatusSucceeded || run.EntryID != entry.ID || !run.MemoryCommitted {
		t.Fatalf("run=%+v", run)
	}
	if run.MoodScore != "72.50" || run.TranscriptChars != len(raw) {
		t.Fatalf("run=%+v", run)
	}
	if len(f.cache.invalidated) != 1 || f.cache.invalidated[0] != "u1" {
		t.Fatalf("invalidated=%v", f.cache.invalidated)
	}
}

func TestCreateEntry_BlankInput(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.CreateEntry(ctx, models.Identity{ID: "u1"}, raw)
		if !errors.Is(err, ErrEntryRequired) {
			t.Fatalf("raw=%q err=%v, want ErrEntryRequired", raw, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("raw=%q err=%v should also be ErrValidation", raw, err)
		}
	}
	if f.client.callCount() != 0 {
		t.Fatalf("completion service called %d times", f.client.callCount())
	}
	if _, err := f.store.GetUser(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user created for blank input: err=%v", err)
	}
}

func TestCreateEntry_NoIdentity(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)

	_, err := f.svc.CreateEntry(context.Background(), models.Identity{}, "user: hello")
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("err=%v, want ErrNoIdentity", err)
	}
	if f.client.callCount() != 0 {
		t.Fatalf("completion service called %d times", f.client.callCount())
	}
}

func TestCreateEntry_AnalysisFailureKeepsMemory(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.client.errs["JournalAnalysis"] = fmt.Errorf("%w: 503 from provider", ErrUpstream)
	f.client.responses["MemoryUpdate"] = `{"newMemories":["Moved to Lisbon on 2026-10-01"]}`

	_, err := f.svc.CreateEntry(ctx, models.Identity{ID: "u1"}, "user: I moved to Lisbon this month.")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v, want ErrUpstream", err)
	}
	if want := "analyze: upstream service error: 503 from provider"; err.Error() != want {
		t.Fatalf("err=%q, want %q", err.Error(), want)
	}
	f.svc.Wait()

	entries, err := f.store.ListEntries(ctx, "u1", EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries=%d, want 0", len(entries))
	}

	// The memory write is not rolled back.
	user, err := f.store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(user.Memory) != 1 {
		t.Fatalf("Memory=%v", user.Memory)
	}

	run := f.runs.last(t)
	if run.Status != models.RunStatusFailed || run.FailedStage != models.StageAnalyze || !run.MemoryCommitted {
		t.Fatalf("run=%+v", run)
	}
	if len(f.cache.invalidated) != 1 {
		t.Fatalf("cache should be invalidated after a committed memory write, got %v", f.cache.invalidated)
	}
}

func TestCreateEntry_InvalidAnalysis(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"mood too high":  `{"moodScore":120,"summary":"s","title":"t","significantEvents":[]}`,
		"mood negative":  `{"moodScore":-1,"summary":"s","title":"t","significantEvents":[]}`,
		"empty summary":  `{"moodScore":50,"summary":"  ","title":"t","significantEvents":[]}`,
		"empty title":    `{"moodScore":50,"summary":"s","title":"","significantEvents":[]}`,
		"too many event": `{"moodScore":50,"summary":"s","title":"t","significantEvents":["a","b","c","d","e"]}`,
		"not json":       `I could not analyse this transcript.`,
	}

	for name, resp := range cases {
		resp := resp
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newPipelineFixture(t)
			f.client.responses["JournalAnalysis"] = resp
			f.client.responses["MemoryUpdate"] = noMemories

			_, err := f.svc.CreateEntry(context.Background(), models.Identity{ID: "u1"}, "user: hello")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err=%v, want ErrValidation", err)
			}
			f.svc.Wait()
			entries, _ := f.store.ListEntries(context.Background(), "u1", EntryFilter{})
			if len(entries) != 0 {
				t.Fatalf("entries=%d, want 0", len(entries))
			}
			if run := f.runs.last(t); run.FailedStage != models.StageAnalyze || run.MemoryCommitted {
				t.Fatalf("run=%+v", run)
			}
			if len(f.cache.invalidated) != 0 {
				t.Fatalf("invalidated=%v", f.cache.invalidated)
			}
		})
	}
}

func TestCreateEntry_MemoryFailure(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.client.responses["JournalAnalysis"] = goodAnalysis
	f.client.errs["MemoryUpdate"] = fmt.Errorf("%w: timeout", ErrUpstream)

	_, err := f.svc.CreateEntry(ctx, models.Identity{ID: "u1"}, "user: hello")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v, want ErrUpstream", err)
	}
	if want := "memory_update: upstream service error: timeout"; err.Error() != want {
		t.Fatalf("err=%q, want %q", err.Error(), want)
	}
	f.svc.Wait()
	entries, _ := f.store.ListEntries(ctx, "u1", EntryFilter{})
	if len(entries) != 0 {
		t.Fatalf("entries=%d, want 0", len(entries))
	}
	if run := f.runs.last(t); run.FailedStage != models.StageMemory {
		t.Fatalf("FailedStage=%q", run.FailedStage)
	}
}

func TestCreateEntry_FailsWithoutWaitingForMemory(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.client.errs["JournalAnalysis"] = fmt.Errorf("%w: 503 from provider", ErrUpstream)
	f.client.responses["MemoryUpdate"] = `{"newMemories":["Started pottery classes on 2026-10-19"]}`
	release := make(chan struct{})
	f.client.gates["MemoryUpdate"] = release

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateEntry(ctx, models.Identity{ID: "u1"}, "user: First pottery class today.")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrUpstream) {
			t.Fatalf("err=%v, want ErrUpstream", err)
		}
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatalf("CreateEntry waited for the memory call")
	}

	// Nothing is recorded until the memory call settles.
	f.runs.mu.Lock()
	recorded := len(f.runs.runs)
	f.runs.mu.Unlock()
	if recorded != 0 {
		t.Fatalf("run recorded before memory settled")
	}

	close(release)
	f.svc.Wait()

	run := f.runs.last(t)
	if run.FailedStage != models.StageAnalyze || !run.MemoryCommitted {
		t.Fatalf("run=%+v", run)
	}
	user, err := f.store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !reflect.DeepEqual(user.Memory, []string{"Started pottery classes on 2026-10-19"}) {
		t.Fatalf("Memory=%v", user.Memory)
	}
	if len(f.cache.invalidated) != 1 {
		t.Fatalf("invalidated=%v", f.cache.invalidated)
	}
}

func TestCreateEntry_NoNewMemoriesLeavesListUntouched(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	if _, err := f.store.UpsertUser(ctx, "u1", ""); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	existing := []string{"Adopted a cat named Miso in 2026-03"}
	if err := f.store.SetMemory(ctx, "u1", existing); err != nil {
		t.Fatalf("SetMemory: %v", err)
	}
	f.client.responses["JournalAnalysis"] = goodAnalysis
	f.client.responses["MemoryUpdate"] = noMemories

	if _, err := f.svc.CreateEntry(ctx, models.Identity{ID: "u1"}, "user: Miso knocked over a plant."); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	user, err := f.store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !reflect.DeepEqual(user.Memory, existing) {
		t.Fatalf("Memory=%v, want %v", user.Memory, existing)
	}
	if req, ok := f.client.lastCall("MemoryUpdate"); !ok || !strings.Contains(req.Input, "1. Adopted a cat named Miso") {
		t.Fatalf("memory request input=%q", req.Input)
	}
	if f.runs.last(t).MemoryCommitted {
		t.Fatalf("MemoryCommitted=true with no new memories")
	}
}

func TestCreateEntry_SafetyScreenDoesNotBlock(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	f.client.responses["JournalAnalysis"] = goodAnalysis
	f.client.responses["MemoryUpdate"] = noMemories

	_, err := f.svc.CreateEntry(context.Background(), models.Identity{ID: "u1"}, "user: some days I want to die\nai: I'm here with you.")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	run := f.runs.last(t)
	if !run.SafetyFlagged || run.Status != models.RunStatusSucceeded {
		t.Fatalf("run=%+v", run)
	}
}

func TestPromptContext(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return today }

	empty, err := f.svc.PromptContext(ctx, "newcomer")
	if err != nil {
		t.Fatalf("PromptContext newcomer: %v", err)
	}
	if len(empty.Memory) != 0 || len(empty.MoodScoresWithDays) != 0 || empty.Memory == nil {
		t.Fatalf("newcomer bundle=%+v", empty)
	}

	if _, err := f.store.UpsertUser(ctx, "u1", ""); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := f.store.SetMemory(ctx, "u1", []string{"Started therapy in 2026-09"}); err != nil {
		t.Fatalf("SetMemory: %v", err)
	}
	seed := []NewEntry{
		{UserID: "u1", RawEntry: "x", SummarizedEntry: "old", Title: "Old", MoodScore: 10, CreatedAt: today.AddDate(0, 0, -9)},
		{UserID: "u1", RawEntry: "x", SummarizedEntry: "s", Title: "Sat", MoodScore: 55, CreatedAt: today.AddDate(0, 0, -2), SignificantEvents: []string{"Hiked Mount Tam"}},
		{UserID: "u1", RawEntry: "x", SummarizedEntry: "s", Title: "Mon", MoodScore: 80.25, CreatedAt: today.Add(-time.Hour)},
	}
	for _, e := range seed {
		if _, err := f.store.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	bundle, err := f.svc.PromptContext(ctx, "u1")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	wantMoods := []MoodDay{
		{Day: "Monday 2026-10-19", MoodScore: "80.25"},
		{Day: "Saturday 2026-10-17", MoodScore: "55.00"},
	}
	if !reflect.DeepEqual(bundle.MoodScoresWithDays, wantMoods) {
		t.Fatalf("moods=%+v", bundle.MoodScoresWithDays)
	}
	wantEvents := []EventsDay{{Day: "Saturday 2026-10-17", SignificantEvents: []string{"Hiked Mount Tam"}}}
	if !reflect.DeepEqual(bundle.SignificantEventsWithDays, wantEvents) {
		t.Fatalf("events=%+v", bundle.SignificantEventsWithDays)
	}

	// Served from cache until invalidated.
	if err := f.store.SetMemory(ctx, "u1", []string{"changed"}); err != nil {
		t.Fatalf("SetMemory: %v", err)
	}
	cached, err := f.svc.PromptContext(ctx, "u1")
	if err != nil {
		t.Fatalf("PromptContext cached: %v", err)
	}
	if !reflect.DeepEqual(cached.Memory, []string{"Started therapy in 2026-09"}) {
		t.Fatalf("cached memory=%v", cached.Memory)
	}
	_ = f.cache.Invalidate(ctx, "u1")
	fresh, err := f.svc.PromptContext(ctx, "u1")
	if err != nil {
		t.Fatalf("PromptContext fresh: %v", err)
	}
	if !reflect.DeepEqual(fresh.Memory, []string{"changed"}) {
		t.Fatalf("fresh memory=%v", fresh.Memory)
	}
}

func TestComposePromptFor(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)

	if _, _, err := f.svc.ComposePromptFor(context.Background(), "u1", "shout"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown tone err=%v", err)
	}

	tone, prompt, err := f.svc.ComposePromptFor(context.Background(), "u1", " Reflect ")
	if err != nil {
		t.Fatalf("ComposePromptFor: %v", err)
	}
	if tone.ID != ToneReflect {
		t.Fatalf("tone=%q", tone.ID)
	}
	if !strings.Contains(prompt, "Chosen tone: Reflect") || !strings.Contains(prompt, "Nothing yet.") {
		t.Fatalf("prompt=%q", prompt)
	}
}

func TestMoodTrend(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return today }

	if _, err := f.store.UpsertUser(ctx, "u1", ""); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	for _, e := range []NewEntry{
		{MoodScore: 10, CreatedAt: time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)},
		{MoodScore: 40, CreatedAt: time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC)},
		{MoodScore: 60, CreatedAt: time.Date(2026, 10, 13, 21, 0, 0, 0, time.UTC)},
		{MoodScore: 72.5, CreatedAt: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)},
	} {
		e.UserID, e.RawEntry, e.SummarizedEntry, e.Title = "u1", "x", "x", "x"
		if _, err := f.store.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	trend, err := f.svc.MoodTrend(ctx, "u1", 7)
	if err != nil {
		t.Fatalf("MoodTrend: %v", err)
	}
	want := []models.DailyMood{
		{Date: "2026-10-13", MoodScore: 50, Entries: 2},
		{Date: "2026-10-19", MoodScore: 72.5, Entries: 1},
	}
	if !reflect.DeepEqual(trend.Points, want) {
		t.Fatalf("points=%+v", trend.Points)
	}
	if trend.Average != 57.5 || trend.Entries != 3 || trend.Days != 7 {
		t.Fatalf("trend=%+v", trend)
	}

	for _, days := range []int{0, -1, MaxTrendDays + 1} {
		if _, err := f.svc.MoodTrend(ctx, "u1", days); !errors.Is(err, ErrValidation) {
			t.Fatalf("days=%d err=%v", days, err)
		}
	}
}
