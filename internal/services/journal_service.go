package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// JournalService runs the submission pipeline and serves the journal read paths.
type JournalService struct {
	store    *Store
	analyzer *Analyzer
	memory   *MemoryUpdater
	cache    ContextCache
	runs     RunLog
	now      func() time.Time
	inflight sync.WaitGroup
}

func NewJournalService(store *Store, analyzer *Analyzer, memory *MemoryUpdater, cache ContextCache, runs RunLog) *JournalService {
	if cache == nil {
		cache = NopContextCache{}
	}
	if runs == nil {
		runs = NopRunLog{}
	}
	return &JournalService{
		store:    store,
		analyzer: analyzer,
		memory:   memory,
		cache:    cache,
		runs:     runs,
		now:      time.Now,
	}
}

// CreateEntry analyses rawEntry for the identified user and persists the result.
//
// The user row is upserted first. Analysis and memory extraction then run concurrently and the
// first error fails the submission at once, while the other call finishes in the background.
// A memory write that happens is kept even when analysis or persistence fails. The pipeline run
// is recorded once both calls have settled.
func (s *JournalService) CreateEntry(ctx context.Context, identity models.Identity, rawEntry string) (*models.JournalEntry, error) {
	if strings.TrimSpace(rawEntry) == "" {
		return nil, ErrEntryRequired
	}
	if identity.ID == "" {
		return nil, ErrNoIdentity
	}

	started := s.now()
	run := &models.PipelineRun{
		RunID:           uuid.NewString(),
		UserID:          identity.ID,
		TranscriptChars: len(rawEntry),
		CreatedAt:       started.UTC(),
	}

	var stages errgroup.Group
	entry, err := s.runPipeline(ctx, identity, rawEntry, run, &stages)

	run.TotalMillis = s.now().Sub(started).Milliseconds()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.FailedStage = stageOf(err)
		run.Error = err.Error()
		log.Printf("[CreateEntry] Pipeline failed for user %s at %s: %v", identity.ID, run.FailedStage, err)
	} else {
		run.Status = models.RunStatusSucceeded
		run.EntryID = entry.ID
	}

	settle := func() {
		_ = stages.Wait()
		if err == nil || run.MemoryCommitted {
			if cerr := s.cache.Invalidate(context.WithoutCancel(ctx), identity.ID); cerr != nil {
				log.Printf("[CreateEntry] Failed to invalidate context cache for user %s: %v", identity.ID, cerr)
			}
		}
		s.runs.Record(*run)
	}
	if err == nil {
		settle()
		return entry, nil
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		settle()
	}()
	return nil, err
}

// Wait blocks until stages left running by failed submissions have settled. Used during shutdown.
func (s *JournalService) Wait() {
	s.inflight.Wait()
}

func (s *JournalService) runPipeline(ctx context.Context, identity models.Identity, rawEntry string, run *models.PipelineRun, stages *errgroup.Group) (*models.JournalEntry, error) {
	user, err := s.store.UpsertUser(ctx, identity.ID, identity.Email)
	if err != nil {
		return nil, atStage(models.StageUserResolve, err)
	}

	if report := ScreenTranscript(rawEntry); report.Flagged {
		run.SafetyFlagged = true
		run.SafetyMatches = report.Matches
		log.Printf("[CreateEntry] Safety screen flagged entry for user %s: %v", identity.ID, report.Matches)
	}

	var analysis Analysis
	analyzed := make(chan error, 1)
	remembered := make(chan error, 1)

	stages.Go(func() error {
		t := s.now()
		a, err := s.analyzer.Analyze(ctx, rawEntry)
		run.AnalyzeMillis = s.now().Sub(t).Milliseconds()
		if err != nil {
			err = atStage(models.StageAnalyze, err)
		} else {
			analysis = a
		}
		analyzed <- err
		return err
	})
	// The memory write outlives the request.
	memCtx := context.WithoutCancel(ctx)
	stages.Go(func() error {
		t := s.now()
		added, err := s.memory.Update(memCtx, user, rawEntry)
		run.MemoryMillis = s.now().Sub(t).Milliseconds()
		if err != nil {
			err = atStage(models.StageMemory, err)
		} else if len(added) > 0 {
			run.NewMemories = added
			run.MemoryCommitted = true
		}
		remembered <- err
		return err
	})

	for pending := 2; pending > 0; pending-- {
		select {
		case err := <-analyzed:
			if err != nil {
				return nil, err
			}
		case err := <-remembered:
			if err != nil {
				return nil, err
			}
		}
	}
	run.MoodScore = FormatMoodScore(analysis.MoodScore)

	entry, err := s.store.InsertEntry(ctx, NewEntry{
		UserID:            user.ID,
		RawEntry:          rawEntry,
		SummarizedEntry:   analysis.Summary,
		Title:             analysis.Title,
		MoodScore:         analysis.MoodScore,
		SignificantEvents: analysis.SignificantEvents,
	})
	if err != nil {
		return nil, atStage(models.StagePersist, err)
	}
	return entry, nil
}

// ListEntries returns the user's entries newest first.
func (s *JournalService) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]models.JournalEntry, error) {
	return s.store.ListEntries(ctx, userID, filter)
}

// GetEntry returns one of the user's entries, or ErrNotFound.
func (s *JournalService) GetEntry(ctx context.Context, userID string, id int64) (*models.JournalEntry, error) {
	return s.store.GetEntry(ctx, userID, id)
}

// PromptContext returns the user's context bundle, from cache when possible.
// A user who has never submitted gets an empty bundle.
func (s *JournalService) PromptContext(ctx context.Context, userID string) (ContextBundle, error) {
	if cached, ok, err := s.cache.Get(ctx, userID); err != nil {
		log.Printf("[PromptContext] Cache read failed for user %s: %v", userID, err)
	} else if ok {
		return *cached, nil
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ContextBundle{}, err
	}

	recent, err := s.store.ListEntries(ctx, userID, EntryFilter{
		From:  s.now().Add(-ContextWindowDays * 24 * time.Hour),
		Limit: ContextMaxEntries,
	})
	if err != nil {
		return ContextBundle{}, err
	}

	bundle := BuildContextBundle(user, recent)
	if err := s.cache.Set(ctx, userID, bundle); err != nil {
		log.Printf("[PromptContext] Cache write failed for user %s: %v", userID, err)
	}
	return bundle, nil
}

// ComposePromptFor builds the voice agent prompt for the user and tone id.
func (s *JournalService) ComposePromptFor(ctx context.Context, userID, toneID string) (ToneInfo, string, error) {
	tone, err := ParseTone(toneID)
	if err != nil {
		return ToneInfo{}, "", err
	}
	bundle, err := s.PromptContext(ctx, userID)
	if err != nil {
		return ToneInfo{}, "", err
	}
	return tone, ComposePrompt(tone, bundle), nil
}

// MoodTrend summarizes mood per UTC day over a window.
type MoodTrend struct {
	Days    int                `json:"days"`
	Points  []models.DailyMood `json:"points"`
	Average float64            `json:"average"`
	Entries int                `json:"entries"`
}

const MaxTrendDays = 366

// MoodTrend returns per-day average mood for the last days days, oldest first.
func (s *JournalService) MoodTrend(ctx context.Context, userID string, days int) (MoodTrend, error) {
	if days <= 0 || days > MaxTrendDays {
		return MoodTrend{}, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, MaxTrendDays)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))
	entries, err := s.store.ListEntries(ctx, userID, EntryFilter{From: from})
	if err != nil {
		return MoodTrend{}, err
	}
	return buildMoodTrend(days, entries), nil
}

func buildMoodTrend(days int, entries []models.JournalEntry) MoodTrend {
	type acc struct {
		sum   float64
		count int
	}
	byDay := make(map[string]*acc)
	var total float64
	var counted int
	for _, e := range entries {
		v, err := strconv.ParseFloat(e.MoodScore, 64)
		if err != nil {
			continue
		}
		key := e.CreatedAt.UTC().Format("2006-01-02")
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.sum += v
		a.count++
		total += v
		counted++
	}

	trend := MoodTrend{Days: days, Points: make([]models.DailyMood, 0, len(byDay)), Entries: counted}
	for day, a := range byDay {
		trend.Points = append(trend.Points, models.DailyMood{
			Date:      day,
			MoodScore: round2(a.sum / float64(a.count)),
			Entries:   a.count,
		})
	}
	sort.Slice(trend.Points, func(i, j int) bool { return trend.Points[i].Date < trend.Points[j].Date })
	if counted > 0 {
		trend.Average = round2(total / float64(counted))
	}
	return trend
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
