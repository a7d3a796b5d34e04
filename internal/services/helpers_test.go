package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, d, err := database.Open("sqlite", filepath.Join(t.TempDir(), "moodlog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st, err := NewStore(db, d)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

// fakeClient answers extraction requests by schema name with canned JSON.
// A request whose name has a gate blocks until the gate is closed.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	gates     map[string]chan struct{}
	calls     []ExtractionRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: map[string]string{}, errs: map[string]error{}, gates: map[string]chan struct{}{}}
}

func (f *fakeClient) Extract(_ context.Context, req ExtractionRequest, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resp, err, gate := f.responses[req.Name], f.errs[req.Name], f.gates[req.Name]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if err != nil {
		return err
	}
	if err := decodeModelJSON(resp, out); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) lastCall(name string) (ExtractionRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Name == name {
			return f.calls[i], true
		}
	}
	return ExtractionRequest{}, false
}

type memCache struct {
	mu          sync.Mutex
	items       map[string]ContextBundle
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{items: map[string]ContextBundle{}}
}

func (c *memCache) Get(_ context.Context, userID string) (*ContextBundle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[userID]
	if !ok {
		return nil, false, nil
	}
	return &b, true, nil
}

func (c *memCache) Set(_ context.Context, userID string, bundle ContextBundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[userID] = bundle
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type memRunLog struct {
	mu   sync.Mutex
	runs []models.PipelineRun
}

func (l *memRunLog) Record(run models.PipelineRun) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
}

func (l *memRunLog) Recent(_ context.Context, userID string, limit int64) ([]models.PipelineRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.PipelineRun, len(l.runs))
	copy(out, l.runs)
	return out, nil
}

func (l *memRunLog) last(t *testing.T) models.PipelineRun {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.runs) == 0 {
		t.Fatalf("no pipeline run recorded")
	}
	return l.runs[len(l.runs)-1]
}
