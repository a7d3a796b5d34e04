package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

func TestProfileService(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	cache := newMemCache()
	p := NewProfileService(st, cache)
	ctx := context.Background()
	identity := models.Identity{ID: "u1", Email: "a@example.com"}

	empty, err := p.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if empty.Memory == nil || len(empty.Memory) != 0 || empty.MemoryEnabledAt != nil {
		t.Fatalf("empty profile=%+v", empty)
	}

	memory, err := p.ReplaceMemory(ctx, identity, []string{" Has a dog ", "", "Lives in Denver"})
	if err != nil {
		t.Fatalf("ReplaceMemory: %v", err)
	}
	if !reflect.DeepEqual(memory, []string{"Has a dog", "Lives in Denver"}) {
		t.Fatalf("memory=%v", memory)
	}

	memory, err = p.DeleteMemory(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if !reflect.DeepEqual(memory, []string{"Lives in Denver"}) {
		t.Fatalf("memory=%v", memory)
	}
	for _, idx := range []int{-1, 1, 5} {
		if _, err := p.DeleteMemory(ctx, "u1", idx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("index %d err=%v", idx, err)
		}
	}
	if _, err := p.DeleteMemory(ctx, "nobody", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err=%v", err)
	}

	details, err := p.SetDetails(ctx, identity, "  Nurse, works nights.  ")
	if err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	if details != "Nurse, works nights." {
		t.Fatalf("details=%q", details)
	}
	if _, err := p.SetDetails(ctx, identity, strings.Repeat("x", MaxDetailsLength+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("long details err=%v", err)
	}

	got, err := p.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !reflect.DeepEqual(got.Memory, []string{"Lives in Denver"}) || got.Details != "Nurse, works nights." || got.MemoryEnabledAt == nil {
		t.Fatalf("profile=%+v", got)
	}

	// ReplaceMemory, DeleteMemory and SetDetails each drop the cached context.
	if len(cache.invalidated) != 3 {
		t.Fatalf("invalidated=%v", cache.invalidated)
	}
}
