package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// MaxDetailsLength bounds the "about me" blurb.
const MaxDetailsLength = 4000

// ProfileService handles explicit, user-initiated edits of memory and details.
// Every write drops the cached prompt context.
type ProfileService struct {
	store *Store
	cache ContextCache
}

func NewProfileService(store *Store, cache ContextCache) *ProfileService {
	if cache == nil {
		cache = NopContextCache{}
	}
	return &ProfileService{store: store, cache: cache}
}

// Profile is the memory view returned to clients.
type Profile struct {
	Memory          []string   `json:"memory"`
	Details         string     `json:"details"`
	MemoryEnabledAt *time.Time `json:"memoryEnabledAt"`
}

// GetProfile returns the user's memory and details. Users without a row get an empty profile.
func (p *ProfileService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	u, err := p.store.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Profile{Memory: []string{}}, nil
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{Memory: u.Memory, Details: u.Details, MemoryEnabledAt: u.MemoryEnabledAt}, nil
}

// ReplaceMemory overwrites the whole memory list. Blank items are dropped.
func (p *ProfileService) ReplaceMemory(ctx context.Context, identity models.Identity, memory []string) ([]string, error) {
	if _, err := p.store.UpsertUser(ctx, identity.ID, identity.Email); err != nil {
		return nil, err
	}
	cleaned := compactStrings(memory)
	if err := p.store.SetMemory(ctx, identity.ID, cleaned); err != nil {
		return nil, err
	}
	p.invalidate(ctx, identity.ID)
	return cleaned, nil
}

// DeleteMemory removes the item at index (0-based). Out of range returns ErrNotFound.
func (p *ProfileService) DeleteMemory(ctx context.Context, userID string, index int) ([]string, error) {
	u, err := p.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(u.Memory) {
		return nil, ErrNotFound
	}

	memory := make([]string, 0, len(u.Memory)-1)
	memory = append(memory, u.Memory[:index]...)
	memory = append(memory, u.Memory[index+1:]...)
	if err := p.store.SetMemory(ctx, userID, memory); err != nil {
		return nil, err
	}
	p.invalidate(ctx, userID)
	return memory, nil
}

// SetDetails replaces the "about me" blurb.
func (p *ProfileService) SetDetails(ctx context.Context, identity models.Identity, details string) (string, error) {
	details = strings.TrimSpace(details)
	if len(details) > MaxDetailsLength {
		return "", fmt.Errorf("%w: details longer than %d characters", ErrValidation, MaxDetailsLength)
	}
	if _, err := p.store.UpsertUser(ctx, identity.ID, identity.Email); err != nil {
		return "", err
	}
	if err := p.store.SetDetails(ctx, identity.ID, details); err != nil {
		return "", err
	}
	p.invalidate(ctx, identity.ID)
	return details, nil
}

func (p *ProfileService) invalidate(ctx context.Context, userID string) {
	if err := p.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("[Profile] Failed to invalidate context cache for user %s: %v", userID, err)
	}
}
