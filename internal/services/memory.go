package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// MemoryWriter persists a user's full memory list.
type MemoryWriter interface {
	SetMemory(ctx context.Context, userID string, memory []string) error
}

type memoryExtraction struct {
	NewMemories []string `json:"newMemories" jsonschema_description:"New, non-duplicate, absolutely dated life events; usually empty"`
}

var memorySchema = GenerateSchema[memoryExtraction]()

// MemoryUpdater extracts new long-term memories from a transcript and appends them to the user's list.
type MemoryUpdater struct {
	client StructuredClient
	model  string
	store  MemoryWriter
	now    func() time.Time
}

func NewMemoryUpdater(client StructuredClient, model string, store MemoryWriter) *MemoryUpdater {
	return &MemoryUpdater{client: client, model: model, store: store, now: time.Now}
}

// Update proposes new memories for user and, when there are any, overwrites the stored list with
// user.Memory followed by the new items. The write is based on the snapshot in user, so two
// concurrent updates for the same user can lose one another's additions.
func (m *MemoryUpdater) Update(ctx context.Context, user *models.User, transcript string) ([]string, error) {
	if m.client == nil || m.store == nil {
		return nil, errors.New("memory update: updater not configured")
	}
	if user == nil {
		return nil, errors.New("memory update: user is nil")
	}

	var out memoryExtraction
	err := m.client.Extract(ctx, ExtractionRequest{
		Name:         "MemoryUpdate",
		Description:  "New long-term memories about the user",
		Model:        m.model,
		Instructions: memoryInstructions,
		Input:        buildMemoryInput(m.now(), user.Memory, transcript),
		Schema:       memorySchema,
	}, &out)
	if err != nil {
		return nil, err
	}

	added := compactStrings(out.NewMemories)
	if len(added) == 0 {
		return added, nil
	}

	merged := make([]string, 0, len(user.Memory)+len(added))
	merged = append(merged, user.Memory...)
	merged = append(merged, added...)
	if err := m.store.SetMemory(ctx, user.ID, merged); err != nil {
		return nil, err
	}
	return added, nil
}

func buildMemoryInput(today time.Time, existing []string, transcript string) string {
	var b strings.Builder
	b.WriteString("Today's date: ")
	b.WriteString(today.Format("Monday, January 2, 2006"))
	b.WriteString("\n\nExisting memories:\n")
	if len(existing) == 0 {
		b.WriteString("(none)\n")
	}
	for i, mem := range existing {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(mem)
		b.WriteString("\n")
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}
