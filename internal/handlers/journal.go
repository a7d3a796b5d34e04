package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

// Static messages for the create endpoint. The cause is only ever logged.
const (
	msgUserNotFound  = "User not found"
	msgUnauthorized  = "Unauthorized"
	msgEntryRequired = "Journal entry is required"
	msgCreateFailed  = "Failed to create journal entry"
	msgEntryNotFound = "Journal entry not found"
	msgInternal      = "Internal server error"
	msgInvalidQuery  = "Invalid query parameters"
)

const (
	maxListLimit = 500
	dateLayout   = "2006-01-02"
)

type CreateJournalRequest struct {
	RawEntry *string `json:"rawEntry"`
}

// createEntryStatus flattens a pipeline error into the status code and message the client sees.
func createEntryStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEntryRequired):
		return http.StatusBadRequest, msgEntryRequired
	case errors.Is(err, services.ErrNoIdentity):
		return http.StatusNotFound, msgUserNotFound
	case errors.Is(err, services.ErrAuth):
		return http.StatusUnauthorized, msgUnauthorized
	default:
		return http.StatusInternalServerError, msgCreateFailed
	}
}

// CreateJournalEntry analyses a session transcript and stores it as a journal entry.
func (h *Handler) CreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	var req CreateJournalRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RawEntry == nil {
		writeError(w, http.StatusBadRequest, msgEntryRequired)
		return
	}

	entry, err := h.Journal.CreateEntry(r.Context(), identity, *req.RawEntry)
	if err != nil {
		status, msg := createEntryStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("[CreateJournalEntry] Failed for user %s: %v", identity.ID, err)
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListJournalEntries returns the caller's entries, newest first.
// Optional query: from, to (YYYY-MM-DD, inclusive, UTC), q (search), limit, offset.
func (h *Handler) ListJournalEntries(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	filter, err := parseEntryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidQuery)
		return
	}

	entries, err := h.Journal.ListEntries(r.Context(), identity.ID, filter)
	if err != nil {
		log.Printf("[ListJournalEntries] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch journal entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetJournalEntry returns one of the caller's entries.
func (h *Handler) GetJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, msgEntryNotFound)
		return
	}

	entry, err := h.Journal.GetEntry(r.Context(), identity.ID, id)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgEntryNotFound)
		return
	}
	if err != nil {
		log.Printf("[GetJournalEntry] Failed for user %s entry %d: %v", identity.ID, id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch journal entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func parseEntryFilter(r *http.Request) (services.EntryFilter, error) {
	q := r.URL.Query()
	var f services.EntryFilter

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, err
		}
		f.To = t.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return f, errors.New("from is after to")
	}

	f.Query = q.Get("q")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, errors.New("invalid limit")
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid offset")
		}
		f.Offset = n
	}
	return f, nil
}
