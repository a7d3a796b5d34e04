package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

// maxBodyBytes bounds JSON request bodies. Transcripts of long sessions fit comfortably.
const maxBodyBytes = 1 << 20

// Handler serves the HTTP and WebSocket API.
type Handler struct {
	Journal        *services.JournalService
	Profile        *services.ProfileService
	Accounts       *services.AccountService
	AllowedOrigins []string
}

func New(journal *services.JournalService, profile *services.ProfileService, accounts *services.AccountService, allowedOrigins []string) *Handler {
	return &Handler{
		Journal:        journal,
		Profile:        profile,
		Accounts:       accounts,
		AllowedOrigins: allowedOrigins,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimSpace(a), origin) {
			return true
		}
	}
	return false
}
