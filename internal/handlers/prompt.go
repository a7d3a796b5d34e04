package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

// ListTones returns the tones a session can start with.
func (h *Handler) ListTones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.Tones())
}

type PromptResponse struct {
	Tone   services.ToneInfo `json:"tone"`
	Prompt string            `json:"prompt"`
}

// GetPrompt returns the voice agent's system prompt for ?tone=.
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	tone, prompt, err := h.Journal.ComposePromptFor(r.Context(), identity.ID, r.URL.Query().Get("tone"))
	if errors.Is(err, services.ErrValidation) {
		writeError(w, http.StatusBadRequest, "Unknown tone")
		return
	}
	if err != nil {
		log.Printf("[GetPrompt] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to build prompt")
		return
	}
	writeJSON(w, http.StatusOK, PromptResponse{Tone: tone, Prompt: prompt})
}
