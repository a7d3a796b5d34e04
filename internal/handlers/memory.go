package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type ReplaceMemoryRequest struct {
	Memory []string `json:"memory"`
}

type UpdateProfileRequest struct {
	Details *string `json:"details"`
}

// GetMemory returns the caller's memory list and details.
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	profile, err := h.Profile.GetProfile(r.Context(), identity.ID)
	if err != nil {
		log.Printf("[GetMemory] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ReplaceMemory overwrites the caller's memory list.
func (h *Handler) ReplaceMemory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	var req ReplaceMemoryRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Memory == nil {
		writeError(w, http.StatusBadRequest, "memory must be a list of strings")
		return
	}

	memory, err := h.Profile.ReplaceMemory(r.Context(), identity, req.Memory)
	if err != nil {
		log.Printf("[ReplaceMemory] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update memory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memory": memory})
}

// DeleteMemory removes one memory item by its 0-based index.
func (h *Handler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Memory not found")
		return
	}

	memory, err := h.Profile.DeleteMemory(r.Context(), identity.ID, index)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Memory not found")
		return
	}
	if err != nil {
		log.Printf("[DeleteMemory] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update memory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memory": memory})
}

// UpdateProfile replaces the caller's "about me" details.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Details == nil {
		writeError(w, http.StatusBadRequest, "details is required")
		return
	}

	details, err := h.Profile.SetDetails(r.Context(), identity, *req.Details)
	if errors.Is(err, services.ErrValidation) {
		writeError(w, http.StatusBadRequest, "details is too long")
		return
	}
	if err != nil {
		log.Printf("[UpdateProfile] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"details": details})
}
