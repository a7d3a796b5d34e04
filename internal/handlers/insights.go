package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

const defaultTrendDays = 30

// MoodInsights returns the caller's per-day mood averages for ?days=N (default 30).
func (h *Handler) MoodInsights(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	days := defaultTrendDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidQuery)
			return
		}
		days = n
	}

	trend, err := h.Journal.MoodTrend(r.Context(), identity.ID, days)
	if errors.Is(err, services.ErrValidation) {
		writeError(w, http.StatusBadRequest, msgInvalidQuery)
		return
	}
	if err != nil {
		log.Printf("[MoodInsights] Failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load mood insights")
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
