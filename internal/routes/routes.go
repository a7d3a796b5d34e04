package routes

import (
	"net/http"

	"github.com/AnshRaj112/moodlog-backend/internal/handlers"
	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Options carries what the route table needs besides the handlers.
type Options struct {
	Resolver           middleware.IdentityResolver
	SubmissionCounter  middleware.Counter
	SubmissionsPerHour int
}

func SetupRoutes(r chi.Router, h *handlers.Handler, opts Options) {
	r.Get("/health", h.Health)

	// Auth routes
	r.Post("/api/auth/signup", h.SignUp)
	r.Post("/api/auth/signin", h.SignIn)
	r.Post("/api/auth/signout", h.SignOut)

	r.Get("/api/tones", h.ListTones)

	requireIdentity := middleware.RequireIdentity(opts.Resolver)
	limitSubmissions := middleware.SubmissionLimit(opts.SubmissionCounter, opts.SubmissionsPerHour)

	r.Group(func(r chi.Router) {
		r.Use(requireIdentity)

		r.Get("/api/auth/me", h.Me)

		// Journaling routes
		r.With(limitSubmissions).Post("/api/journal", h.CreateJournalEntry)
		r.Get("/api/journal", h.ListJournalEntries)
		r.Get("/api/journal/{id}", h.GetJournalEntry)
		r.Get("/api/insights/mood", h.MoodInsights)

		// Memory & profile routes
		r.Get("/api/memory", h.GetMemory)
		r.Put("/api/memory", h.ReplaceMemory)
		r.Delete("/api/memory/{index}", h.DeleteMemory)
		r.Put("/api/profile", h.UpdateProfile)

		r.Get("/api/prompt", h.GetPrompt)

		// Live session
		r.With(limitSubmissions).Get("/ws/session", h.SessionWebSocket)
	})
}

// Handler builds a router with the routes mounted. Used by tests and by main.
func Handler(h *handlers.Handler, opts Options, mws ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, mw := range mws {
		r.Use(mw)
	}
	SetupRoutes(r, h, opts)
	return r
}
