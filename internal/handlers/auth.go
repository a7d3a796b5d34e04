package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/AnshRaj112/moodlog-backend/pkg/utils"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *models.Account `json:"user"`
	Token string          `json:"token"`
}

// SignUp creates an account and returns a session token.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, token, err := h.Accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		var verr *utils.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, services.ErrConflict):
			writeError(w, http.StatusConflict, "User with this email already exists")
		default:
			log.Printf("[SignUp] Failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{User: acc, Token: token})
}

// SignIn checks credentials and returns a fresh session token.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, token, err := h.Accounts.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Printf("[SignIn] Failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: acc, Token: token})
}

// SignOut drops the caller's session. It succeeds even when the token is already gone.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.SignOut(r.Context(), middleware.BearerToken(r)); err != nil {
		log.Printf("[SignOut] Failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the caller's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
