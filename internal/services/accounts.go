package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/pkg/utils"
)

// AccountService signs accounts up and in and resolves bearer tokens to identities.
type AccountService struct {
	store    *Store
	sessions SessionStore
}

func NewAccountService(store *Store, sessions SessionStore) *AccountService {
	return &AccountService{store: store, sessions: sessions}
}

// SignUp creates an account and opens a session for it.
// Invalid input wraps ErrValidation around a *utils.ValidationError; a taken email returns ErrConflict.
func (a *AccountService) SignUp(ctx context.Context, email, password string) (*models.Account, string, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("sign up: hash password: %w", err)
	}

	acc, err := a.store.CreateAccount(ctx, email, hash)
	if err != nil {
		return nil, "", err
	}

	token, err := a.sessions.Create(ctx, acc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign up: create session: %w", err)
	}
	return acc, token, nil
}

// SignIn checks credentials and opens a fresh session. Any mismatch returns ErrInvalidCredentials.
func (a *AccountService) SignIn(ctx context.Context, email, password string) (*models.Account, string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	acc, err := a.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	valid, err := utils.VerifyPassword(password, acc.PasswordHash)
	if err != nil {
		log.Printf("[SignIn] Stored hash for account %s is unreadable: %v", acc.ID, err)
		return nil, "", ErrInvalidCredentials
	}
	if !valid || !acc.IsActive {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.sessions.Create(ctx, acc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign in: create session: %w", err)
	}
	return acc, token, nil
}

// SignOut drops the session behind token.
func (a *AccountService) SignOut(ctx context.Context, token string) error {
	return a.sessions.Invalidate(ctx, token)
}

// Resolve maps a bearer token to an identity.
// A missing, unknown or expired token returns ErrNoIdentity. A valid session whose account is
// gone or deactivated returns ErrAuth.
func (a *AccountService) Resolve(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrNoIdentity
	}

	accountID, ok, err := a.sessions.Validate(ctx, token)
	if err != nil {
		log.Printf("[Resolve] Session lookup failed: %v", err)
		return models.Identity{}, ErrNoIdentity
	}
	if !ok {
		return models.Identity{}, ErrNoIdentity
	}

	acc, err := a.store.GetAccountByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return models.Identity{}, ErrAuth
	}
	if err != nil {
		return models.Identity{}, err
	}
	if !acc.IsActive {
		return models.Identity{}, ErrAuth
	}
	return models.Identity{ID: acc.ID, Email: acc.Email}, nil
}
