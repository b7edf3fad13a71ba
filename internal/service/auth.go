package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/errs"
	"github.com/feiralivre/feira/internal/model"
	"github.com/feiralivre/feira/internal/normalize"
)

// Login failure messages shown to the user, keyed by what the backend said.
const (
	msgWrongCredentials = "E-mail ou senha incorretos"
	msgUnknownEmail     = "E-mail não cadastrado"
	msgLoginFailed      = "Não foi possível entrar. Tente novamente."
)

// AuthService handles the session lifecycle.
type AuthService interface {
	// Login authenticates and stores the issued token.
	Login(ctx context.Context, email, password string) (model.User, error)
	// Profile returns the authenticated account. Fails with errs.ErrNoToken
	// before any network call when no token is stored.
	Profile(ctx context.Context) (model.User, error)
	// Logout discards the stored token.
	Logout(ctx context.Context) error
}

type AuthServiceImpl struct {
	api    doer
	tokens api.TokenStore
	log    *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(apiClient doer, tokens api.TokenStore, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{api: apiClient, tokens: tokens, log: log}
}

// Login maps backend statuses to localized messages: 401 means bad
// credentials, 404 an unknown e-mail, anything else the generic failure.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.User, error) {
	if email == "" || password == "" {
		return model.User{}, fmt.Errorf("empty email/password")
	}

	in := map[string]string{"email": email, "password": password}
	var body struct {
		Data struct {
			Token string        `json:"token"`
			User  normalize.Raw `json:"user"`
		} `json:"data"`
	}
	if _, err := s.api.Do(ctx, http.MethodPost, "/auth/login", nil, in, &body); err != nil {
		return model.User{}, loginError(err)
	}
	if body.Data.Token == "" {
		return model.User{}, fmt.Errorf("token missing from login response: %w", errs.ErrBadShape)
	}
	if err := s.tokens.Write(body.Data.Token); err != nil {
		return model.User{}, fmt.Errorf("store token: %w", err)
	}
	return normalize.User(body.Data.User), nil
}

// Profile handles both envelope variants the backend has shipped: {data:{...}}
// and {profile:{...}}.
func (s *AuthServiceImpl) Profile(ctx context.Context) (model.User, error) {
	if _, err := s.tokens.Read(); err != nil {
		return model.User{}, errs.ErrNoToken
	}

	var body struct {
		Data    normalize.Raw `json:"data"`
		Profile normalize.Raw `json:"profile"`
	}
	if _, err := s.api.Do(ctx, http.MethodGet, "/users/profile", nil, nil, &body); err != nil {
		return model.User{}, api.Fallback(err, "Failed to fetch user profile")
	}
	switch {
	case body.Profile != nil:
		return normalize.User(body.Profile), nil
	case body.Data != nil:
		return normalize.User(body.Data), nil
	default:
		return model.User{}, fmt.Errorf("profile missing from response: %w", errs.ErrBadShape)
	}
}

func (s *AuthServiceImpl) Logout(_ context.Context) error {
	return s.tokens.Clear()
}

func loginError(err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", msgLoginFailed, err)
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		return &api.Error{Status: apiErr.Status, Message: msgWrongCredentials}
	case http.StatusNotFound:
		return &api.Error{Status: apiErr.Status, Message: msgUnknownEmail}
	default:
		return &api.Error{Status: apiErr.Status, Message: msgLoginFailed}
	}
}
