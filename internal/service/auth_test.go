package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/errs"
)

// memTokens mirrors the token store surface for service tests.
type memTokens struct {
	token string
}

func (m *memTokens) Read() (string, error) {
	if m.token == "" {
		return "", errs.ErrNoToken
	}
	return m.token, nil
}
func (m *memTokens) Write(tok string) error { m.token = tok; return nil }
func (m *memTokens) Clear() error           { m.token = ""; return nil }

func TestLogin_StoresTokenAndReturnsUser(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"data":{"token":"jwt-abc","user":{"id":7,"username":"ana","email":"a@b.com"}}}`}
	tokens := &memTokens{}
	s := NewAuthService(d, tokens, nil)

	user, err := s.Login(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, d.lastMethod)
	assert.Equal(t, "/auth/login", d.lastPath)
	assert.Equal(t, map[string]string{"email": "a@b.com", "password": "secret"}, d.lastIn)
	assert.Equal(t, "jwt-abc", tokens.token)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, "7", user.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	// backend rejects with 401; the transport has already cleared the store
	d := &fakeDoer{err: &api.Error{Status: http.StatusUnauthorized, Message: "invalid credentials"}}
	tokens := &memTokens{}
	s := NewAuthService(d, tokens, nil)

	_, err := s.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "E-mail ou senha incorretos", err.Error())
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = tokens.Read()
	assert.ErrorIs(t, err, errs.ErrNoToken, "no token stored after failed login")
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{err: &api.Error{Status: http.StatusNotFound}}
	s := NewAuthService(d, &memTokens{}, nil)

	_, err := s.Login(context.Background(), "x@y.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "E-mail não cadastrado", err.Error())
}

func TestLogin_GenericFailure(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{err: &api.Error{Status: http.StatusInternalServerError, Message: "boom"}}
	s := NewAuthService(d, &memTokens{}, nil)

	_, err := s.Login(context.Background(), "x@y.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Não foi possível entrar. Tente novamente.", err.Error())
}

func TestLogin_TokenMissingFromBody(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"data":{"user":{"id":7}}}`}
	s := NewAuthService(d, &memTokens{}, nil)

	_, err := s.Login(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, errs.ErrBadShape)
}

func TestProfile_EnvelopeVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"data envelope", `{"data":{"id":7,"username":"ana"}}`},
		{"profile envelope", `{"profile":{"id":7,"username":"ana"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDoer{body: tt.body}
			s := NewAuthService(d, &memTokens{token: "tok"}, nil)

			user, err := s.Profile(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "/users/profile", d.lastPath)
			assert.Equal(t, "ana", user.Username)
		})
	}
}

func TestProfile_NoTokenShortCircuits(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{}
	s := NewAuthService(d, &memTokens{}, nil)

	_, err := s.Profile(context.Background())
	assert.ErrorIs(t, err, errs.ErrNoToken)
	assert.Empty(t, d.lastPath, "no network call without a token")
}

func TestProfile_NeitherEnvelope(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"something":"else"}`}
	s := NewAuthService(d, &memTokens{token: "tok"}, nil)

	_, err := s.Profile(context.Background())
	assert.ErrorIs(t, err, errs.ErrBadShape)
}

func TestLogout(t *testing.T) {
	t.Parallel()
	tokens := &memTokens{token: "tok"}
	s := NewAuthService(&fakeDoer{}, tokens, nil)

	require.NoError(t, s.Logout(context.Background()))
	_, err := tokens.Read()
	assert.ErrorIs(t, err, errs.ErrNoToken)
}
