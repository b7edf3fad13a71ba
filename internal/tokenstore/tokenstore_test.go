package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feiralivre/feira/internal/errs"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestReadBeforeWrite(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	_, err := s.Read()
	assert.ErrorIs(t, err, errs.ErrNoToken)
}

func TestWriteThenRead(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	tok := signedToken(t, time.Now().Add(time.Hour))

	require.NoError(t, s.Write(tok))
	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestWriteReplacesPrior(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	require.NoError(t, s.Write(signedToken(t, time.Now().Add(time.Hour))))

	second := signedToken(t, time.Now().Add(2*time.Hour))
	require.NoError(t, s.Write(second))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestExpiredTokenReadsAsAbsent(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	require.NoError(t, s.Write(signedToken(t, time.Now().Add(-time.Minute))))

	_, err := s.Read()
	assert.ErrorIs(t, err, errs.ErrNoToken)
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	require.NoError(t, s.Write("not-a-jwt"))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", got)
}

func TestClear(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	// clearing with nothing stored is a no-op success
	require.NoError(t, s.Clear())

	require.NoError(t, s.Write(signedToken(t, time.Now().Add(time.Hour))))
	require.NoError(t, s.Clear())
	_, err := s.Read()
	assert.ErrorIs(t, err, errs.ErrNoToken)
}

func TestCorruptFileReadsAsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFileName), []byte("{broken"), 0o600))

	_, err := New(dir).Read()
	assert.ErrorIs(t, err, errs.ErrNoToken)
}
