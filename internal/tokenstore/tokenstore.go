// Package tokenstore persists the single bearer token the client holds.
// The token lives in one JSON file under the user config dir and survives
// restarts. Expiry is read from the token's JWT claims without signature
// validation; an expired token reads as absent.
package tokenstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feiralivre/feira/internal/errs"
)

const tokenFileName = "token.json"

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Store reads and writes the token file. The zero value is not usable; use New.
type Store struct {
	dir string
}

// New returns a store rooted at dir. An empty dir selects DefaultDir.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir resolves the per-user config dir, honoring XDG_CONFIG_HOME.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "feira")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "feira")
}

func (s *Store) path() string { return filepath.Join(s.dir, tokenFileName) }

// Read returns the stored token, or errs.ErrNoToken when nothing is stored,
// the file is unreadable, or the token has expired.
func (s *Store) Read() (string, error) {
	b, err := os.ReadFile(s.path())
	if err != nil {
		return "", errs.ErrNoToken
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", errs.ErrNoToken
	}
	if tf.AccessToken == "" {
		return "", errs.ErrNoToken
	}
	if !tf.ExpiresAt.IsZero() && time.Now().After(tf.ExpiresAt) {
		return "", errs.ErrNoToken
	}
	return tf.AccessToken, nil
}

// Write persists tok, replacing any prior value. The expiry is taken from the
// token's exp claim when it parses as a JWT; opaque tokens get no expiry.
func (s *Store) Write(tok string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	tf := tokenFile{AccessToken: tok, ExpiresAt: expiry(tok)}
	b, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), b, 0o600)
}

// Clear removes any stored token. Clearing with nothing stored succeeds.
func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// expiry extracts the exp claim without validating the signature. The client
// never verifies tokens; it only avoids sending ones the backend will reject.
func expiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(tok, &claims,
		func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
