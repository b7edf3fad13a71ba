// Package api implements the shared REST transport: URL joining, bearer
// attachment, JSON codec, backend error-envelope decoding, and the global
// side effect of clearing the stored token on any 401 response.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/errs"
)

// TokenStore is the slice of the token store the transport needs. Read yields
// errs.ErrNoToken when no valid token is stored.
type TokenStore interface {
	Read() (string, error)
	Write(tok string) error
	Clear() error
}

// Error is a failed backend call. Message is the backend-supplied message
// field, empty when the body carried none.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Unwrap maps well-known statuses to sentinels so callers can errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusNotFound:
		return errs.ErrNotFound
	default:
		return nil
	}
}

// Fallback substitutes msg when err carries no backend message. Transport
// errors and empty error envelopes both get the per-operation fallback.
func Fallback(err error, msg string) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return err
		}
		return &Error{Status: apiErr.Status, Message: msg}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Client issues JSON requests against the marketplace backend. A stored token
// is attached as a bearer credential when present; requests go out
// unauthenticated otherwise and the backend decides whether that is allowed.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	log    *zap.Logger
}

// New builds a client for baseURL. tokens must not be nil; nil log disables logging.
func New(baseURL string, tokens TokenStore, log *zap.Logger, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q missing scheme or host", baseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
		log:    log,
	}, nil
}

// Do performs one call. in (when non-nil) is sent as a JSON body, out (when
// non-nil) receives the decoded response body. The response headers are
// returned so callers can read pagination totals. On 401 the stored token is
// cleared before the error is returned.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) (http.Header, error) {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-Id", id.String())
	}
	if tok, err := c.tokens.Read(); err == nil {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: backendMessage(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized {
			// global side effect: any 401 logs the whole client out
			if cerr := c.tokens.Clear(); cerr != nil {
				c.log.Warn("clear token after 401", zap.Error(cerr))
			}
		}
		return resp.Header, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// backendMessage pulls the "message" field from an error envelope, tolerating
// bodies that are not JSON at all.
func backendMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}
