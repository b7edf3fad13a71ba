package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/model"
	"github.com/feiralivre/feira/internal/normalize"
)

// CartService mutates and reads the server-side cart. Every call attaches the
// stored token when present; the backend decides whether an unauthenticated
// call is permitted. Confirmation payloads from mutations are passed through
// undecoded: their shape varies and only the view layer consumes them.
type CartService interface {
	Add(ctx context.Context, productID string, quantity int) (json.RawMessage, error)
	Get(ctx context.Context) ([]model.CartLine, error)
	Remove(ctx context.Context, productID string) (json.RawMessage, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (json.RawMessage, error)
	Checkout(ctx context.Context) error
}

type CartServiceImpl struct {
	api doer
	log *zap.Logger
}

// NewCartService constructs CartService over the shared transport.
func NewCartService(api doer, log *zap.Logger) *CartServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartServiceImpl{api: api, log: log}
}

func (s *CartServiceImpl) Add(ctx context.Context, productID string, quantity int) (json.RawMessage, error) {
	if productID == "" {
		return nil, fmt.Errorf("empty product id")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	in := map[string]any{"productId": productID, "quantity": quantity}
	var out json.RawMessage
	if _, err := s.api.Do(ctx, http.MethodPost, "/cart/add", nil, in, &out); err != nil {
		return nil, api.Fallback(err, "Failed to add to cart")
	}
	return out, nil
}

func (s *CartServiceImpl) Get(ctx context.Context) ([]model.CartLine, error) {
	var body struct {
		CartItems []normalize.Raw `json:"cartItems"`
	}
	if _, err := s.api.Do(ctx, http.MethodGet, "/cart", nil, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch cart")
	}
	lines := make([]model.CartLine, 0, len(body.CartItems))
	for _, raw := range body.CartItems {
		lines = append(lines, normalize.CartLine(raw))
	}
	return lines, nil
}

func (s *CartServiceImpl) Remove(ctx context.Context, productID string) (json.RawMessage, error) {
	if productID == "" {
		return nil, fmt.Errorf("empty product id")
	}
	var out json.RawMessage
	if _, err := s.api.Do(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(productID), nil, nil, &out); err != nil {
		return nil, api.Fallback(err, "Failed to remove from cart")
	}
	return out, nil
}

func (s *CartServiceImpl) UpdateQuantity(ctx context.Context, productID string, quantity int) (json.RawMessage, error) {
	if productID == "" {
		return nil, fmt.Errorf("empty product id")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	path := "/cart/update/" + url.PathEscape(productID) + "/" + strconv.Itoa(quantity)
	var out json.RawMessage
	if _, err := s.api.Do(ctx, http.MethodPut, path, nil, struct{}{}, &out); err != nil {
		return nil, api.Fallback(err, "Failed to update cart")
	}
	return out, nil
}

func (s *CartServiceImpl) Checkout(ctx context.Context) error {
	if _, err := s.api.Do(ctx, http.MethodPost, "/cart/checkout", nil, nil, nil); err != nil {
		return api.Fallback(err, "Failed to checkout")
	}
	return nil
}
