// Package controller holds the screen-level state machines that sit between
// the services and any presentation layer. Controllers own their in-memory
// state, apply user mutations optimistically, and reconcile with the backend
// in the background.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/model"
)

// CartState is the cart screen lifecycle.
type CartState int

const (
	CartUnloaded CartState = iota
	CartLoading
	CartEmpty
	CartPopulated
	CartCheckingOut
)

func (s CartState) String() string {
	switch s {
	case CartUnloaded:
		return "unloaded"
	case CartLoading:
		return "loading"
	case CartEmpty:
		return "empty"
	case CartPopulated:
		return "populated"
	case CartCheckingOut:
		return "checking out"
	default:
		return "unknown"
	}
}

// cartAPI is the slice of service.CartService the controller uses.
type cartAPI interface {
	Get(ctx context.Context) ([]model.CartLine, error)
	Remove(ctx context.Context, productID string) (json.RawMessage, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (json.RawMessage, error)
	Checkout(ctx context.Context) error
}

// tokenReader reads the current token; errs.ErrNoToken means guest.
type tokenReader interface {
	Read() (string, error)
}

// Cart holds the in-memory cart for one screen. Mutations apply to local
// state first and reconcile with the backend fire-and-forget: a failed
// background call is logged, never surfaced, and never rolled back. The last
// local mutation wins regardless of network completion order.
type Cart struct {
	svc    cartAPI
	tokens tokenReader
	log    *zap.Logger

	mu          sync.Mutex
	state       CartState
	lines       []model.CartLine
	loadedToken string // token active at the last completed load

	background sync.WaitGroup
}

// NewCart constructs the controller in the Unloaded state.
func NewCart(svc cartAPI, tokens tokenReader, log *zap.Logger) *Cart {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cart{svc: svc, tokens: tokens, log: log}
}

// Load fetches the cart. Guests short-circuit straight to Empty without a
// network call, so an unauthenticated user sees an empty cart rather than an
// authentication error.
func (c *Cart) Load(ctx context.Context) error {
	tok, err := c.tokens.Read()
	if err != nil {
		c.mu.Lock()
		c.state = CartEmpty
		c.lines = nil
		c.loadedToken = ""
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.state = CartLoading
	c.mu.Unlock()

	lines, err := c.svc.Get(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("load cart", zap.Error(err))
		c.state = CartEmpty
		c.lines = nil
		return err
	}
	c.lines = lines
	c.loadedToken = tok
	if len(lines) == 0 {
		c.state = CartEmpty
	} else {
		c.state = CartPopulated
	}
	return nil
}

// OnFocus reloads when the stored token differs from the one captured at the
// last load, covering login/logout that happened on another screen.
func (c *Cart) OnFocus(ctx context.Context) error {
	tok, err := c.tokens.Read()
	if err != nil {
		tok = ""
	}
	c.mu.Lock()
	changed := tok != c.loadedToken || c.state == CartUnloaded
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Load(ctx)
}

// RemoveLine drops the line locally before the backend round-trip and fires
// the reconciliation in the background.
func (c *Cart) RemoveLine(ctx context.Context, productID string) {
	c.mu.Lock()
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.Product.ID != productID {
			kept = append(kept, line)
		}
	}
	c.lines = kept
	if len(c.lines) == 0 && c.state == CartPopulated {
		c.state = CartEmpty
	}
	c.mu.Unlock()

	c.reconcile(ctx, "remove item", func(ctx context.Context) error {
		_, err := c.svc.Remove(ctx, productID)
		return err
	})
}

// ChangeQuantity replaces the matching line's quantity locally and fires the
// background update. The controller does not clamp the value; keeping the
// quantity >= 1 is the caller's boundary to enforce.
func (c *Cart) ChangeQuantity(ctx context.Context, productID string, quantity int) {
	c.mu.Lock()
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = quantity
			break
		}
	}
	c.mu.Unlock()

	c.reconcile(ctx, "update quantity", func(ctx context.Context) error {
		_, err := c.svc.UpdateQuantity(ctx, productID, quantity)
		return err
	})
}

// Checkout finalizes the cart. On success the local cart empties; on failure
// the prior Populated state is restored and the error surfaced. The state
// always leaves CheckingOut.
func (c *Cart) Checkout(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CartPopulated {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot checkout while cart is %s", state)
	}
	c.state = CartCheckingOut
	c.mu.Unlock()

	err := c.svc.Checkout(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = CartPopulated
		return err
	}
	c.lines = nil
	c.state = CartEmpty
	return nil
}

// Lines returns a copy of the current local cart.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total recomputes the cart total from current local state on every call.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, line := range c.lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// State returns the current lifecycle state.
func (c *Cart) State() CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until all background reconciliation calls issued so far have
// completed. Call before shutdown.
func (c *Cart) Wait() {
	c.background.Wait()
}

// reconcile runs op detached from the caller's cancellation. Failures are
// logged only; the optimistic local state stands.
func (c *Cart) reconcile(ctx context.Context, what string, op func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := op(bg); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("cart reconciliation failed", zap.String("op", what), zap.Error(err))
		}
	}()
}
