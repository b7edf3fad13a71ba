package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/model"
)

// catalogAPI is the slice of service.CatalogService the controller uses.
type catalogAPI interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Products(ctx context.Context, page, pageSize int, filter *model.Filter) (*model.ProductPage, error)
}

// Catalog accumulates product pages for one listing screen. Pages append to
// the accumulation; the active filter narrows the visible subset client-side.
// Every fetch is stamped with a generation counter and a stale response
// (issued before the last Load) is discarded rather than overwriting newer
// state.
type Catalog struct {
	svc      catalogAPI
	log      *zap.Logger
	pageSize int

	mu         sync.Mutex
	products   []model.Product
	categories []model.Category
	filter     model.Filter
	page       int // last fetched page, 0 before the first load
	loading    bool
	endOfList  bool
	generation uint64
}

// NewCatalog constructs the controller. pageSize below 1 falls back to 10.
func NewCatalog(svc catalogAPI, pageSize int, log *zap.Logger) *Catalog {
	if pageSize < 1 {
		pageSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{svc: svc, pageSize: pageSize, log: log}
}

// Load fetches page 1 and the category list concurrently. The loading flag
// clears only after both complete; each failure is logged independently and
// does not block the other's data. The first error (products first) returns.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	// a new Load supersedes any fetch still in flight; the generation bump
	// makes the stale result get dropped on arrival
	c.generation++
	gen := c.generation
	c.loading = true
	filter := c.filter
	c.mu.Unlock()

	var (
		wg          sync.WaitGroup
		page        *model.ProductPage
		categories  []model.Category
		pageErr     error
		categoryErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		page, pageErr = c.svc.Products(ctx, 1, c.pageSize, searchOnly(filter))
	}()
	go func() {
		defer wg.Done()
		categories, categoryErr = c.svc.Categories(ctx)
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// a newer Load superseded this one; drop the results
		return nil
	}
	c.loading = false

	if categoryErr != nil {
		c.log.Warn("load categories", zap.Error(categoryErr))
	} else {
		c.categories = categories
	}

	if pageErr != nil {
		c.log.Warn("load products", zap.Error(pageErr))
		c.products = nil
		c.page = 0
		c.endOfList = false
		return pageErr
	}
	c.products = page.Items
	c.page = 1
	c.endOfList = !page.Page.HasNext
	if categoryErr != nil {
		return categoryErr
	}
	return nil
}

// LoadMore fetches the next page and appends it. It is a no-op while a fetch
// is in flight or once the end of the list was reached.
func (c *Catalog) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || c.endOfList || c.page == 0 {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	gen := c.generation
	next := c.page + 1
	filter := c.filter
	c.mu.Unlock()

	page, err := c.svc.Products(ctx, next, c.pageSize, searchOnly(filter))

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.loading = false
	if err != nil {
		c.log.Warn("load more products", zap.Error(err), zap.Int("page", next))
		return err
	}
	c.products = append(c.products, page.Items...)
	c.page = next
	c.endOfList = !page.Page.HasNext
	return nil
}

// ApplyFilters replaces the active filter wholesale; there is no merge with
// the previous one. The visible subset is recomputed from the accumulation;
// clearing every dimension restores the full accumulated set.
func (c *Catalog) ApplyFilters(filter model.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

// Visible returns the accumulated products passing the active category and
// price checks, in fetch order.
func (c *Catalog) Visible() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filter.IsZero() {
		out := make([]model.Product, len(c.products))
		copy(out, c.products)
		return out
	}
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		if c.filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Products returns a copy of the full accumulation, unfiltered.
func (c *Catalog) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Categories returns the fetched category list.
func (c *Catalog) Categories() []model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Filter returns the active filter.
func (c *Catalog) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Loading reports whether a fetch is in flight.
func (c *Catalog) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// EndOfList reports whether the last fetched page was the final one.
func (c *Catalog) EndOfList() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endOfList
}

// searchOnly forwards just the free-text term to the backend; category and
// price narrowing happen client-side over the accumulation.
func searchOnly(f model.Filter) *model.Filter {
	if f.Search == "" {
		return nil
	}
	return &model.Filter{Search: f.Search}
}
