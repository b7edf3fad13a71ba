package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/errs"
	"github.com/feiralivre/feira/internal/model"
)

// fakeDoer replays a canned body/header/err and records the last request.
type fakeDoer struct {
	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastIn     any

	body   string
	header http.Header
	err    error
}

func (f *fakeDoer) Do(_ context.Context, method, path string, query url.Values, in, out any) (http.Header, error) {
	f.lastMethod, f.lastPath, f.lastQuery, f.lastIn = method, path, query, in
	if f.err != nil {
		return f.header, f.err
	}
	if out != nil && f.body != "" {
		if err := json.Unmarshal([]byte(f.body), out); err != nil {
			return f.header, err
		}
	}
	if f.header == nil {
		return http.Header{}, nil
	}
	return f.header, nil
}

func ptr[T any](v T) *T { return &v }

func TestCategories(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"categories":[{"id":1,"name":"Roupas"},{"id":2,"name":"Livros"}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, d.lastMethod)
	assert.Equal(t, "/categories", d.lastPath)
	require.Len(t, got, 2)
	assert.Equal(t, model.Category{ID: "1", Name: "Roupas"}, got[0])
}

func TestCategories_FallbackMessage(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{err: &api.Error{Status: 500}}
	s := NewCatalogService(d, nil)

	_, err := s.Categories(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch categories", err.Error())
}

func TestProducts_QueryParameters(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"products":[]}`}
	s := NewCatalogService(d, nil)

	filter := &model.Filter{
		CategoryID: ptr("3"),
		MinPrice:   ptr(10.5),
		MaxPrice:   ptr(99.0),
		Search:     "tenis",
	}
	_, err := s.Products(context.Background(), 2, 20, filter)
	require.NoError(t, err)

	assert.Equal(t, "/products", d.lastPath)
	assert.Equal(t, "2", d.lastQuery.Get("page"))
	assert.Equal(t, "20", d.lastQuery.Get("limit"))
	assert.Equal(t, "3", d.lastQuery.Get("categoryId"))
	assert.Equal(t, "10.5", d.lastQuery.Get("minPrice"))
	assert.Equal(t, "99", d.lastQuery.Get("maxPrice"))
	assert.Equal(t, "tenis", d.lastQuery.Get("search"))
}

func TestProducts_PaginationFromMeta(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{
		"products": [{"id":1},{"id":2}],
		"meta": {"page": 2, "limit": 2, "total": 10, "totalPages": 5}
	}`}
	s := NewCatalogService(d, nil)

	got, err := s.Products(context.Background(), 2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Page.Page)
	assert.Equal(t, 10, got.Page.TotalItems)
	assert.Equal(t, 5, got.Page.TotalPages)
	assert.True(t, got.Page.HasNext)
}

func TestProducts_PaginationFromHeader(t *testing.T) {
	t.Parallel()
	header := http.Header{}
	header.Set("X-Total-Count", "25")
	d := &fakeDoer{body: `{"products":[{"id":1}]}`, header: header}
	s := NewCatalogService(d, nil)

	got, err := s.Products(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Page.TotalItems)
	assert.Equal(t, 3, got.Page.TotalPages)
	assert.True(t, got.Page.HasNext)
}

func TestProducts_ShortPageHeuristic(t *testing.T) {
	t.Parallel()
	// 7 items for a 10-item page and no meta: this is the last page
	d := &fakeDoer{body: `{"products":[{"id":1},{"id":2},{"id":3},{"id":4},{"id":5},{"id":6},{"id":7}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.Products(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Len(t, got.Items, 7)
	assert.False(t, got.Page.HasNext)
}

func TestProducts_FullPageHeuristic(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"products":[{"id":1},{"id":2}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.Products(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	assert.True(t, got.Page.HasNext, "a full page may have a successor")
}

func TestProductByID(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"product":{"id":15,"title":"Mesa","price":"120.00","users":{"id":2,"username":"bia"}}}`}
	s := NewCatalogService(d, nil)

	got, err := s.ProductByID(context.Background(), "15")
	require.NoError(t, err)
	assert.Equal(t, "/products/15", d.lastPath)
	assert.Equal(t, "Mesa", got.Name)
	assert.Equal(t, 120.0, got.Price)
	require.NotNil(t, got.Seller)
	assert.Equal(t, "bia", got.Seller.Name)
}

func TestProductByID_MissingFromBody(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{}`}
	s := NewCatalogService(d, nil)

	_, err := s.ProductByID(context.Background(), "15")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrBadShape)
	assert.Contains(t, err.Error(), "product not found in response")
}

func TestProductsByCategory(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"products":[{"id":1,"categoryId":"3"}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.ProductsByCategory(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "3", d.lastQuery.Get("categoryId"))
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].CategoryID)
}

func TestProductsByPriceRange_MetaOnly(t *testing.T) {
	t.Parallel()
	// no meta and a short page: unlike Products, no heuristic applies
	d := &fakeDoer{body: `{"products":[{"id":1}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.ProductsByPriceRange(context.Background(), ptr(10.0), ptr(50.0), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "10", d.lastQuery.Get("minPrice"))
	assert.Equal(t, "50", d.lastQuery.Get("maxPrice"))
	assert.False(t, got.Page.HasNext)
	assert.Zero(t, got.Page.TotalPages)
}

func TestProductsByUser(t *testing.T) {
	t.Parallel()
	d := &fakeDoer{body: `{"products":[{"id":8,"title":"Bike"}]}`}
	s := NewCatalogService(d, nil)

	got, err := s.ProductsByUser(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "/users/77/products", d.lastPath)
	require.Len(t, got, 1)
	assert.Equal(t, "Bike", got[0].Name)
}

func TestCatalog_ValidationErrors(t *testing.T) {
	t.Parallel()
	s := NewCatalogService(&fakeDoer{}, nil)
	ctx := context.Background()

	_, err := s.ProductByID(ctx, "")
	assert.Error(t, err)
	_, err = s.ProductsByCategory(ctx, "")
	assert.Error(t, err)
	_, err = s.ProductsByUser(ctx, "")
	assert.Error(t, err)
}
