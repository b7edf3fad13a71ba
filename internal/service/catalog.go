// Package service contains the application services for authentication,
// catalog browsing, and the cart.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/errs"
	"github.com/feiralivre/feira/internal/model"
	"github.com/feiralivre/feira/internal/normalize"
)

// doer is the slice of api.Client the services need; tests substitute fakes.
type doer interface {
	Do(ctx context.Context, method, path string, query url.Values, in, out any) (http.Header, error)
}

// CatalogService fetches categories and product listings.
type CatalogService interface {
	// Categories returns all categories.
	Categories(ctx context.Context) ([]model.Category, error)
	// Products returns one page of the listing, optionally filtered.
	Products(ctx context.Context, page, pageSize int, filter *model.Filter) (*model.ProductPage, error)
	// ProductByID returns one product with optional seller info.
	ProductByID(ctx context.Context, id string) (*model.ProductDetail, error)
	// ProductsByCategory returns the server-side filtered flat listing.
	ProductsByCategory(ctx context.Context, categoryID string) ([]model.Product, error)
	// ProductsByPriceRange returns a page constrained to [min, max].
	ProductsByPriceRange(ctx context.Context, min, max *float64, page, pageSize int) (*model.ProductPage, error)
	// ProductsByUser returns products listed by one user.
	ProductsByUser(ctx context.Context, userID string) ([]model.Product, error)
}

type CatalogServiceImpl struct {
	api doer
	log *zap.Logger
}

// NewCatalogService constructs CatalogService over the shared transport.
func NewCatalogService(api doer, log *zap.Logger) *CatalogServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogServiceImpl{api: api, log: log}
}

// listMeta is the optional pagination block backends attach to listings.
// Field names differ across backend versions, hence the aliases.
type listMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type productListBody struct {
	Products []normalize.Raw `json:"products"`
	Meta     *listMeta       `json:"meta"`
}

func (s *CatalogServiceImpl) Categories(ctx context.Context) ([]model.Category, error) {
	var body struct {
		Categories []normalize.Raw `json:"categories"`
	}
	if _, err := s.api.Do(ctx, http.MethodGet, "/categories", nil, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch categories")
	}
	out := make([]model.Category, 0, len(body.Categories))
	for _, raw := range body.Categories {
		out = append(out, normalize.Category(raw))
	}
	return out, nil
}

func (s *CatalogServiceImpl) Products(ctx context.Context, page, pageSize int, filter *model.Filter) (*model.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	if filter != nil {
		if filter.CategoryID != nil {
			q.Set("categoryId", *filter.CategoryID)
		}
		if filter.MinPrice != nil {
			q.Set("minPrice", formatPrice(*filter.MinPrice))
		}
		if filter.MaxPrice != nil {
			q.Set("maxPrice", formatPrice(*filter.MaxPrice))
		}
		if filter.Search != "" {
			q.Set("search", filter.Search)
		}
	}

	var body productListBody
	header, err := s.api.Do(ctx, http.MethodGet, "/products", q, nil, &body)
	if err != nil {
		return nil, api.Fallback(err, "Failed to fetch products")
	}

	items := normalizeAll(body.Products)
	return &model.ProductPage{
		Items: items,
		Page:  derivePage(page, pageSize, len(items), body.Meta, header),
	}, nil
}

func (s *CatalogServiceImpl) ProductByID(ctx context.Context, id string) (*model.ProductDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("empty product id")
	}
	var body struct {
		Product normalize.Raw `json:"product"`
	}
	if _, err := s.api.Do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch product")
	}
	if body.Product == nil {
		return nil, fmt.Errorf("product not found in response: %w", errs.ErrBadShape)
	}
	detail := normalize.ProductDetail(body.Product)
	return &detail, nil
}

func (s *CatalogServiceImpl) ProductsByCategory(ctx context.Context, categoryID string) ([]model.Product, error) {
	if categoryID == "" {
		return nil, fmt.Errorf("empty category id")
	}
	q := url.Values{}
	q.Set("categoryId", categoryID)
	var body productListBody
	if _, err := s.api.Do(ctx, http.MethodGet, "/products", q, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch products by category")
	}
	return normalizeAll(body.Products), nil
}

// ProductsByPriceRange derives pagination from the body meta only; unlike
// Products there is no header or short-page fallback.
func (s *CatalogServiceImpl) ProductsByPriceRange(ctx context.Context, min, max *float64, page, pageSize int) (*model.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	if min != nil {
		q.Set("minPrice", formatPrice(*min))
	}
	if max != nil {
		q.Set("maxPrice", formatPrice(*max))
	}

	var body productListBody
	if _, err := s.api.Do(ctx, http.MethodGet, "/products", q, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch products by price")
	}

	info := model.PageInfo{Page: page, PageSize: pageSize}
	if m := body.Meta; m != nil {
		fillFromMeta(&info, m)
	}
	return &model.ProductPage{Items: normalizeAll(body.Products), Page: info}, nil
}

func (s *CatalogServiceImpl) ProductsByUser(ctx context.Context, userID string) ([]model.Product, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	var body productListBody
	if _, err := s.api.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/products", nil, nil, &body); err != nil {
		return nil, api.Fallback(err, "Failed to fetch user products")
	}
	return normalizeAll(body.Products), nil
}

// --- helpers ---

func normalizeAll(raws []normalize.Raw) []model.Product {
	out := make([]model.Product, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalize.Product(raw))
	}
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// derivePage resolves pagination in order of preference: explicit body meta,
// the X-Total-Count header, then the short-page heuristic (a page shorter
// than requested is the last one).
func derivePage(page, pageSize, count int, meta *listMeta, header http.Header) model.PageInfo {
	info := model.PageInfo{Page: page, PageSize: pageSize}

	if meta != nil {
		fillFromMeta(&info, meta)
		if info.TotalPages > 0 || info.TotalItems > 0 {
			return info
		}
	}

	if raw := header.Get("X-Total-Count"); raw != "" {
		if total, err := strconv.Atoi(raw); err == nil && total >= 0 {
			info.TotalItems = total
			info.TotalPages = (total + pageSize - 1) / pageSize
			info.HasNext = page < info.TotalPages
			return info
		}
	}

	info.HasNext = count >= pageSize
	return info
}

func fillFromMeta(info *model.PageInfo, m *listMeta) {
	if m.Page > 0 {
		info.Page = m.Page
	}
	if size := firstPositive(m.PageSize, m.Limit); size > 0 {
		info.PageSize = size
	}
	info.TotalItems = firstPositive(m.TotalItems, m.Total)
	info.TotalPages = m.TotalPages
	if info.TotalPages == 0 && info.TotalItems > 0 && info.PageSize > 0 {
		info.TotalPages = (info.TotalItems + info.PageSize - 1) / info.PageSize
	}
	info.HasNext = info.TotalPages > 0 && info.Page < info.TotalPages
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
