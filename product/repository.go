package product

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/transport"
)

const cachePrefix = "/products"

// ListParams filters a product listing. Zero values are left out of the query.
type ListParams struct {
	Page       int
	Limit      int
	CategoryID *uint64
	Search     string
	Sort       string
}

func (p ListParams) values() map[string]string {
	v := make(map[string]string)
	if p.Page > 0 {
		v["page"] = strconv.Itoa(p.Page)
	}
	if p.Limit > 0 {
		v["limit"] = strconv.Itoa(p.Limit)
	}
	if p.CategoryID != nil {
		v["category_id"] = strconv.FormatUint(*p.CategoryID, 10)
	}
	if p.Search != "" {
		v["search"] = p.Search
	}
	if p.Sort != "" {
		v["sort"] = p.Sort
	}
	return v
}

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context, params ListParams) (*models.ProductPage, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	conn   transport.Requester
	cache  cache.Store
	logger *zap.Logger
}

func NewRepository(conn transport.Requester, cache cache.Store, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		cache:  cache,
		logger: logger,
	}
}

func (r *repository) List(ctx context.Context, params ListParams) (*models.ProductPage, error) {
	values := params.values()
	cacheKey := cache.GenerateKey(cachePrefix, values)
	var page models.ProductPage

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &page)
	if err != nil {
		r.logger.Warn("Failed to get products from cache", zap.Error(err))
	}
	if found {
		return &page, nil
	}

	query := make(url.Values, len(values))
	for k, v := range values {
		query.Set(k, v)
	}
	if err := r.conn.Do(ctx, http.MethodGet, cachePrefix, query, nil, &page); err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, page, cache.TTLMedium); err != nil {
		r.logger.Warn("Failed to cache products", zap.Error(err))
	}

	return &page, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	path := fmt.Sprintf("%s/%s", cachePrefix, url.PathEscape(id))
	cacheKey := cache.GenerateKey(path, nil)
	var product models.Product

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &product)
	if err != nil {
		r.logger.Warn("Failed to get product from cache", zap.Error(err))
	}
	if found {
		return &product, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, path, nil, nil, &product); err != nil {
		r.logger.Error("Failed to get product", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, product, cache.TTLMedium); err != nil {
		r.logger.Warn("Failed to cache product", zap.Error(err))
	}

	return &product, nil
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.conn.Do(ctx, http.MethodPost, cachePrefix, nil, product, product); err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}

	r.invalidateProductCache(ctx)
	return nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	path := fmt.Sprintf("%s/%s", cachePrefix, url.PathEscape(product.ID))
	if err := r.conn.Do(ctx, http.MethodPut, path, nil, product, product); err != nil {
		r.logger.Error("Failed to update product", zap.String("id", product.ID), zap.Error(err))
		return err
	}

	// 價格或庫存異動會影響所有清單頁
	r.invalidateProductCache(ctx)
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("%s/%s", cachePrefix, url.PathEscape(id))
	if err := r.conn.Do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		r.logger.Error("Failed to delete product", zap.String("id", id), zap.Error(err))
		return err
	}

	r.invalidateProductCache(ctx)
	return nil
}

func (r *repository) invalidateProductCache(ctx context.Context) {
	if err := r.cache.DeletePattern(ctx, cachePrefix); err != nil {
		r.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
