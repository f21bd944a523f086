package category

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

// cachePrefix is shared by every category key so a write can drop them all.
const cachePrefix = "/categories"

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint64) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, limit, offset uint64) ([]*models.Category, error)
	ListSubcategories(ctx context.Context, parentID uint64) ([]*models.Category, error)
	Tree(ctx context.Context) ([]*models.CategoryTree, error)
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

func (r *repository) Create(ctx context.Context, category *models.Category) error {
	if err := r.conn.Do(ctx, http.MethodPost, cachePrefix, nil, category, category); err != nil {
		r.logger.Error("Failed to create category", zap.Error(err))
		return err
	}

	r.invalidateCategoryCache(ctx)
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*models.Category, error) {
	path := fmt.Sprintf("%s/%d", cachePrefix, id)
	cacheKey := cache.GenerateKey(path, nil)
	var category models.Category

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &category)
	if err != nil {
		r.logger.Warn("Failed to get category from cache", zap.Error(err))
	}
	if found {
		return &category, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, path, nil, nil, &category); err != nil {
		r.logger.Error("Failed to get category", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, category, cache.TTLLong); err != nil {
		r.logger.Warn("Failed to cache category", zap.Error(err))
	}

	return &category, nil
}

func (r *repository) Update(ctx context.Context, category *models.Category) error {
	path := fmt.Sprintf("%s/%d", cachePrefix, category.ID)
	if err := r.conn.Do(ctx, http.MethodPut, path, nil, category, category); err != nil {
		r.logger.Error("Failed to update category", zap.Uint64("id", category.ID), zap.Error(err))
		return err
	}

	// 分類異動會影響清單與子分類，整組失效
	r.invalidateCategoryCache(ctx)
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	path := fmt.Sprintf("%s/%d", cachePrefix, id)
	if err := r.conn.Do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		r.logger.Error("Failed to delete category", zap.Uint64("id", id), zap.Error(err))
		return err
	}

	r.invalidateCategoryCache(ctx)
	return nil
}

func (r *repository) List(ctx context.Context, limit, offset uint64) ([]*models.Category, error) {
	// limit 0 asks the backend for every category
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.FormatUint(limit, 10)
		params["offset"] = strconv.FormatUint(offset, 10)
	}
	cacheKey := cache.GenerateKey(cachePrefix, params)
	var categories []*models.Category

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &categories)
	if err != nil {
		r.logger.Warn("Failed to get categories from cache", zap.Error(err))
	}
	if found {
		return categories, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, cachePrefix, toQuery(params), nil, &categories); err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, categories, cache.TTLLong); err != nil {
		r.logger.Warn("Failed to cache categories", zap.Error(err))
	}

	return categories, nil
}

func (r *repository) ListSubcategories(ctx context.Context, parentID uint64) ([]*models.Category, error) {
	path := fmt.Sprintf("%s/%d/subcategories", cachePrefix, parentID)
	cacheKey := cache.GenerateKey(path, nil)
	var categories []*models.Category

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &categories)
	if err != nil {
		r.logger.Warn("Failed to get subcategories from cache", zap.Error(err))
	}
	if found {
		return categories, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, path, nil, nil, &categories); err != nil {
		r.logger.Error("Failed to list subcategories", zap.Uint64("parent_id", parentID), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, categories, cache.TTLLong); err != nil {
		r.logger.Warn("Failed to cache subcategories", zap.Error(err))
	}

	return categories, nil
}

// Tree lists every category and assembles them into root nodes.
func (r *repository) Tree(ctx context.Context) ([]*models.CategoryTree, error) {
	categories, err := r.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for tree: %w", err)
	}
	return BuildTree(categories), nil
}

func (r *repository) invalidateCategoryCache(ctx context.Context) {
	if err := r.cache.DeletePattern(ctx, cachePrefix); err != nil {
		r.logger.Warn("Failed to invalidate category cache", zap.Error(err))
	}
}

func toQuery(params map[string]string) url.Values {
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}
