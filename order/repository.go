package order

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/transport"
)

const cachePrefix = "/orders"

// PlaceRequest turns the selected cart lines into an order.
type PlaceRequest struct {
	LineIDs  []string `json:"lineIds"`
	Currency string   `json:"currency"`
}

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context, userID string, page, limit int) ([]*models.Order, error)
	Get(ctx context.Context, userID string, id uint64) (*models.Order, error)
	Place(ctx context.Context, userID string, req PlaceRequest) (*models.Order, error)
	Cancel(ctx context.Context, userID string, id uint64) (*models.Order, error)
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

func (r *repository) List(ctx context.Context, userID string, page, limit int) ([]*models.Order, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	params := map[string]string{"user": userID}
	for k := range query {
		params[k] = query.Get(k)
	}
	cacheKey := cache.GenerateKey(cachePrefix, params)
	var orders []*models.Order

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &orders)
	if err != nil {
		r.logger.Warn("Failed to get orders from cache", zap.Error(err))
	}
	if found {
		return orders, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, cachePrefix, query, nil, &orders); err != nil {
		r.logger.Error("Failed to list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, orders, cache.TTLShort); err != nil {
		r.logger.Warn("Failed to cache orders", zap.Error(err))
	}

	return orders, nil
}

func (r *repository) Get(ctx context.Context, userID string, id uint64) (*models.Order, error) {
	path := fmt.Sprintf("%s/%d", cachePrefix, id)
	cacheKey := cache.GenerateKey(path, map[string]string{"user": userID})
	var order models.Order

	// 嘗試從快取中獲取
	found, err := r.cache.Get(ctx, cacheKey, &order)
	if err != nil {
		r.logger.Warn("Failed to get order from cache", zap.Error(err))
	}
	if found {
		return &order, nil
	}

	if err := r.conn.Do(ctx, http.MethodGet, path, nil, nil, &order); err != nil {
		r.logger.Error("Failed to get order", zap.Uint64("order_id", id), zap.Error(err))
		return nil, err
	}

	// 更新快取
	if err := r.cache.Set(ctx, cacheKey, order, cache.TTLShort); err != nil {
		r.logger.Warn("Failed to cache order", zap.Error(err))
	}

	return &order, nil
}

func (r *repository) Place(ctx context.Context, userID string, req PlaceRequest) (*models.Order, error) {
	// 重送時避免重複下單
	ctx = transport.WithIdempotencyKey(ctx, uuid.NewString())

	var order models.Order
	if err := r.conn.Do(ctx, http.MethodPost, cachePrefix, nil, req, &order); err != nil {
		r.logger.Error("Failed to place order",
			zap.String("user_id", userID),
			zap.Int("lines", len(req.LineIDs)),
			zap.Error(err))
		return nil, err
	}

	r.invalidateOrderCache(ctx, userID)
	return &order, nil
}

func (r *repository) Cancel(ctx context.Context, userID string, id uint64) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("%s/%d/cancel", cachePrefix, id)
	if err := r.conn.Do(ctx, http.MethodPost, path, nil, nil, &order); err != nil {
		r.logger.Error("Failed to cancel order", zap.Uint64("order_id", id), zap.Error(err))
		return nil, err
	}

	r.invalidateOrderCache(ctx, userID)
	return &order, nil
}

func (r *repository) invalidateOrderCache(ctx context.Context, userID string) {
	if err := r.cache.DeletePattern(ctx, cachePrefix); err != nil {
		r.logger.Warn("Failed to invalidate order cache", zap.String("user_id", userID), zap.Error(err))
	}
}
