package cart

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gofalre.io/storefront/transport"
)

var _ Repository = (*repository)(nil)

// Repository is the backend cart API. The server is authoritative; Fetch
// returns the raw decoded payload because its shape varies.
type Repository interface {
	Fetch(ctx context.Context) (any, error)
	AddItem(ctx context.Context, productID string, quantity int) error
	UpdateItem(ctx context.Context, lineID string, quantity int) error
	RemoveItem(ctx context.Context, lineID string) error
}

type repository struct {
	conn   transport.Requester
	logger *zap.Logger
}

func NewRepository(conn transport.Requester, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (r *repository) Fetch(ctx context.Context) (any, error) {
	var payload any
	if err := r.conn.Do(ctx, http.MethodGet, "/cart", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *repository) AddItem(ctx context.Context, productID string, quantity int) error {
	// 重送時避免重複加入
	ctx = transport.WithIdempotencyKey(ctx, uuid.NewString())

	err := r.conn.Do(ctx, http.MethodPost, "/cart/items", nil, addItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
	if err != nil {
		r.logger.Error("Failed to add cart item", zap.String("product_id", productID), zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) UpdateItem(ctx context.Context, lineID string, quantity int) error {
	err := r.conn.Do(ctx, http.MethodPut, itemPath(lineID), nil, updateItemRequest{
		Quantity: quantity,
	}, nil)
	if err != nil {
		r.logger.Error("Failed to update cart item", zap.String("line_id", lineID), zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) RemoveItem(ctx context.Context, lineID string) error {
	err := r.conn.Do(ctx, http.MethodDelete, itemPath(lineID), nil, nil, nil)
	if err != nil {
		r.logger.Error("Failed to remove cart item", zap.String("line_id", lineID), zap.Error(err))
		return err
	}
	return nil
}

func itemPath(lineID string) string {
	return "/cart/items/" + url.PathEscape(lineID)
}
