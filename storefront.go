// Package storefront wires the cart store, the catalog repositories, the
// response cache and the optional event bus into one client service.
package storefront

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/category"
	"gofalre.io/storefront/config"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/order"
	"gofalre.io/storefront/product"
	"gofalre.io/storefront/profile"
	"gofalre.io/storefront/transport"
)

var (
	ErrLoginRequired       = errors.New("login required")
	ErrEmptySelection      = errors.New("no cart lines selected for checkout")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
)

type Service interface {
	Cart() cart.Service

	Login(ctx context.Context, token string) (*models.UserProfile, error)
	Logout(ctx context.Context)

	AddItem(ctx context.Context, product models.Product, quantity int) *Future
	SetQuantity(ctx context.Context, lineID string, quantity int) *Future
	RemoveItem(ctx context.Context, lineID string) *Future
	Checkout(ctx context.Context) (*models.Order, models.Result, error)

	ListProducts(ctx context.Context, params product.ListParams) (*models.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategoryByID(ctx context.Context, id uint64) (*models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uint64) error
	ListCategory(ctx context.Context, limit, offset uint64) ([]*models.Category, error)
	ListSubcategories(ctx context.Context, parentID uint64) ([]*models.Category, error)
	GetCategoryTree(ctx context.Context) ([]*models.CategoryTree, error)

	Profile(ctx context.Context) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error)

	ListOrders(ctx context.Context, page, limit int) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uint64) (*models.Order, error)

	Close()
}

type service struct {
	session *auth.MemorySession
	gate    *auth.Gate

	cart     *cart.Store
	category category.Repository
	product  product.Repository
	profile  profile.Repository
	order    order.Repository

	currency     string
	eventManager *EventManager
	detachEvents func()
	dispatcher   *Dispatcher

	logger *zap.Logger
}

// NewService builds the client. cacheStore may be a cache.Local or a
// cache.Redis; a nil publisher disables cart activity events.
func NewService(
	cfg *config.Config,
	conn transport.Requester, cacheStore cache.Store, session *auth.MemorySession,
	publisher Publisher,
	logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := auth.NewGate(session, "", logger)

	s := &service{
		session:  session,
		gate:     gate,
		category: category.NewRepository(conn, cacheStore, logger),
		product:  product.NewRepository(conn, cacheStore, logger),
		profile:  profile.NewRepository(conn, cacheStore, logger),
		order:    order.NewRepository(conn, cacheStore, logger),
		currency: cfg.Currency.String(),
		logger:   logger,
	}
	s.cart = cart.NewStore(cart.NewRepository(conn, logger), gate, logger,
		cart.WithTaxRate(cfg.TaxRate),
		cart.WithShipping(cfg.Shipping),
		cart.WithCurrency(cfg.Currency))
	s.dispatcher = NewDispatcher(cfg.Workers, logger)

	// 訂閱購物車事件
	if publisher != nil {
		s.eventManager = NewEventManager(publisher, s.userID, logger)
		s.detachEvents = s.eventManager.Attach(s.cart)
	}

	return s
}

func (s *service) Cart() cart.Service {
	return s.cart
}

func (s *service) userID() string {
	if u := s.session.CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}

func (s *service) requireLogin(action string) error {
	if _, ok := s.gate.Check(action); !ok {
		return ErrLoginRequired
	}
	return nil
}

// Login stores token, loads the profile behind it and reloads the cart.
// A token the backend rejects leaves the session logged out.
func (s *service) Login(ctx context.Context, token string) (*models.UserProfile, error) {
	s.session.Login(token, nil)

	me, err := s.profile.Me(ctx)
	if err != nil {
		s.session.Logout()
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	s.session.Login(token, me)
	s.logger.Info("User logged in", zap.String("user_id", me.ID))

	if err := s.cart.Reload(ctx); err != nil {
		s.logger.Warn("Failed to load cart after login", zap.Error(err))
	}
	return me, nil
}

func (s *service) Logout(ctx context.Context) {
	if id := s.userID(); id != "" {
		s.profile.Forget(ctx, id)
		s.logger.Info("User logged out", zap.String("user_id", id))
	}
	s.session.Logout()
	s.cart.Reset()
}

func (s *service) AddItem(ctx context.Context, product models.Product, quantity int) *Future {
	return s.dispatcher.Submit(ctx, "add_item", func(ctx context.Context) (models.Result, error) {
		return s.cart.AddItem(ctx, product, quantity)
	})
}

func (s *service) SetQuantity(ctx context.Context, lineID string, quantity int) *Future {
	return s.dispatcher.Submit(ctx, "set_quantity", func(ctx context.Context) (models.Result, error) {
		return s.cart.SetQuantity(ctx, lineID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, lineID string) *Future {
	return s.dispatcher.Submit(ctx, "remove_item", func(ctx context.Context) (models.Result, error) {
		return s.cart.RemoveItem(ctx, lineID)
	})
}

// Checkout places an order for the selected lines, then reloads the cart so
// the ordered lines disappear.
func (s *service) Checkout(ctx context.Context) (*models.Order, models.Result, error) {
	if result, ok := s.gate.Check("checkout"); !ok {
		return nil, result, nil
	}

	selected := s.cart.SelectedLines()
	if len(selected) == 0 {
		return nil, models.Result{}, ErrEmptySelection
	}
	lineIDs := make([]string, 0, len(selected))
	for _, l := range selected {
		lineIDs = append(lineIDs, l.ID)
	}

	placed, err := s.order.Place(ctx, s.userID(), order.PlaceRequest{
		LineIDs:  lineIDs,
		Currency: s.currency,
	})
	if err != nil {
		return nil, models.Result{}, fmt.Errorf("failed to place order: %w", err)
	}
	s.logger.Info("Order placed",
		zap.Uint64("order_id", placed.ID),
		zap.Int("lines", len(lineIDs)),
		zap.String("total", placed.Total.String()))

	if err := s.cart.Reload(ctx); err != nil {
		s.logger.Warn("Failed to reload cart after checkout", zap.Error(err))
	}
	return placed, models.Result{}, nil
}

func (s *service) ListProducts(ctx context.Context, params product.ListParams) (*models.ProductPage, error) {
	return s.product.List(ctx, params)
}

func (s *service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.product.GetByID(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.requireLogin("create_product"); err != nil {
		return err
	}
	return s.product.Create(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.requireLogin("update_product"); err != nil {
		return err
	}
	return s.product.Update(ctx, product)
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.requireLogin("delete_product"); err != nil {
		return err
	}
	return s.product.Delete(ctx, id)
}

func (s *service) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := s.requireLogin("create_category"); err != nil {
		return err
	}
	return s.category.Create(ctx, category)
}

func (s *service) GetCategoryByID(ctx context.Context, id uint64) (*models.Category, error) {
	return s.category.GetByID(ctx, id)
}

func (s *service) UpdateCategory(ctx context.Context, category *models.Category) error {
	if err := s.requireLogin("update_category"); err != nil {
		return err
	}
	return s.category.Update(ctx, category)
}

func (s *service) DeleteCategory(ctx context.Context, id uint64) error {
	if err := s.requireLogin("delete_category"); err != nil {
		return err
	}
	return s.category.Delete(ctx, id)
}

func (s *service) ListCategory(ctx context.Context, limit, offset uint64) ([]*models.Category, error) {
	return s.category.List(ctx, limit, offset)
}

func (s *service) ListSubcategories(ctx context.Context, parentID uint64) ([]*models.Category, error) {
	return s.category.ListSubcategories(ctx, parentID)
}

func (s *service) GetCategoryTree(ctx context.Context) ([]*models.CategoryTree, error) {
	return s.category.Tree(ctx)
}

func (s *service) Profile(ctx context.Context) (*models.UserProfile, error) {
	if err := s.requireLogin("profile"); err != nil {
		return nil, err
	}
	return s.profile.Get(ctx, s.userID())
}

func (s *service) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	if err := s.requireLogin("update_profile"); err != nil {
		return nil, err
	}
	updated, err := s.profile.Update(ctx, s.userID(), update)
	if err != nil {
		return nil, err
	}
	s.session.Login(s.session.Token(), updated)
	return updated, nil
}

func (s *service) ListOrders(ctx context.Context, page, limit int) ([]*models.Order, error) {
	if err := s.requireLogin("list_orders"); err != nil {
		return nil, err
	}
	return s.order.List(ctx, s.userID(), page, limit)
}

func (s *service) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	if err := s.requireLogin("get_order"); err != nil {
		return nil, err
	}
	return s.order.Get(ctx, s.userID(), orderID)
}

func (s *service) CancelOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	if err := s.requireLogin("cancel_order"); err != nil {
		return nil, err
	}

	current, err := s.order.Get(ctx, s.userID(), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !current.CanCancel() {
		return nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotCancellable, orderID, current.Status)
	}

	cancelled, err := s.order.Cancel(ctx, s.userID(), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	s.logger.Info("Order cancelled", zap.Uint64("order_id", orderID))
	return cancelled, nil
}

// Close detaches the event bus and drains queued cart operations.
func (s *service) Close() {
	if s.detachEvents != nil {
		s.detachEvents()
	}
	s.dispatcher.Shutdown()
}
