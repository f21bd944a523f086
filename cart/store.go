// Package cart holds the shared cart state for every view: server lines,
// per-line UI flags, the checkout selection, and the derived totals.
//
// Mutations are optimistic-then-confirm, except AddItem which confirms and
// then reloads because the server computes fields the client cannot. A
// failed mutation restores the full {lines, selection} snapshot taken
// before it.
package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
)

// DefaultTaxRate applies when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.08")

const (
	msgLoadFailed   = "We couldn't load your cart. Please try again."
	msgAddFailed    = "Failed to add item to cart."
	msgUpdateFailed = "Failed to update quantity."
	msgRemoveFailed = "Failed to remove item from cart."
	msgAdded        = "Added to cart."

	taxPlaces = 2
)

var _ Service = (*Store)(nil)

type Store struct {
	repo     Repository
	gate     *auth.Gate
	notifier Notifier
	logger   *zap.Logger

	taxRate  decimal.Decimal
	shipping decimal.Decimal
	currency currency.Unit

	mu           sync.Mutex
	lines        []models.CartLine
	selected     map[string]struct{}
	imageLoading map[string]bool
	pending      map[string]int
	open         bool
	loading      bool
	errMsg       string

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      uint64
}

type Option func(*Store)

func WithTaxRate(rate decimal.Decimal) Option {
	return func(s *Store) {
		s.taxRate = rate
	}
}

// WithShipping sets the flat shipping charge added to every total.
func WithShipping(amount decimal.Decimal) Option {
	return func(s *Store) {
		s.shipping = amount
	}
}

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// NewStore builds the single cart store shared by all views.
func NewStore(repo Repository, gate *auth.Gate, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		repo:         repo,
		gate:         gate,
		logger:       logger,
		taxRate:      DefaultTaxRate,
		shipping:     decimal.Zero,
		currency:     currency.USD,
		selected:     make(map[string]struct{}),
		imageLoading: make(map[string]bool),
		pending:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(logger)
	}
	if s.gate == nil {
		s.gate = auth.NewGate(nil, "", logger)
	}
	return s
}

// Reload replaces the local cart with the server's. Auth and not-found
// failures land on a silent empty cart; any other failure lands on an
// empty cart with an error message and is returned for logging.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.emit(enum.CartEventPending, "")

	payload, err := s.repo.Fetch(ctx)
	var lines []models.CartLine
	if err == nil {
		lines, err = normalizeCart(payload, s.logger)
	}
	kind := Classify(err)

	s.mu.Lock()
	s.loading = false
	switch kind {
	case enum.ErrorKindNone:
		s.replaceLocked(lines)
		s.errMsg = ""
	case enum.ErrorKindNotFoundOrUnauthenticated:
		s.replaceLocked(nil)
		s.errMsg = ""
	default:
		s.replaceLocked(nil)
		s.errMsg = msgLoadFailed
	}
	count := len(s.lines)
	s.mu.Unlock()

	switch kind {
	case enum.ErrorKindNone:
		s.logger.Debug("Cart reloaded", zap.Int("lines", count))
	case enum.ErrorKindNotFoundOrUnauthenticated:
		s.logger.Debug("No cart for session, showing empty cart", zap.Error(err))
	default:
		s.logger.Error("Failed to load cart", zap.Error(err))
		s.notifier.Notify(enum.NoticeWarning, msgLoadFailed)
	}
	s.emit(enum.CartEventReloaded, "")

	if kind == enum.ErrorKindTransportFailure {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	return nil
}

// Reset empties the local cart without a network call, e.g. after logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.replaceLocked(nil)
	s.errMsg = ""
	s.open = false
	s.mu.Unlock()
	s.emit(enum.CartEventReloaded, "")
}

func (s *Store) replaceLocked(lines []models.CartLine) {
	s.lines = lines
	s.selected = make(map[string]struct{}, len(lines))
	s.imageLoading = make(map[string]bool, len(lines))
	s.pending = make(map[string]int)
	for _, l := range lines {
		s.selected[l.ID] = struct{}{}
		s.imageLoading[l.ID] = true
	}
}

// AddItem adds quantity units of product on the server, then reloads and
// opens the cart. Without a session it returns a login-required result and
// touches nothing.
func (s *Store) AddItem(ctx context.Context, product models.Product, quantity int) (models.Result, error) {
	if result, ok := s.gate.Check("add_item"); !ok {
		return result, nil
	}
	if quantity < 1 {
		quantity = 1
	}

	if err := s.repo.AddItem(ctx, product.ID, quantity); err != nil {
		s.setErr(msgAddFailed)
		s.notifier.Notify(enum.NoticeError, msgAddFailed)
		return models.Result{}, fmt.Errorf("failed to add product %s to cart: %w", product.ID, err)
	}

	if err := s.Reload(ctx); err != nil {
		s.logger.Warn("Cart reload after add failed", zap.Error(err))
	}
	s.OpenCart()
	s.emit(enum.CartEventItemAdded, "")
	s.notifier.Notify(enum.NoticeSuccess, msgAdded)
	s.logger.Info("Added product to cart",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int("quantity", quantity))

	return models.Result{}, nil
}

// SetQuantity changes a line's quantity optimistically. A quantity below 1
// removes the line. The line is marked pending until the server answers;
// on failure the pre-call snapshot is restored.
func (s *Store) SetQuantity(ctx context.Context, lineID string, quantity int) (models.Result, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, lineID)
	}
	if result, ok := s.gate.Check("set_quantity"); !ok {
		return result, nil
	}

	s.mu.Lock()
	idx := s.indexLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return models.Result{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	if limit := s.lines[idx].StockLimit; limit > 0 && quantity > limit {
		s.logger.Debug("Clamping quantity to stock limit",
			zap.String("line_id", lineID),
			zap.Int("requested", quantity),
			zap.Int("limit", limit))
		quantity = limit
	}
	s.mu.Unlock()

	err := s.mutate(ctx, mutation{
		event:  enum.CartEventQuantityChanged,
		lineID: lineID,
		apply: func() {
			if i := s.indexLocked(lineID); i >= 0 {
				s.lines[i].Quantity = quantity
			}
			s.pending[lineID]++
		},
		settle: func(bool) {
			s.releasePendingLocked(lineID)
		},
		remote: func(ctx context.Context) error {
			return s.repo.UpdateItem(ctx, lineID, quantity)
		},
		failure: msgUpdateFailed,
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to update quantity of line %s: %w", lineID, err)
	}
	return models.Result{}, nil
}

// RemoveItem drops the line and its selection immediately, then confirms
// with the server. On failure lines and selection are restored exactly.
func (s *Store) RemoveItem(ctx context.Context, lineID string) (models.Result, error) {
	if result, ok := s.gate.Check("remove_item"); !ok {
		return result, nil
	}

	s.mu.Lock()
	found := s.indexLocked(lineID) >= 0
	s.mu.Unlock()
	if !found {
		return models.Result{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}

	err := s.mutate(ctx, mutation{
		event:  enum.CartEventItemRemoved,
		lineID: lineID,
		apply: func() {
			if i := s.indexLocked(lineID); i >= 0 {
				s.lines = slices.Delete(s.lines, i, i+1)
			}
			delete(s.selected, lineID)
		},
		settle: func(failed bool) {
			if !failed && s.indexLocked(lineID) < 0 {
				delete(s.imageLoading, lineID)
				delete(s.pending, lineID)
			}
		},
		remote: func(ctx context.Context) error {
			return s.repo.RemoveItem(ctx, lineID)
		},
		failure: msgRemoveFailed,
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to remove line %s: %w", lineID, err)
	}
	return models.Result{}, nil
}

// ToggleSelection flips one line in or out of the checkout selection and
// reports whether it is now selected. Unknown ids are ignored.
func (s *Store) ToggleSelection(lineID string) bool {
	s.mu.Lock()
	if s.indexLocked(lineID) < 0 {
		s.mu.Unlock()
		return false
	}
	_, selected := s.selected[lineID]
	if selected {
		delete(s.selected, lineID)
	} else {
		s.selected[lineID] = struct{}{}
	}
	s.mu.Unlock()

	s.emit(enum.CartEventSelectionChanged, lineID)
	return !selected
}

// ToggleSelectAll selects every line unless all are already selected, in
// which case it clears the selection.
func (s *Store) ToggleSelectAll() {
	s.mu.Lock()
	if len(s.lines) > 0 && len(s.selected) == len(s.lines) {
		s.selected = make(map[string]struct{})
	} else {
		s.selected = make(map[string]struct{}, len(s.lines))
		for _, l := range s.lines {
			s.selected[l.ID] = struct{}{}
		}
	}
	s.mu.Unlock()

	s.emit(enum.CartEventSelectionChanged, "")
}

func (s *Store) MarkImageLoaded(lineID string) {
	s.settleImage(lineID)
}

// MarkImageFailed is treated like a successful load; no broken-image state
// is tracked here.
func (s *Store) MarkImageFailed(lineID string) {
	s.settleImage(lineID)
}

func (s *Store) settleImage(lineID string) {
	s.mu.Lock()
	_, tracked := s.imageLoading[lineID]
	delete(s.imageLoading, lineID)
	s.mu.Unlock()

	if tracked {
		s.emit(enum.CartEventImageSettled, lineID)
	}
}

func (s *Store) OpenCart() {
	s.setOpen(true)
}

func (s *Store) CloseCart() {
	s.setOpen(false)
}

func (s *Store) setOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
	s.emit(enum.CartEventVisibility, "")
}

// ClearError dismisses the current error message.
func (s *Store) ClearError() {
	s.setErr("")
}

func (s *Store) setErr(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Store) indexLocked(lineID string) int {
	return slices.IndexFunc(s.lines, func(l models.CartLine) bool {
		return l.ID == lineID
	})
}

func (s *Store) releasePendingLocked(lineID string) {
	if s.pending[lineID] <= 1 {
		delete(s.pending, lineID)
		return
	}
	s.pending[lineID]--
}
