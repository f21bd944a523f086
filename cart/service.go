package cart

import (
	"context"

	"gofalre.io/storefront/models"
)

// Service is what views depend on. Store is the only implementation; views
// take it through their constructors rather than reaching for a global.
type Service interface {
	Reload(ctx context.Context) error
	Reset()
	AddItem(ctx context.Context, product models.Product, quantity int) (models.Result, error)
	SetQuantity(ctx context.Context, lineID string, quantity int) (models.Result, error)
	RemoveItem(ctx context.Context, lineID string) (models.Result, error)

	ToggleSelection(lineID string) bool
	ToggleSelectAll()
	MarkImageLoaded(lineID string)
	MarkImageFailed(lineID string)
	OpenCart()
	CloseCart()
	ClearError()

	State() State
	Lines() []models.CartLine
	SelectedLines() []models.CartLine
	Selection() []string
	IsSelected(lineID string) bool
	Totals() models.Totals
	TotalLineCount() int
	SelectedCount() int
	IsOpen() bool
	IsLoading() bool
	Err() string
	IsPending(lineID string) bool
	IsImageLoading(lineID string) bool

	Subscribe(l Listener) (unsubscribe func())
}
