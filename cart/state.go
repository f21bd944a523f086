package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
)

// State is a copy of everything a view renders. Mutating it has no effect
// on the store.
type State struct {
	Lines        []models.CartLine
	Selected     []string
	Totals       models.Totals
	Pending      map[string]bool
	ImageLoading map[string]bool
	Open         bool
	Loading      bool
	Err          string
}

// Change is delivered to listeners after every state transition.
type Change struct {
	Event  enum.CartEventType
	LineID string
	State  State
}

type Listener func(Change)

type subscription struct {
	id       uint64
	listener Listener
}

// Subscribe registers l for change notifications. The returned func
// unsubscribes; in-flight operations still complete and update the store.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: l})
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// emit notifies listeners outside of s.mu.
func (s *Store) emit(event enum.CartEventType, lineID string) {
	s.listenersMu.Lock()
	subs := slices.Clone(s.listeners)
	s.listenersMu.Unlock()
	if len(subs) == 0 {
		return
	}

	change := Change{Event: event, LineID: lineID, State: s.State()}
	for _, sub := range subs {
		sub.listener(change)
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[string]bool, len(s.pending))
	for id := range s.pending {
		pending[id] = true
	}
	loading := make(map[string]bool, len(s.imageLoading))
	for id, v := range s.imageLoading {
		if v {
			loading[id] = true
		}
	}

	return State{
		Lines:        slices.Clone(s.lines),
		Selected:     s.selectionLocked(),
		Totals:       s.totalsLocked(),
		Pending:      pending,
		ImageLoading: loading,
		Open:         s.open,
		Loading:      s.loading,
		Err:          s.errMsg,
	}
}

func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// SelectedLines returns the lines included in checkout, in cart order.
func (s *Store) SelectedLines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartLine, 0, len(s.selected))
	for _, l := range s.lines {
		if _, ok := s.selected[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Selection returns the selected line ids in cart order.
func (s *Store) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Store) selectionLocked() []string {
	ids := make([]string, 0, len(s.selected))
	for _, l := range s.lines {
		if _, ok := s.selected[l.ID]; ok {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func (s *Store) IsSelected(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[lineID]
	return ok
}

// Totals is recomputed from the selected lines on every call.
func (s *Store) Totals() models.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

func (s *Store) totalsLocked() models.Totals {
	subtotal := decimal.Zero
	for _, l := range s.lines {
		if _, ok := s.selected[l.ID]; ok {
			subtotal = subtotal.Add(l.Subtotal())
		}
	}
	tax := subtotal.Mul(s.taxRate).Round(taxPlaces)

	return models.Totals{
		Currency: s.currency,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: s.shipping,
		Total:    subtotal.Add(tax).Add(s.shipping),
	}
}

func (s *Store) TotalLineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err is the last user-facing error message, empty when there is none.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store) IsPending(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[lineID] > 0
}

func (s *Store) IsImageLoading(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageLoading[lineID]
}
