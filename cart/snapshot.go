package cart

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
)

// snapshot is the full {lines, selection} state captured before an
// optimistic mutation. Rollback restores it verbatim.
type snapshot struct {
	lines    []models.CartLine
	selected map[string]struct{}
}

func (s *Store) snapshotLocked() snapshot {
	selected := make(map[string]struct{}, len(s.selected))
	for id := range s.selected {
		selected[id] = struct{}{}
	}
	return snapshot{
		lines:    slices.Clone(s.lines),
		selected: selected,
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.lines = snap.lines
	s.selected = snap.selected
}

// mutation describes one optimistic-then-confirm operation.
type mutation struct {
	event  enum.CartEventType
	lineID string
	// apply changes local state; called with the lock held.
	apply func()
	// settle runs after the remote call on both outcomes, with the lock held.
	settle func(failed bool)
	remote func(ctx context.Context) error
	// failure is the notice shown after a rollback.
	failure string
}

// mutate applies m optimistically, notifies listeners, performs the remote
// call, and restores the pre-mutation snapshot if the call fails or panics.
func (s *Store) mutate(ctx context.Context, m mutation) (err error) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	m.apply()
	s.mu.Unlock()
	s.emit(m.event, m.lineID)

	defer func() {
		if p := recover(); p != nil {
			s.rollback(snap, m, nil)
			s.logger.Error("panic in cart mutation", zap.Any("panic", p), zap.String("line_id", m.lineID))
			panic(p)
		}
		if err != nil {
			s.rollback(snap, m, err)
			return
		}
		s.commit(m)
	}()

	return m.remote(ctx)
}

func (s *Store) commit(m mutation) {
	s.mu.Lock()
	if m.settle != nil {
		m.settle(false)
	}
	s.mu.Unlock()
	s.emit(enum.CartEventPending, m.lineID)
}

func (s *Store) rollback(snap snapshot, m mutation, cause error) {
	s.mu.Lock()
	s.restoreLocked(snap)
	if m.settle != nil {
		m.settle(true)
	}
	s.errMsg = m.failure
	s.mu.Unlock()

	if cause != nil {
		s.logger.Error("Cart mutation failed, restored snapshot",
			zap.String("event", string(m.event)),
			zap.String("line_id", m.lineID),
			zap.Error(cause))
	}
	s.notifier.Notify(enum.NoticeError, m.failure)
	s.emit(enum.CartEventRolledBack, m.lineID)
}
