// Package store provides the in-memory source of truth for the open board.
// It owns the canonical BoardState, keeps list and card positions dense, and
// notifies subscribers after every mutation. It performs no I/O.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/position"
)

var (
	// ErrNoBoard indicates no board has been loaded into the store.
	ErrNoBoard = errors.New("no board loaded")
	// ErrListNotFound indicates the requested list does not exist.
	ErrListNotFound = errors.New("list not found")
	// ErrCardNotFound indicates the requested card does not exist.
	ErrCardNotFound = errors.New("card not found")
	// ErrUnknownList indicates a list order referenced a list not on the board,
	// or did not cover every list.
	ErrUnknownList = errors.New("list order does not match board lists")
	// ErrClosed indicates the store has been torn down.
	ErrClosed = errors.New("store closed")
)

// Listener receives a snapshot of the state after each mutation.
type Listener func(domain.BoardState)

// Scope selects the parts of a snapshot restored by RestoreScope.
type Scope struct {
	ListOrder bool     // Restore list order and list positions
	ListIDs   []string // Restore the card collections of these lists
}

// Store manages the state of the currently open board.
// All mutations go through its methods; readers receive deep copies.
type Store struct {
	mu     sync.RWMutex
	state  domain.BoardState
	loaded bool
	closed bool

	// Subscribers keyed by registration order
	listeners map[int]Listener
	nextID    int
}

// New creates an empty Store. Call Load to install a board.
func New() *Store {
	return &Store{
		listeners: make(map[int]Listener),
	}
}

// Load installs a freshly fetched board. Lists and cards are sorted by their
// positions and reindexed, and each card's ListID is set to its owning list.
func (s *Store) Load(state domain.BoardState) {
	s.mutate(func() error {
		s.state = normalize(state.Clone())
		s.loaded = true
		return nil
	})
}

// Loaded reports whether a board has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns a deep copy of the current state, suitable as a rollback point.
func (s *Store) Snapshot() domain.BoardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Board returns the current board metadata.
func (s *Store) Board() domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Board
}

// List returns a copy of the list with the given ID, or ErrListNotFound.
func (s *Store) List(listID string) (domain.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.state.ListIndex(listID)
	if idx < 0 {
		return domain.List{}, fmt.Errorf("%w: %s", ErrListNotFound, listID)
	}
	return s.state.Lists[idx].Clone(), nil
}

// Card returns a copy of the card with the given ID, or ErrCardNotFound.
func (s *Store) Card(cardID string) (domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	li, ci, ok := s.state.FindCard(cardID)
	if !ok {
		return domain.Card{}, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	return s.state.Lists[li].Cards[ci].Clone(), nil
}

// ApplyListOrder reorders the lists by the given {id, position} set,
// preserving each list's cards. The set must name every list on the board
// exactly once; otherwise the store is left unchanged and ErrUnknownList is
// returned. Positions are reindexed after sorting, so the result is dense.
func (s *Store) ApplyListOrder(order []domain.ListPosition) error {
	return s.mutate(func() error {
		if !s.loaded {
			return ErrNoBoard
		}
		if len(order) != len(s.state.Lists) {
			return fmt.Errorf("%w: got %d entries for %d lists", ErrUnknownList, len(order), len(s.state.Lists))
		}

		byID := make(map[string]domain.List, len(s.state.Lists))
		for _, l := range s.state.Lists {
			byID[l.ID] = l
		}

		lists := make([]domain.List, 0, len(order))
		for _, entry := range order {
			l, ok := byID[entry.ID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownList, entry.ID)
			}
			delete(byID, entry.ID)
			lists = append(lists, l.WithPosition(entry.Position))
		}

		sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })
		s.state.Lists = position.Reindex(lists)
		return nil
	})
}

// ApplyCardMove moves a card from one list to another at index (clamped),
// preserving its payload. Both collections are reindexed and the card's
// ListID updated. When fromListID equals toListID it is a single reorder.
// Returns ErrListNotFound or ErrCardNotFound without mutating anything.
func (s *Store) ApplyCardMove(cardID, fromListID, toListID string, index int) error {
	return s.mutate(func() error {
		if !s.loaded {
			return ErrNoBoard
		}

		from := s.state.ListIndex(fromListID)
		if from < 0 {
			return fmt.Errorf("%w: %s", ErrListNotFound, fromListID)
		}
		to := s.state.ListIndex(toListID)
		if to < 0 {
			return fmt.Errorf("%w: %s", ErrListNotFound, toListID)
		}

		source := s.state.Lists[from].Cards
		cardIdx := position.IndexOf(source, cardID)
		if cardIdx < 0 {
			return fmt.Errorf("%w: %s in list %s", ErrCardNotFound, cardID, fromListID)
		}

		if from == to {
			s.state.Lists[from].Cards = position.MoveWithin(source, cardIdx, index)
			return nil
		}

		newSource, newTarget, _ := position.Relocate(source, s.state.Lists[to].Cards, cardID, index)
		for i := range newTarget {
			newTarget[i].ListID = toListID
		}
		s.state.Lists[from].Cards = newSource
		s.state.Lists[to].Cards = newTarget
		return nil
	})
}

// RestoreSnapshot replaces the entire state with a previously captured
// snapshot. Nothing of the current state is merged.
func (s *Store) RestoreSnapshot(snapshot domain.BoardState) {
	s.mutate(func() error {
		s.state = snapshot.Clone()
		s.loaded = true
		return nil
	})
}

// RestoreScope restores only the parts of the snapshot selected by scope,
// leaving the rest of the current state untouched. Used to roll back one
// operation while unrelated operations are still pending.
// Returns ErrListNotFound if a scoped list no longer exists on either side.
func (s *Store) RestoreScope(snapshot domain.BoardState, scope Scope) error {
	return s.mutate(func() error {
		if !s.loaded {
			return ErrNoBoard
		}

		for _, id := range scope.ListIDs {
			cur := s.state.ListIndex(id)
			old := snapshot.ListIndex(id)
			if cur < 0 || old < 0 {
				return fmt.Errorf("%w: %s", ErrListNotFound, id)
			}
		}

		for _, id := range scope.ListIDs {
			cur := s.state.ListIndex(id)
			s.state.Lists[cur].Cards = snapshot.Lists[snapshot.ListIndex(id)].Clone().Cards
		}

		if scope.ListOrder {
			order := snapshot.ListPositions()
			if len(order) != len(s.state.Lists) {
				return fmt.Errorf("%w: list set changed", ErrUnknownList)
			}
			byID := make(map[string]domain.List, len(s.state.Lists))
			for _, l := range s.state.Lists {
				byID[l.ID] = l
			}
			lists := make([]domain.List, 0, len(order))
			for _, entry := range order {
				l, ok := byID[entry.ID]
				if !ok {
					return fmt.Errorf("%w: %s", ErrUnknownList, entry.ID)
				}
				lists = append(lists, l)
			}
			s.state.Lists = position.Reindex(lists)
		}
		return nil
	})
}

// Subscribe registers fn to be called with a snapshot after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close tears the store down: subscribers are dropped and further mutations
// return ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.listeners = make(map[int]Listener)
	s.state = domain.BoardState{}
	s.loaded = false
}

// mutate runs fn under the write lock and notifies subscribers if fn
// succeeded. A failing fn must not have modified the state.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	before := s.state.Clone()
	if err := fn(); err != nil {
		s.state = before
		s.mu.Unlock()
		return err
	}

	snapshot := s.state.Clone()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

// normalize sorts lists and cards by position and makes positions dense.
func normalize(state domain.BoardState) domain.BoardState {
	sort.SliceStable(state.Lists, func(i, j int) bool { return state.Lists[i].Position < state.Lists[j].Position })
	state.Lists = position.Reindex(state.Lists)

	for i := range state.Lists {
		l := &state.Lists[i]
		if l.Cards == nil {
			l.Cards = []domain.Card{}
		}
		sort.SliceStable(l.Cards, func(a, b int) bool { return l.Cards[a].Position < l.Cards[b].Position })
		l.Cards = position.Reindex(l.Cards)
		for j := range l.Cards {
			l.Cards[j].ListID = l.ID
		}
		if l.BoardID == "" {
			l.BoardID = state.Board.ID
		}
	}
	return state
}
