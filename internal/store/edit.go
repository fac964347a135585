package store

import (
	"fmt"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/position"
)

// Entry points for the create/update/delete collaborators. They follow the
// same single-writer discipline as the reorder mutations.

// AddList appends a list to the board. Its position becomes the current list count.
func (s *Store) AddList(list domain.List) error {
	return s.mutate(func() error {
		if !s.loaded {
			return ErrNoBoard
		}
		list = list.Clone()
		list.Position = len(s.state.Lists)
		if list.BoardID == "" {
			list.BoardID = s.state.Board.ID
		}
		if list.Cards == nil {
			list.Cards = []domain.Card{}
		}
		for i := range list.Cards {
			list.Cards[i].ListID = list.ID
		}
		list.Cards = position.Reindex(list.Cards)
		s.state.Lists = append(s.state.Lists, list)
		return nil
	})
}

// UpdateList renames a list.
func (s *Store) UpdateList(listID, title string) error {
	return s.mutate(func() error {
		idx := s.state.ListIndex(listID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}
		s.state.Lists[idx].Title = title
		return nil
	})
}

// DeleteList removes a list and its cards. Remaining lists are re-densified.
func (s *Store) DeleteList(listID string) error {
	return s.mutate(func() error {
		idx := s.state.ListIndex(listID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}

		if li, _, ok := s.state.FindCard(s.state.SelectedCardID); ok && li == idx {
			s.state.SelectedCardID = ""
		}

		lists := make([]domain.List, 0, len(s.state.Lists)-1)
		lists = append(lists, s.state.Lists[:idx]...)
		lists = append(lists, s.state.Lists[idx+1:]...)
		s.state.Lists = position.Reindex(lists)
		return nil
	})
}

// AddCard appends a card to its list. Its position becomes the list's card count.
func (s *Store) AddCard(card domain.Card) error {
	return s.mutate(func() error {
		idx := s.state.ListIndex(card.ListID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrListNotFound, card.ListID)
		}
		card = card.Clone()
		card.Position = len(s.state.Lists[idx].Cards)
		s.state.Lists[idx].Cards = append(s.state.Lists[idx].Cards, card)
		return nil
	})
}

// UpdateCard applies patch to the card in place. Position and list are unchanged.
func (s *Store) UpdateCard(cardID string, patch domain.CardPatch) error {
	return s.mutate(func() error {
		li, ci, ok := s.state.FindCard(cardID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
		}
		s.state.Lists[li].Cards[ci] = patch.Apply(s.state.Lists[li].Cards[ci])
		return nil
	})
}

// ReplaceCard swaps in a fresh copy of a card fetched from the server,
// keeping the card's current list and position.
func (s *Store) ReplaceCard(card domain.Card) error {
	return s.mutate(func() error {
		li, ci, ok := s.state.FindCard(card.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCardNotFound, card.ID)
		}
		cur := s.state.Lists[li].Cards[ci]
		card = card.Clone()
		card.ListID = cur.ListID
		card.Position = cur.Position
		s.state.Lists[li].Cards[ci] = card
		return nil
	})
}

// DeleteCard removes a card. Trailing cards in its list are re-densified
// and the selection is cleared if it pointed at the card.
func (s *Store) DeleteCard(cardID string) error {
	return s.mutate(func() error {
		li, ci, ok := s.state.FindCard(cardID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
		}

		cards := s.state.Lists[li].Cards
		rest := make([]domain.Card, 0, len(cards)-1)
		rest = append(rest, cards[:ci]...)
		rest = append(rest, cards[ci+1:]...)
		s.state.Lists[li].Cards = position.Reindex(rest)

		if s.state.SelectedCardID == cardID {
			s.state.SelectedCardID = ""
		}
		return nil
	})
}

// SelectCard marks a card as selected. An empty ID clears the selection.
func (s *Store) SelectCard(cardID string) error {
	return s.mutate(func() error {
		if cardID != "" {
			if _, _, ok := s.state.FindCard(cardID); !ok {
				return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
			}
		}
		s.state.SelectedCardID = cardID
		return nil
	})
}

// SelectedCard returns the selected card. ok is false if nothing is selected.
func (s *Store) SelectedCard() (card domain.Card, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	li, ci, found := s.state.FindCard(s.state.SelectedCardID)
	if !found {
		return domain.Card{}, false
	}
	return s.state.Lists[li].Cards[ci].Clone(), true
}
