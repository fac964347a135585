// Package drag turns low-level pointer gestures into semantic drag-start and
// drag-end events. A gesture becomes a drag only after the pointer travels at
// least the activation threshold; shorter gestures are clicks.
package drag

import "github.com/h0rv/kanban/internal/domain"

// Kind is the type of a draggable entity or drop target.
type Kind string

// Kind constants.
const (
	KindList Kind = "list"
	KindCard Kind = "card"
)

// DefaultThreshold is the activation distance used when none is configured.
const DefaultThreshold = 8

// Handle identifies the entity being dragged.
type Handle struct {
	Kind      Kind
	ID        string
	Container string // Owning list ID for cards, board ID for lists
}

// Target identifies what the pointer is over.
type Target struct {
	Kind      Kind
	ID        string
	Container string // Owning list ID when Kind is KindCard
}

// Payload is the typed description of a completed drag.
// TargetIndex is the entity's final index within TargetContainer.
type Payload struct {
	Kind            Kind
	ID              string
	SourceContainer string
	TargetContainer string
	TargetIndex     int
}

// Start is emitted once per gesture when the threshold is crossed.
type Start struct {
	Active Handle
}

// End is emitted at most once per gesture. Over and Payload are nil when the
// gesture ended outside any valid drop target.
type End struct {
	Active  Handle
	Over    *Target
	Payload *Payload
}

// Release is the result of lifting the pointer: either a finished drag or a
// click on the pressed handle. Both are nil if nothing was pressed.
type Release struct {
	End   *End
	Click *Handle
}

// HitTester maps a pointer position to the entity under it.
type HitTester interface {
	HitTest(x, y int) (Target, bool)
}

// Resolver turns an active handle and the target under the pointer into a
// payload. ok is false if the drop is not valid.
type Resolver interface {
	Resolve(active Handle, over Target) (Payload, bool)
}

// BoardResolver resolves drops against the board state returned by State.
type BoardResolver struct {
	State func() domain.BoardState
}

// Resolve implements Resolver.
func (r BoardResolver) Resolve(active Handle, over Target) (Payload, bool) {
	return Resolve(r.State(), active, over)
}

// Resolve computes the payload for dropping active onto over.
//
// Lists: dropping on a list takes that list's current index; dropping on a
// card targets the card's list.
//
// Cards: dropping on a list appends to it. Dropping on a card inserts before
// that card, with the index taken from the target list after the dragged card
// has been removed. Dropping a card on itself resolves to its current slot.
func Resolve(state domain.BoardState, active Handle, over Target) (Payload, bool) {
	switch active.Kind {
	case KindList:
		return resolveList(state, active, over)
	case KindCard:
		return resolveCard(state, active, over)
	}
	return Payload{}, false
}

func resolveList(state domain.BoardState, active Handle, over Target) (Payload, bool) {
	if state.ListIndex(active.ID) < 0 {
		return Payload{}, false
	}

	var targetIdx int
	switch over.Kind {
	case KindList:
		targetIdx = state.ListIndex(over.ID)
	case KindCard:
		li, _, ok := state.FindCard(over.ID)
		if !ok {
			return Payload{}, false
		}
		targetIdx = li
	default:
		return Payload{}, false
	}
	if targetIdx < 0 {
		return Payload{}, false
	}

	return Payload{
		Kind:            KindList,
		ID:              active.ID,
		SourceContainer: state.Board.ID,
		TargetContainer: state.Board.ID,
		TargetIndex:     targetIdx,
	}, true
}

func resolveCard(state domain.BoardState, active Handle, over Target) (Payload, bool) {
	li, ci, ok := state.FindCard(active.ID)
	if !ok {
		return Payload{}, false
	}
	source := state.Lists[li]

	payload := Payload{
		Kind:            KindCard,
		ID:              active.ID,
		SourceContainer: source.ID,
	}

	switch over.Kind {
	case KindList:
		ti := state.ListIndex(over.ID)
		if ti < 0 {
			return Payload{}, false
		}
		payload.TargetContainer = over.ID
		payload.TargetIndex = countWithout(state.Lists[ti].Cards, active.ID)
		return payload, true

	case KindCard:
		if over.ID == active.ID {
			payload.TargetContainer = source.ID
			payload.TargetIndex = ci
			return payload, true
		}
		ti, _, ok := state.FindCard(over.ID)
		if !ok {
			return Payload{}, false
		}
		target := state.Lists[ti]
		payload.TargetContainer = target.ID
		payload.TargetIndex = indexWithout(target.Cards, over.ID, active.ID)
		return payload, true
	}
	return Payload{}, false
}

// countWithout returns the number of cards excluding skip.
func countWithout(cards []domain.Card, skip string) int {
	n := 0
	for _, c := range cards {
		if c.ID != skip {
			n++
		}
	}
	return n
}

// indexWithout returns the index of id among cards with skip removed.
func indexWithout(cards []domain.Card, id, skip string) int {
	idx := 0
	for _, c := range cards {
		if c.ID == skip {
			continue
		}
		if c.ID == id {
			return idx
		}
		idx++
	}
	return idx
}
