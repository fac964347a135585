// Package domain defines the normalized board types shared by the store, the
// reorder engine, the persistence client and the persistence server.
// JSON tags follow the wire format of the persistence API.
package domain

// Board represents a kanban board. Its lists are carried separately in BoardState.
type Board struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Background  string `json:"background,omitempty"` // Color or image URL
	CreatedAt   string `json:"createdAt,omitempty"`
}

// List is an ordered column of cards on a board.
// Position is dense (0..N-1) among the lists of the owning board.
type List struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	BoardID  string `json:"boardId"`
	Cards    []Card `json:"cards"`
}

// Card is a single board item. Position is dense among the cards of ListID.
// Everything after ListID is payload that the reorder engine carries untouched.
type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	ListID   string `json:"listId"`

	Description string       `json:"description,omitempty"`
	DueDate     string       `json:"dueDate,omitempty"`    // ISO8601, empty if unset
	CoverImage  string       `json:"coverImage,omitempty"` // URL, empty if unset
	Labels      []Label      `json:"labels,omitempty"`
	Members     []User       `json:"members,omitempty"`
	Checklists  []Checklist  `json:"checklists,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
}

// Label is a colored tag defined on a board and attached to cards.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// User is a board member that can be assigned to cards.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Checklist is a titled group of checklist items on a card.
type Checklist struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Items    []ChecklistItem `json:"items,omitempty"`
}

// ChecklistItem is a single checkable entry.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"isCompleted"`
	Position  int    `json:"position"`
}

// Attachment is a file linked to a card.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Comment is a user comment on a card.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	UserID    string `json:"userId,omitempty"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// BoardState is the full client-side view of an open board: the board, its
// lists ordered by position with nested cards, and the selected card.
type BoardState struct {
	Board          Board  `json:"board"`
	Lists          []List `json:"lists"`
	SelectedCardID string `json:"selectedCardId,omitempty"`
}

// ListPosition is one entry of a list reorder request.
type ListPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// CardMove is the body of a card move request: the target list and the
// card's index within it.
type CardMove struct {
	ListID   string `json:"listId"`
	Position int    `json:"position"`
}

// CardPatch holds optional card field updates. Nil fields are left unchanged.
type CardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
}

// Key returns the card ID. Used by the position model.
func (c Card) Key() string { return c.ID }

// WithPosition returns a copy of the card at position p.
func (c Card) WithPosition(p int) Card {
	c.Position = p
	return c
}

// Key returns the list ID. Used by the position model.
func (l List) Key() string { return l.ID }

// WithPosition returns a copy of the list at position p.
func (l List) WithPosition(p int) List {
	l.Position = p
	return l
}

// Apply returns a copy of the card with the patch applied.
func (p CardPatch) Apply(c Card) Card {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.DueDate != nil {
		c.DueDate = *p.DueDate
	}
	if p.CoverImage != nil {
		c.CoverImage = *p.CoverImage
	}
	return c
}

// Clone returns a deep copy of the card, including its payload slices.
func (c Card) Clone() Card {
	c.Labels = cloneSlice(c.Labels)
	c.Members = cloneSlice(c.Members)
	c.Attachments = cloneSlice(c.Attachments)
	c.Comments = cloneSlice(c.Comments)
	if c.Checklists != nil {
		checklists := make([]Checklist, len(c.Checklists))
		for i, cl := range c.Checklists {
			cl.Items = cloneSlice(cl.Items)
			checklists[i] = cl
		}
		c.Checklists = checklists
	}
	return c
}

// Clone returns a deep copy of the list and its cards.
func (l List) Clone() List {
	if l.Cards != nil {
		cards := make([]Card, len(l.Cards))
		for i, c := range l.Cards {
			cards[i] = c.Clone()
		}
		l.Cards = cards
	}
	return l
}

// Clone returns a deep copy of the board state. Snapshots are clones so that
// later mutations never reach a captured rollback point.
func (s BoardState) Clone() BoardState {
	if s.Lists != nil {
		lists := make([]List, len(s.Lists))
		for i, l := range s.Lists {
			lists[i] = l.Clone()
		}
		s.Lists = lists
	}
	return s
}

// ListIndex returns the index of the list with the given ID, or -1.
func (s BoardState) ListIndex(listID string) int {
	for i, l := range s.Lists {
		if l.ID == listID {
			return i
		}
	}
	return -1
}

// FindCard locates a card by ID and returns its list index and card index.
// ok is false if the card is not on the board.
func (s BoardState) FindCard(cardID string) (listIdx, cardIdx int, ok bool) {
	for i, l := range s.Lists {
		for j, c := range l.Cards {
			if c.ID == cardID {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// ListPositions returns the {id, position} set of the board's lists in order.
func (s BoardState) ListPositions() []ListPosition {
	out := make([]ListPosition, len(s.Lists))
	for i, l := range s.Lists {
		out[i] = ListPosition{ID: l.ID, Position: l.Position}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
