package sqlite

import (
	"context"
	"fmt"

	"github.com/h0rv/kanban/internal/domain"
)

// Seed creates a demo board when the database has no boards. It returns the
// new board, or ok=false if boards already exist.
func (d *DB) Seed(ctx context.Context) (board domain.Board, ok bool, err error) {
	boards, err := d.ListBoards(ctx)
	if err != nil {
		return domain.Board{}, false, err
	}
	if len(boards) > 0 {
		return domain.Board{}, false, nil
	}

	board, err = d.CreateBoard(ctx, domain.CreateBoardRequest{
		Title:       "Product Launch",
		Description: "Demo board",
		Background:  "#0079bf",
	})
	if err != nil {
		return domain.Board{}, false, err
	}

	columns := []struct {
		title string
		cards []domain.Card
	}{
		{"To Do", []domain.Card{
			{Title: "Write launch announcement", Description: "Blog post and changelog entry.",
				Labels: []domain.Label{{ID: "lbl-docs", Name: "docs", Color: "blue"}}},
			{Title: "Prepare demo video", DueDate: "2026-11-20T00:00:00Z"},
		}},
		{"In Progress", []domain.Card{
			{Title: "Fix drag and drop ordering", Description: "Cards dropped on a card must land before it.",
				Labels: []domain.Label{{ID: "lbl-bug", Name: "bug", Color: "red"}},
				Checklists: []domain.Checklist{{ID: "chk-1", Title: "Verify", Items: []domain.ChecklistItem{
					{ID: "itm-1", Text: "Same list", Completed: true},
					{ID: "itm-2", Text: "Across lists", Position: 1},
				}}}},
		}},
		{"Done", nil},
	}

	for _, col := range columns {
		list, err := d.CreateList(ctx, domain.CreateListRequest{BoardID: board.ID, Title: col.title})
		if err != nil {
			return domain.Board{}, false, fmt.Errorf("seed list %q: %w", col.title, err)
		}
		for i, c := range col.cards {
			created, err := d.CreateCard(ctx, domain.CreateCardRequest{ListID: list.ID, Title: c.Title, Description: c.Description})
			if err != nil {
				return domain.Board{}, false, fmt.Errorf("seed card %q: %w", c.Title, err)
			}
			c.ID, c.ListID, c.Position = created.ID, list.ID, i
			if err := d.SaveCard(ctx, c); err != nil {
				return domain.Board{}, false, err
			}
		}
	}
	return board, true, nil
}
