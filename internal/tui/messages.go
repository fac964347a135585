// Package tui provides Bubble Tea models for the interactive board editor.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/reorder"
)

// Client is the persistence API used by the editor.
type Client interface {
	reorder.Persister
	CardUpdater

	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID string) (domain.BoardState, error)
	CreateList(ctx context.Context, boardID, title string) (domain.List, error)
	CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
}

// BoardSelectedMsg is emitted when the user selects a board.
type BoardSelectedMsg struct {
	Board domain.Board
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// Messages exchanged between the board, the detail view and the app.
type (
	boardsLoadedMsg struct{ boards []domain.Board }
	boardLoadedMsg  struct{ state domain.BoardState }
	boardReloadMsg  struct {
		state domain.BoardState
		err   error
	}

	// storeChangedMsg is delivered after any store mutation.
	storeChangedMsg struct{}

	persistDoneMsg struct {
		op  *reorder.Operation
		err error
	}

	listCreatedMsg struct {
		list domain.List
		err  error
	}
	cardCreatedMsg struct {
		card domain.Card
		err  error
	}
	cardDeletedMsg struct {
		cardID string
		err    error
	}

	clearToastMsg  struct{ id int }
	openDetailMsg  struct{ cardID string }
	closeDetailMsg struct{}
)

// waitForChange blocks until the store signals a change.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}
