package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/h0rv/kanban/internal/domain"
)

// ListBoards fetches all boards.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &boards); err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return boards, nil
}

// GetBoard fetches a board with its lists and nested cards, ordered by position.
func (c *Client) GetBoard(ctx context.Context, boardID string) (domain.BoardState, error) {
	var state domain.BoardState
	if err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID), nil, &state); err != nil {
		return domain.BoardState{}, fmt.Errorf("failed to get board %s: %w", boardID, err)
	}
	return state, nil
}

// CreateBoard creates an empty board.
func (c *Client) CreateBoard(ctx context.Context, req domain.CreateBoardRequest) (domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodPost, "/boards", req, &board); err != nil {
		return domain.Board{}, fmt.Errorf("failed to create board: %w", err)
	}
	return board, nil
}

// UpdateBoard changes a board's title, description or background.
func (c *Client) UpdateBoard(ctx context.Context, boardID string, req domain.UpdateBoardRequest) (domain.Board, error) {
	var board domain.Board
	if err := c.do(ctx, http.MethodPut, "/boards/"+url.PathEscape(boardID), req, &board); err != nil {
		return domain.Board{}, fmt.Errorf("failed to update board %s: %w", boardID, err)
	}
	return board, nil
}

// CreateList appends a list to a board. The returned list carries its
// assigned position.
func (c *Client) CreateList(ctx context.Context, boardID, title string) (domain.List, error) {
	var list domain.List
	req := domain.CreateListRequest{BoardID: boardID, Title: title}
	if err := c.do(ctx, http.MethodPost, "/lists", req, &list); err != nil {
		return domain.List{}, fmt.Errorf("failed to create list: %w", err)
	}
	return list, nil
}

// UpdateList renames a list.
func (c *Client) UpdateList(ctx context.Context, listID, title string) (domain.List, error) {
	var list domain.List
	req := domain.UpdateListRequest{Title: title}
	if err := c.do(ctx, http.MethodPut, "/lists/"+url.PathEscape(listID), req, &list); err != nil {
		return domain.List{}, fmt.Errorf("failed to update list %s: %w", listID, err)
	}
	return list, nil
}

// DeleteList removes a list and its cards.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	if err := c.do(ctx, http.MethodDelete, "/lists/"+url.PathEscape(listID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete list %s: %w", listID, err)
	}
	return nil
}

// ReorderLists stores the full {id, position} set of a board's lists.
func (c *Client) ReorderLists(ctx context.Context, lists []domain.ListPosition) error {
	req := domain.ReorderListsRequest{Lists: lists}
	if err := c.do(ctx, http.MethodPut, "/lists/reorder", req, nil); err != nil {
		return fmt.Errorf("failed to reorder lists: %w", err)
	}
	return nil
}

// CreateCard appends a card to a list. The returned card carries its
// assigned position.
func (c *Client) CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, http.MethodPost, "/cards", req, &card); err != nil {
		return domain.Card{}, fmt.Errorf("failed to create card: %w", err)
	}
	return card, nil
}

// UpdateCard applies a patch to a card.
func (c *Client) UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, http.MethodPut, "/cards/"+url.PathEscape(cardID), patch, &card); err != nil {
		return domain.Card{}, fmt.Errorf("failed to update card %s: %w", cardID, err)
	}
	return card, nil
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	if err := c.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// MoveCard places a card in a list at a position. The service renumbers the
// siblings in both lists.
func (c *Client) MoveCard(ctx context.Context, cardID string, move domain.CardMove) error {
	path := "/cards/" + url.PathEscape(cardID) + "/move"
	if err := c.do(ctx, http.MethodPut, path, move, nil); err != nil {
		return fmt.Errorf("failed to move card %s: %w", cardID, err)
	}
	return nil
}
