package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/h0rv/kanban/internal/domain"
)

// ListBoards returns all boards, newest first. Lists are not included.
func (d *DB) ListBoards(ctx context.Context) ([]domain.Board, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, title, description, background, created_at FROM boards ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Background, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GetBoard returns a board with its lists and nested cards, ordered by position.
func (d *DB) GetBoard(ctx context.Context, boardID string) (domain.BoardState, error) {
	var state domain.BoardState
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		board, err := getBoard(ctx, tx, boardID)
		if err != nil {
			return err
		}
		lists, err := boardLists(ctx, tx, boardID)
		if err != nil {
			return err
		}
		for i := range lists {
			if lists[i].Cards, err = listCards(ctx, tx, lists[i].ID); err != nil {
				return err
			}
		}
		state = domain.BoardState{Board: board, Lists: lists}
		return nil
	})
	return state, err
}

// CreateBoard inserts a new board.
func (d *DB) CreateBoard(ctx context.Context, req domain.CreateBoardRequest) (domain.Board, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Board{}, fmt.Errorf("board title is required: %w", ErrInvalid)
	}

	b := domain.Board{
		ID:          newID(),
		Title:       title,
		Description: req.Description,
		Background:  req.Background,
		CreatedAt:   d.timestamp(),
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO boards (id, title, description, background, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Description, b.Background, b.CreatedAt)
	if err != nil {
		return domain.Board{}, fmt.Errorf("insert board: %w", err)
	}
	return b, nil
}

// UpdateBoard changes the title, description or background of a board.
func (d *DB) UpdateBoard(ctx context.Context, boardID string, req domain.UpdateBoardRequest) (domain.Board, error) {
	var b domain.Board
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if b, err = getBoard(ctx, tx, boardID); err != nil {
			return err
		}
		if req.Title != nil {
			b.Title = strings.TrimSpace(*req.Title)
			if b.Title == "" {
				return fmt.Errorf("board title is required: %w", ErrInvalid)
			}
		}
		if req.Description != nil {
			b.Description = *req.Description
		}
		if req.Background != nil {
			b.Background = *req.Background
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE boards SET title = ?, description = ?, background = ? WHERE id = ?`,
			b.Title, b.Description, b.Background, b.ID)
		if err != nil {
			return fmt.Errorf("update board: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// DeleteBoard removes a board with its lists and cards.
func (d *DB) DeleteBoard(ctx context.Context, boardID string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("board", boardID)
	}
	return nil
}

func getBoard(ctx context.Context, q querier, boardID string) (domain.Board, error) {
	var b domain.Board
	err := q.QueryRowContext(ctx,
		`SELECT id, title, description, background, created_at FROM boards WHERE id = ?`, boardID).
		Scan(&b.ID, &b.Title, &b.Description, &b.Background, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, notFound("board", boardID)
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("query board: %w", err)
	}
	return b, nil
}
