package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/position"
)

// CreateList inserts a list into a board. Without a position the list is
// appended; with one it is inserted there (clamped) and its siblings shift.
func (d *DB) CreateList(ctx context.Context, req domain.CreateListRequest) (domain.List, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.List{}, fmt.Errorf("list title is required: %w", ErrInvalid)
	}

	var created domain.List
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getBoard(ctx, tx, req.BoardID); err != nil {
			return err
		}
		lists, err := boardLists(ctx, tx, req.BoardID)
		if err != nil {
			return err
		}

		created = domain.List{ID: newID(), Title: title, BoardID: req.BoardID, Cards: []domain.Card{}}
		idx := len(lists)
		if req.Position != nil {
			idx = *req.Position
		}
		_, lists, _ = position.Relocate([]domain.List{created}, lists, created.ID, idx)

		created.Position = lists[position.IndexOf(lists, created.ID)].Position
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lists (id, board_id, title, position) VALUES (?, ?, ?, ?)`,
			created.ID, created.BoardID, created.Title, created.Position); err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		return writeListPositions(ctx, tx, lists)
	})
	return created, err
}

// GetList returns a list with its cards.
func (d *DB) GetList(ctx context.Context, listID string) (domain.List, error) {
	l, err := getList(ctx, d.db, listID)
	if err != nil {
		return domain.List{}, err
	}
	l.Cards, err = listCards(ctx, d.db, listID)
	return l, err
}

// UpdateList renames a list.
func (d *DB) UpdateList(ctx context.Context, listID string, req domain.UpdateListRequest) (domain.List, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.List{}, fmt.Errorf("list title is required: %w", ErrInvalid)
	}

	res, err := d.db.ExecContext(ctx, `UPDATE lists SET title = ? WHERE id = ?`, title, listID)
	if err != nil {
		return domain.List{}, fmt.Errorf("update list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.List{}, notFound("list", listID)
	}
	return d.GetList(ctx, listID)
}

// DeleteList removes a list and its cards, then closes the gap in the
// board's list positions.
func (d *DB) DeleteList(ctx context.Context, listID string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		l, err := getList(ctx, tx, listID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, listID); err != nil {
			return fmt.Errorf("delete list: %w", err)
		}
		lists, err := boardLists(ctx, tx, l.BoardID)
		if err != nil {
			return err
		}
		return writeListPositions(ctx, tx, position.Reindex(lists))
	})
}

// ReorderLists applies a list order in one transaction. Every id must name an
// existing list and all lists must belong to the same board. Lists of that
// board missing from order keep their relative place after sorting; the
// result is reindexed so positions stay dense.
func (d *DB) ReorderLists(ctx context.Context, order []domain.ListPosition) error {
	if len(order) == 0 {
		return nil
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		first, err := getList(ctx, tx, order[0].ID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("unknown list %s: %w", order[0].ID, ErrInvalid)
		}
		if err != nil {
			return err
		}

		lists, err := boardLists(ctx, tx, first.BoardID)
		if err != nil {
			return err
		}
		byID := make(map[string]int, len(lists))
		for i, l := range lists {
			byID[l.ID] = i
		}

		for _, entry := range order {
			i, ok := byID[entry.ID]
			if !ok {
				return fmt.Errorf("unknown list %s: %w", entry.ID, ErrInvalid)
			}
			lists[i].Position = entry.Position
		}

		sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })
		return writeListPositions(ctx, tx, position.Reindex(lists))
	})
}

func getList(ctx context.Context, q querier, listID string) (domain.List, error) {
	l := domain.List{Cards: []domain.Card{}}
	err := q.QueryRowContext(ctx,
		`SELECT id, board_id, title, position FROM lists WHERE id = ?`, listID).
		Scan(&l.ID, &l.BoardID, &l.Title, &l.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.List{}, notFound("list", listID)
	}
	if err != nil {
		return domain.List{}, fmt.Errorf("query list: %w", err)
	}
	return l, nil
}

// boardLists returns the board's lists ordered by position, without cards.
func boardLists(ctx context.Context, q querier, boardID string) ([]domain.List, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, board_id, title, position FROM lists WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	lists := []domain.List{}
	for rows.Next() {
		l := domain.List{Cards: []domain.Card{}}
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func writeListPositions(ctx context.Context, tx *sql.Tx, lists []domain.List) error {
	stmt, err := tx.PrepareContext(ctx, `UPDATE lists SET position = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare list positions: %w", err)
	}
	defer stmt.Close()

	for _, l := range lists {
		if _, err := stmt.ExecContext(ctx, l.Position, l.ID); err != nil {
			return fmt.Errorf("update list %s position: %w", l.ID, err)
		}
	}
	return nil
}
