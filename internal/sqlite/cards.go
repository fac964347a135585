package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/position"
)

// cardPayload is the part of a card stored in the payload JSON column.
type cardPayload struct {
	Labels      []domain.Label      `json:"labels,omitempty"`
	Members     []domain.User       `json:"members,omitempty"`
	Checklists  []domain.Checklist  `json:"checklists,omitempty"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	Comments    []domain.Comment    `json:"comments,omitempty"`
}

const cardColumns = `id, list_id, title, position, description, due_date, cover_image, payload`

// CreateCard inserts a card into a list. Without a position the card is
// appended; with one it is inserted there (clamped) and its siblings shift.
func (d *DB) CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Card{}, fmt.Errorf("card title is required: %w", ErrInvalid)
	}

	var created domain.Card
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getList(ctx, tx, req.ListID); err != nil {
			return err
		}
		cards, err := listCards(ctx, tx, req.ListID)
		if err != nil {
			return err
		}

		created = domain.Card{ID: newID(), Title: title, ListID: req.ListID, Description: req.Description}
		idx := len(cards)
		if req.Position != nil {
			idx = *req.Position
		}
		_, cards, _ = position.Relocate([]domain.Card{created}, cards, created.ID, idx)
		created.Position = cards[position.IndexOf(cards, created.ID)].Position

		if err := insertCard(ctx, tx, created); err != nil {
			return err
		}
		return writeCardPositions(ctx, tx, req.ListID, cards)
	})
	return created, err
}

// SaveCard inserts card or replaces every stored field of it, including the
// payload. The caller is responsible for the position.
func (d *DB) SaveCard(ctx context.Context, card domain.Card) error {
	if card.ID == "" {
		card.ID = newID()
	}
	raw, err := encodePayload(card)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET list_id = excluded.list_id, title = excluded.title,
		position = excluded.position, description = excluded.description, due_date = excluded.due_date,
		cover_image = excluded.cover_image, payload = excluded.payload`,
		card.ID, card.ListID, card.Title, card.Position, card.Description, card.DueDate, card.CoverImage, raw)
	if err != nil {
		return fmt.Errorf("save card: %w", err)
	}
	return nil
}

// GetCard returns a card with its payload.
func (d *DB) GetCard(ctx context.Context, cardID string) (domain.Card, error) {
	return getCard(ctx, d.db, cardID)
}

// UpdateCard applies patch to a card.
func (d *DB) UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Card{}, fmt.Errorf("card title cannot be empty: %w", ErrInvalid)
	}

	var updated domain.Card
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		updated = patch.Apply(card)
		_, err = tx.ExecContext(ctx,
			`UPDATE cards SET title = ?, description = ?, due_date = ?, cover_image = ? WHERE id = ?`,
			updated.Title, updated.Description, updated.DueDate, updated.CoverImage, cardID)
		if err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		return nil
	})
	return updated, err
}

// DeleteCard removes a card and closes the gap in its list's positions.
func (d *DB) DeleteCard(ctx context.Context, cardID string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID); err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		cards, err := listCards(ctx, tx, card.ListID)
		if err != nil {
			return err
		}
		return writeCardPositions(ctx, tx, card.ListID, position.Reindex(cards))
	})
}

// MoveCard removes a card from its list and inserts it into move.ListID at
// move.Position (clamped). Both lists are renumbered densely in the same
// transaction. Returns the moved card.
func (d *DB) MoveCard(ctx context.Context, cardID string, move domain.CardMove) (domain.Card, error) {
	if move.Position < 0 {
		return domain.Card{}, fmt.Errorf("position %d: %w", move.Position, ErrInvalid)
	}

	var moved domain.Card
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if _, err := getList(ctx, tx, move.ListID); err != nil {
			return err
		}

		source, err := listCards(ctx, tx, card.ListID)
		if err != nil {
			return err
		}

		if card.ListID == move.ListID {
			from := position.IndexOf(source, cardID)
			cards := position.MoveWithin(source, from, position.Clamp(move.Position, len(source)-1))
			if err := writeCardPositions(ctx, tx, move.ListID, cards); err != nil {
				return err
			}
			moved = cards[position.IndexOf(cards, cardID)]
			return nil
		}

		target, err := listCards(ctx, tx, move.ListID)
		if err != nil {
			return err
		}
		newSource, newTarget, _ := position.Relocate(source, target, cardID, move.Position)
		if err := writeCardPositions(ctx, tx, card.ListID, newSource); err != nil {
			return err
		}
		if err := writeCardPositions(ctx, tx, move.ListID, newTarget); err != nil {
			return err
		}
		moved = newTarget[position.IndexOf(newTarget, cardID)]
		moved.ListID = move.ListID
		return nil
	})
	return moved, err
}

func getCard(ctx context.Context, q querier, cardID string) (domain.Card, error) {
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, cardID)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, notFound("card", cardID)
	}
	return card, err
}

// listCards returns the list's cards ordered by position.
func listCards(ctx context.Context, q querier, listID string) ([]domain.Card, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE list_id = ? ORDER BY position, id`, listID)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(s scanner) (domain.Card, error) {
	var (
		c   domain.Card
		raw string
	)
	if err := s.Scan(&c.ID, &c.ListID, &c.Title, &c.Position, &c.Description, &c.DueDate, &c.CoverImage, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, err
		}
		return domain.Card{}, fmt.Errorf("scan card: %w", err)
	}

	var p cardPayload
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return domain.Card{}, fmt.Errorf("decode card %s payload: %w", c.ID, err)
		}
	}
	c.Labels, c.Members, c.Checklists, c.Attachments, c.Comments = p.Labels, p.Members, p.Checklists, p.Attachments, p.Comments
	return c, nil
}

func encodePayload(c domain.Card) (string, error) {
	raw, err := json.Marshal(cardPayload{
		Labels:      c.Labels,
		Members:     c.Members,
		Checklists:  c.Checklists,
		Attachments: c.Attachments,
		Comments:    c.Comments,
	})
	if err != nil {
		return "", fmt.Errorf("encode card %s payload: %w", c.ID, err)
	}
	return string(raw), nil
}

func insertCard(ctx context.Context, q querier, c domain.Card) error {
	raw, err := encodePayload(c)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ListID, c.Title, c.Position, c.Description, c.DueDate, c.CoverImage, raw)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func writeCardPositions(ctx context.Context, tx *sql.Tx, listID string, cards []domain.Card) error {
	stmt, err := tx.PrepareContext(ctx, `UPDATE cards SET list_id = ?, position = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare card positions: %w", err)
	}
	defer stmt.Close()

	for _, c := range cards {
		if _, err := stmt.ExecContext(ctx, listID, c.Position, c.ID); err != nil {
			return fmt.Errorf("update card %s position: %w", c.ID, err)
		}
	}
	return nil
}
