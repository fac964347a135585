// Package cache wraps the board repository with a Redis read-through cache
// for full board reads. Every write bumps a generation counter that is part
// of each cache key, so no board cached before a mutation is served after it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// GenerationKey holds the write generation.
const GenerationKey = "kanban:gen"

// Backend is the repository being cached.
type Backend interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID string) (domain.BoardState, error)
	CreateBoard(ctx context.Context, req domain.CreateBoardRequest) (domain.Board, error)
	UpdateBoard(ctx context.Context, boardID string, req domain.UpdateBoardRequest) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error

	GetList(ctx context.Context, listID string) (domain.List, error)
	CreateList(ctx context.Context, req domain.CreateListRequest) (domain.List, error)
	UpdateList(ctx context.Context, listID string, req domain.UpdateListRequest) (domain.List, error)
	DeleteList(ctx context.Context, listID string) error
	ReorderLists(ctx context.Context, order []domain.ListPosition) error

	GetCard(ctx context.Context, cardID string) (domain.Card, error)
	CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID string, move domain.CardMove) (domain.Card, error)
}

// Cache caches GetBoard and passes every other call through to the backend.
type Cache struct {
	Backend
	redis *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger
}

// New creates a Cache over base. A nil client or a non-positive ttl disables
// caching without changing behavior.
func New(base Backend, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if base == nil {
		panic("cache.New: base is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{Backend: base, redis: client, ttl: ttl, log: log}
}

// GetBoard serves the board from Redis when cached under the current
// generation, otherwise reads it from the backend and stores it.
func (c *Cache) GetBoard(ctx context.Context, boardID string) (domain.BoardState, error) {
	if c.redis == nil || c.ttl == 0 {
		return c.Backend.GetBoard(ctx, boardID)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.log.WithError(err).Debug("cache unavailable, reading database")
		return c.Backend.GetBoard(ctx, boardID)
	}

	key := BoardKey(gen, boardID)
	if state, ok := c.load(ctx, key); ok {
		return state, nil
	}

	state, err := c.Backend.GetBoard(ctx, boardID)
	if err != nil {
		return domain.BoardState{}, err
	}
	c.store(ctx, key, state)
	return state, nil
}

// CreateBoard implements Backend.
func (c *Cache) CreateBoard(ctx context.Context, req domain.CreateBoardRequest) (domain.Board, error) {
	b, err := c.Backend.CreateBoard(ctx, req)
	return b, c.bump(ctx, err)
}

// UpdateBoard implements Backend.
func (c *Cache) UpdateBoard(ctx context.Context, boardID string, req domain.UpdateBoardRequest) (domain.Board, error) {
	b, err := c.Backend.UpdateBoard(ctx, boardID, req)
	return b, c.bump(ctx, err)
}

// DeleteBoard implements Backend.
func (c *Cache) DeleteBoard(ctx context.Context, boardID string) error {
	return c.bump(ctx, c.Backend.DeleteBoard(ctx, boardID))
}

// CreateList implements Backend.
func (c *Cache) CreateList(ctx context.Context, req domain.CreateListRequest) (domain.List, error) {
	l, err := c.Backend.CreateList(ctx, req)
	return l, c.bump(ctx, err)
}

// UpdateList implements Backend.
func (c *Cache) UpdateList(ctx context.Context, listID string, req domain.UpdateListRequest) (domain.List, error) {
	l, err := c.Backend.UpdateList(ctx, listID, req)
	return l, c.bump(ctx, err)
}

// DeleteList implements Backend.
func (c *Cache) DeleteList(ctx context.Context, listID string) error {
	return c.bump(ctx, c.Backend.DeleteList(ctx, listID))
}

// ReorderLists implements Backend.
func (c *Cache) ReorderLists(ctx context.Context, order []domain.ListPosition) error {
	return c.bump(ctx, c.Backend.ReorderLists(ctx, order))
}

// CreateCard implements Backend.
func (c *Cache) CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error) {
	card, err := c.Backend.CreateCard(ctx, req)
	return card, c.bump(ctx, err)
}

// UpdateCard implements Backend.
func (c *Cache) UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error) {
	card, err := c.Backend.UpdateCard(ctx, cardID, patch)
	return card, c.bump(ctx, err)
}

// DeleteCard implements Backend.
func (c *Cache) DeleteCard(ctx context.Context, cardID string) error {
	return c.bump(ctx, c.Backend.DeleteCard(ctx, cardID))
}

// MoveCard implements Backend.
func (c *Cache) MoveCard(ctx context.Context, cardID string, move domain.CardMove) (domain.Card, error) {
	card, err := c.Backend.MoveCard(ctx, cardID, move)
	return card, c.bump(ctx, err)
}

// BoardKey returns the cache key of a board under a generation.
func BoardKey(gen, boardID string) string {
	return "kanban:board:" + gen + ":" + boardID
}

func (c *Cache) generation(ctx context.Context) (string, error) {
	gen, err := c.redis.Get(ctx, GenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (c *Cache) load(ctx context.Context, key string) (domain.BoardState, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Debug("cache read failed")
		}
		return domain.BoardState{}, false
	}
	var state domain.BoardState
	if err := json.Unmarshal(data, &state); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return domain.BoardState{}, false
	}
	return state, true
}

func (c *Cache) store(ctx context.Context, key string, state domain.BoardState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
}

// bump advances the generation after a successful write and returns err
// unchanged. Cache failures are logged, never returned.
func (c *Cache) bump(ctx context.Context, err error) error {
	if err != nil || c.redis == nil {
		return err
	}
	if incrErr := c.redis.Incr(ctx, GenerationKey).Err(); incrErr != nil {
		c.log.WithError(incrErr).Warn("failed to advance cache generation")
	}
	return nil
}
