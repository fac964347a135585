// Package reorder drives a completed drag to a persisted result. Each drop is
// applied to the store optimistically, sent to the persistence service, and
// either confirmed or rolled back to the snapshot taken before the apply.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/drag"
	"github.com/h0rv/kanban/internal/position"
	"github.com/h0rv/kanban/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidPayload indicates a drop payload with unknown or malformed ids.
	// Such drops are treated as no-ops.
	ErrInvalidPayload = errors.New("invalid drop payload")
	// ErrInvariant indicates the store refused the optimistic mutation.
	// Nothing was applied and no request was sent.
	ErrInvariant = errors.New("store invariant violated")
	// ErrPersist indicates the persistence call failed and the move was rolled back.
	ErrPersist = errors.New("persist move")
	// ErrStale indicates a failed move could not be rolled back because newer
	// work has since touched the same containers.
	ErrStale = errors.New("stale rollback skipped")
)

// State is the lifecycle state of one operation.
type State int

// State constants.
const (
	StateIdle State = iota
	StateComputing
	StateApplied
	StateConfirmed
	StateRolledBack
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComputing:
		return "computing"
	case StateApplied:
		return "optimistically_applied"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	case StateSuperseded:
		return "superseded"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Persister is the remote side of a move.
type Persister interface {
	// ReorderLists stores the full {id, position} set of a board's lists.
	ReorderLists(ctx context.Context, lists []domain.ListPosition) error
	// MoveCard places a card in a list at a position. The remote side
	// renumbers the siblings.
	MoveCard(ctx context.Context, cardID string, move domain.CardMove) error
}

// Operation is one optimistically applied move awaiting its persistence result.
type Operation struct {
	seq      uint64
	payload  drag.Payload
	snapshot domain.BoardState

	lists []domain.ListPosition
	move  domain.CardMove

	// Containers touched by the move and the sequence that owned each before
	containers []string
	prevTouch  map[string]uint64
	scope      store.Scope
}

// Seq returns the operation's sequence number.
func (op *Operation) Seq() uint64 { return op.seq }

// Payload returns the drop that started the operation.
func (op *Operation) Payload() drag.Payload { return op.payload }

// Snapshot returns the board state captured before the optimistic apply.
func (op *Operation) Snapshot() domain.BoardState { return op.snapshot.Clone() }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine runs drops against a store and a persister.
//
// Store listeners must not call back into the Engine: Begin and Complete hold
// the engine lock while mutating the store.
type Engine struct {
	store     *store.Store
	persister Persister
	log       logrus.FieldLogger

	mu         sync.Mutex
	seq        uint64
	floor      uint64            // operations below this lost their snapshots to a reload
	latest     map[string]uint64 // entity id -> newest operation
	pending    map[string]int    // entity id -> operations awaiting a result
	containers map[string]uint64 // container key -> last operation to touch it
}

// New creates an Engine over s that persists through p.
func New(s *store.Store, p Persister, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		persister:  p,
		log:        logrus.StandardLogger(),
		latest:     make(map[string]uint64),
		pending:    make(map[string]int),
		containers: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight reports whether the entity has an operation awaiting its result.
// A new drag of that entity should not be started while this is true.
func (e *Engine) InFlight(entityID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[entityID] > 0
}

// OnDragEnd handles a drag-end event to completion. A drop outside any valid
// target is a no-op.
func (e *Engine) OnDragEnd(ctx context.Context, end drag.End) (State, error) {
	if end.Over == nil || end.Payload == nil {
		return StateIdle, nil
	}
	return e.Move(ctx, *end.Payload)
}

// Move applies, persists and completes payload synchronously.
func (e *Engine) Move(ctx context.Context, payload drag.Payload) (State, error) {
	op, err := e.Begin(payload)
	if err != nil {
		return StateIdle, err
	}
	if op == nil {
		return StateIdle, nil
	}
	return e.Complete(op, e.Persist(ctx, op))
}

// Begin validates payload, captures a snapshot and applies the move to the
// store. It returns a nil Operation when the drop is a no-op: an invalid
// payload, a list dropped on itself, or a card dropped on its own slot.
// ErrInvariant is returned if the store refuses the mutation.
func (e *Engine) Begin(payload drag.Payload) (*Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fields := logrus.Fields{"kind": payload.Kind, "entity": payload.ID}
	e.log.WithFields(fields).WithField("state", StateComputing).Debug("computing move")

	snapshot := e.store.Snapshot()
	op := &Operation{payload: payload, snapshot: snapshot}

	var (
		noop bool
		err  error
	)
	switch payload.Kind {
	case drag.KindList:
		noop, err = e.applyList(op)
	case drag.KindCard:
		noop, err = e.applyCard(op)
	default:
		err = fmt.Errorf("%w: kind %q", ErrInvalidPayload, payload.Kind)
	}

	if errors.Is(err, ErrInvalidPayload) {
		e.log.WithFields(fields).WithError(err).Debug("ignoring drop")
		return nil, nil
	}
	if err != nil {
		e.log.WithFields(fields).WithError(err).Error("move aborted")
		return nil, err
	}
	if noop {
		return nil, nil
	}

	e.seq++
	op.seq = e.seq
	op.prevTouch = make(map[string]uint64, len(op.containers))
	for _, c := range op.containers {
		op.prevTouch[c] = e.containers[c]
		e.containers[c] = op.seq
	}
	e.latest[payload.ID] = op.seq
	e.pending[payload.ID]++

	e.log.WithFields(fields).WithFields(logrus.Fields{
		"op":    op.seq,
		"state": StateApplied,
	}).Debug("move applied")
	return op, nil
}

// TouchLists records that the card collections of the given lists were
// changed outside the engine, for example by a created, edited or deleted
// card. Pending operations on those lists no longer own them, so a later
// failure reports ErrStale instead of restoring over the change.
func (e *Engine) TouchLists(listIDs ...string) {
	keys := make([]string, len(listIDs))
	for i, id := range listIDs {
		keys[i] = listKey(id)
	}
	e.touch(keys)
}

// TouchBoard records that the list set or list order of the board was
// changed outside the engine.
func (e *Engine) TouchBoard(boardID string) {
	e.touch([]string{boardKey(boardID)})
}

// Invalidate records that the whole store was replaced, as by a reload.
// Every pending operation loses ownership of its containers.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	e.floor = e.seq
	e.log.WithField("op", e.seq).Debug("pending moves invalidated")
}

func (e *Engine) touch(keys []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	for _, c := range keys {
		e.containers[c] = e.seq
	}
	e.log.WithFields(logrus.Fields{"op": e.seq, "containers": keys}).Debug("containers touched")
}

// Persist sends the operation's request to the persister.
func (e *Engine) Persist(ctx context.Context, op *Operation) error {
	if op.payload.Kind == drag.KindList {
		return e.persister.ReorderLists(ctx, op.lists)
	}
	return e.persister.MoveCard(ctx, op.payload.ID, op.move)
}

// Complete records the persistence result of op.
//
// On success the operation is confirmed. On failure it is rolled back unless
// newer work makes that unsafe:
//   - a newer operation on the same entity supersedes it and the result is ignored
//   - if it still owns every container it touched, those containers are
//     restored from its snapshot and the rest of the state is kept
//   - otherwise nothing is restored and ErrStale is returned
//
// Only the touched containers are restored, never the whole snapshot.
func (e *Engine) Complete(op *Operation, persistErr error) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := op.payload.ID
	if e.pending[id]--; e.pending[id] <= 0 {
		delete(e.pending, id)
	}

	fields := logrus.Fields{"op": op.seq, "kind": op.payload.Kind, "entity": id}

	if persistErr == nil {
		if e.latest[id] == op.seq {
			delete(e.latest, id)
		}
		e.log.WithFields(fields).Debug("move confirmed")
		return StateConfirmed, nil
	}

	e.log.WithFields(fields).WithError(persistErr).Warn("persist failed")

	if e.latest[id] != op.seq {
		e.log.WithFields(fields).Info("superseded move result ignored")
		return StateSuperseded, nil
	}
	delete(e.latest, id)

	if !e.owns(op) {
		e.log.WithFields(fields).Info("rollback skipped, containers changed since")
		return StateSuperseded, fmt.Errorf("%w: %w", ErrStale, persistErr)
	}
	if err := e.store.RestoreScope(op.snapshot, op.scope); err != nil {
		e.log.WithFields(fields).WithError(err).Info("scoped rollback failed")
		return StateSuperseded, fmt.Errorf("%w: %w", ErrStale, persistErr)
	}

	for _, c := range op.containers {
		if e.containers[c] != op.seq {
			continue
		}
		if prev := op.prevTouch[c]; prev != 0 {
			e.containers[c] = prev
		} else {
			delete(e.containers, c)
		}
	}

	e.log.WithFields(fields).Debug("move rolled back")
	return StateRolledBack, fmt.Errorf("%w: %w", ErrPersist, persistErr)
}

// owns reports whether op is still the last operation on all its containers.
func (e *Engine) owns(op *Operation) bool {
	if op.seq < e.floor {
		return false
	}
	for _, c := range op.containers {
		if e.containers[c] != op.seq {
			return false
		}
	}
	return true
}

func (e *Engine) applyList(op *Operation) (bool, error) {
	p, snap := op.payload, op.snapshot
	if p.TargetContainer != "" && p.TargetContainer != snap.Board.ID {
		return false, fmt.Errorf("%w: board %s", ErrInvalidPayload, p.TargetContainer)
	}
	from := snap.ListIndex(p.ID)
	if from < 0 {
		return false, fmt.Errorf("%w: list %s", ErrInvalidPayload, p.ID)
	}
	if p.TargetIndex < 0 {
		return false, fmt.Errorf("%w: index %d", ErrInvalidPayload, p.TargetIndex)
	}

	to := position.Clamp(p.TargetIndex, len(snap.Lists)-1)
	if from == to {
		return true, nil
	}

	moved := position.MoveWithin(snap.Lists, from, to)
	op.lists = make([]domain.ListPosition, len(moved))
	for i, l := range moved {
		op.lists[i] = domain.ListPosition{ID: l.ID, Position: l.Position}
	}

	if err := e.store.ApplyListOrder(op.lists); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	op.containers = []string{boardKey(snap.Board.ID)}
	op.scope = store.Scope{ListOrder: true}
	return false, nil
}

func (e *Engine) applyCard(op *Operation) (bool, error) {
	p, snap := op.payload, op.snapshot
	li, ci, ok := snap.FindCard(p.ID)
	if !ok {
		return false, fmt.Errorf("%w: card %s", ErrInvalidPayload, p.ID)
	}
	source := snap.Lists[li]
	if p.SourceContainer != "" && p.SourceContainer != source.ID {
		return false, fmt.Errorf("%w: card %s is not in list %s", ErrInvalidPayload, p.ID, p.SourceContainer)
	}
	ti := snap.ListIndex(p.TargetContainer)
	if ti < 0 {
		return false, fmt.Errorf("%w: list %s", ErrInvalidPayload, p.TargetContainer)
	}
	if p.TargetIndex < 0 {
		return false, fmt.Errorf("%w: index %d", ErrInvalidPayload, p.TargetIndex)
	}
	target := snap.Lists[ti]

	room := len(target.Cards)
	if ti == li {
		room--
	}
	k := position.Clamp(p.TargetIndex, room)
	if ti == li && k == ci {
		return true, nil
	}

	if err := e.store.ApplyCardMove(p.ID, source.ID, target.ID, k); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	op.move = domain.CardMove{ListID: target.ID, Position: k}
	op.containers = []string{listKey(source.ID)}
	op.scope = store.Scope{ListIDs: []string{source.ID}}
	if target.ID != source.ID {
		op.containers = append(op.containers, listKey(target.ID))
		op.scope.ListIDs = append(op.scope.ListIDs, target.ID)
	}
	return false, nil
}

func boardKey(id string) string { return "board:" + id }

func listKey(id string) string { return "list:" + id }
