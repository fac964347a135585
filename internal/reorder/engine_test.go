package reorder

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/drag"
	"github.com/h0rv/kanban/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("connection refused")

type cardMoveCall struct {
	CardID string
	Move   domain.CardMove
}

type fakePersister struct {
	mu    sync.Mutex
	err   error
	lists [][]domain.ListPosition
	moves []cardMoveCall
}

func (f *fakePersister) ReorderLists(_ context.Context, lists []domain.ListPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, lists)
	return f.err
}

func (f *fakePersister) MoveCard(_ context.Context, cardID string, move domain.CardMove) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, cardMoveCall{CardID: cardID, Move: move})
	return f.err
}

func (f *fakePersister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists) + len(f.moves)
}

// Test fixtures
func createTestState() domain.BoardState {
	return domain.BoardState{
		Board: domain.Board{ID: "board_1", Title: "Test Board"},
		Lists: []domain.List{
			{ID: "S", Title: "Todo", Position: 0, Cards: []domain.Card{
				{ID: "x", Title: "Fix bug", Position: 0, Description: "crash on start"},
				{ID: "y", Title: "Write docs", Position: 1},
			}},
			{ID: "T", Title: "Doing", Position: 1, Cards: []domain.Card{
				{ID: "z", Title: "Release", Position: 0},
			}},
			{ID: "E", Title: "Done", Position: 2},
		},
	}
}

type testEngine struct {
	*Engine
	store     *store.Store
	persister *fakePersister
	hook      *test.Hook
}

func createTestEngine() testEngine {
	s := store.New()
	s.Load(createTestState())

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	p := &fakePersister{}
	return testEngine{
		Engine:    New(s, p, WithLogger(logger)),
		store:     s,
		persister: p,
		hook:      hook,
	}
}

func cardPayload(id, from, to string, index int) drag.Payload {
	return drag.Payload{Kind: drag.KindCard, ID: id, SourceContainer: from, TargetContainer: to, TargetIndex: index}
}

func listPayload(id string, index int) drag.Payload {
	return drag.Payload{Kind: drag.KindList, ID: id, SourceContainer: "board_1", TargetContainer: "board_1", TargetIndex: index}
}

func cardIDs(state domain.BoardState, listID string) []string {
	l := state.Lists[state.ListIndex(listID)]
	ids := make([]string, len(l.Cards))
	for i, c := range l.Cards {
		ids[i] = c.ID
	}
	return ids
}

func listIDs(state domain.BoardState) []string {
	ids := make([]string, len(state.Lists))
	for i, l := range state.Lists {
		ids[i] = l.ID
	}
	return ids
}

func assertDense(t *testing.T, state domain.BoardState) {
	t.Helper()
	for i, l := range state.Lists {
		assert.Equal(t, i, l.Position, "list %s", l.ID)
		for j, c := range l.Cards {
			assert.Equal(t, j, c.Position, "card %s", c.ID)
			assert.Equal(t, l.ID, c.ListID, "card %s owner", c.ID)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "optimistically_applied", StateApplied.String())
	assert.Equal(t, "rolled_back", StateRolledBack.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestMove_ListScenarioA(t *testing.T) {
	e := createTestEngine()

	state, err := e.Move(context.Background(), listPayload("S", 2))
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)

	snap := e.store.Snapshot()
	assert.Equal(t, []string{"T", "E", "S"}, listIDs(snap))
	assertDense(t, snap)

	// Full set of positions is sent, not just the moved list
	require.Len(t, e.persister.lists, 1)
	assert.Equal(t, []domain.ListPosition{
		{ID: "T", Position: 0},
		{ID: "E", Position: 1},
		{ID: "S", Position: 2},
	}, e.persister.lists[0])
	assert.Empty(t, e.persister.moves)
}

func TestMove_CardScenarioB(t *testing.T) {
	e := createTestEngine()

	// Dropped on z: insert before z
	payload, ok := drag.Resolve(e.store.Snapshot(),
		drag.Handle{Kind: drag.KindCard, ID: "x"},
		drag.Target{Kind: drag.KindCard, ID: "z", Container: "T"})
	require.True(t, ok)

	state, err := e.Move(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)

	snap := e.store.Snapshot()
	assert.Equal(t, []string{"y"}, cardIDs(snap, "S"))
	assert.Equal(t, []string{"x", "z"}, cardIDs(snap, "T"))
	assertDense(t, snap)

	require.Len(t, e.persister.moves, 1)
	assert.Equal(t, cardMoveCall{CardID: "x", Move: domain.CardMove{ListID: "T", Position: 0}}, e.persister.moves[0])
	assert.Empty(t, e.persister.lists)
}

func TestOnDragEnd_ScenarioC(t *testing.T) {
	e := createTestEngine()
	before := e.store.Snapshot()

	state, err := e.OnDragEnd(context.Background(), drag.End{Active: drag.Handle{Kind: drag.KindCard, ID: "x"}})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, before, e.store.Snapshot())
	assert.Zero(t, e.persister.calls())
}

func TestOnDragEnd_WithPayload(t *testing.T) {
	e := createTestEngine()
	payload := cardPayload("z", "T", "E", 0)

	state, err := e.OnDragEnd(context.Background(), drag.End{
		Active:  drag.Handle{Kind: drag.KindCard, ID: "z"},
		Over:    &drag.Target{Kind: drag.KindList, ID: "E"},
		Payload: &payload,
	})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)
	assert.Equal(t, []string{"z"}, cardIDs(e.store.Snapshot(), "E"))
}

func TestMove_CardScenarioD(t *testing.T) {
	e := createTestEngine()
	e.persister.err = errOffline
	before := e.store.Snapshot()

	state, err := e.Move(context.Background(), cardPayload("x", "S", "T", 1))
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, errOffline)

	assert.Equal(t, before, e.store.Snapshot())
	assert.False(t, e.InFlight("x"))

	var warned bool
	for _, entry := range e.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, "x", entry.Data["entity"])
			assert.Equal(t, drag.KindCard, entry.Data["kind"])
			assert.Equal(t, uint64(1), entry.Data["op"])
		}
	}
	assert.True(t, warned, "persistence failure is logged at warn")
}

func TestMove_ListRollback(t *testing.T) {
	e := createTestEngine()
	e.persister.err = errOffline
	before := e.store.Snapshot()

	state, err := e.Move(context.Background(), listPayload("E", 0))
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, before, e.store.Snapshot())
}

func TestMove_NoOps(t *testing.T) {
	tests := []struct {
		name    string
		payload drag.Payload
	}{
		{"list onto itself", listPayload("T", 1)},
		{"card onto own slot", cardPayload("y", "S", "S", 1)},
		{"card onto own slot clamped", cardPayload("y", "S", "S", 9)},
		{"unknown card", cardPayload("ghost", "S", "T", 0)},
		{"unknown target list", cardPayload("x", "S", "ghost", 0)},
		{"wrong source list", cardPayload("x", "T", "E", 0)},
		{"unknown list", listPayload("ghost", 0)},
		{"foreign board", drag.Payload{Kind: drag.KindList, ID: "S", TargetContainer: "board_2", TargetIndex: 1}},
		{"negative index", cardPayload("x", "S", "T", -1)},
		{"unknown kind", drag.Payload{Kind: "column", ID: "S"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine()
			before := e.store.Snapshot()

			state, err := e.Move(context.Background(), tt.payload)
			require.NoError(t, err)
			assert.Equal(t, StateIdle, state)
			assert.Equal(t, before, e.store.Snapshot())
			assert.Zero(t, e.persister.calls())
		})
	}
}

func TestMove_ClampsTargetIndex(t *testing.T) {
	e := createTestEngine()

	_, err := e.Move(context.Background(), cardPayload("x", "S", "T", 99))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x"}, cardIDs(e.store.Snapshot(), "T"))
	assert.Equal(t, 1, e.persister.moves[0].Move.Position)

	_, err = e.Move(context.Background(), listPayload("S", 99))
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "E", "S"}, listIDs(e.store.Snapshot()))
}

func TestBegin_InFlight(t *testing.T) {
	e := createTestEngine()

	op, err := e.Begin(cardPayload("x", "S", "E", 0))
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, uint64(1), op.Seq())
	assert.Equal(t, "x", op.Payload().ID)
	assert.Equal(t, []string{"x", "y"}, cardIDs(op.Snapshot(), "S"))

	// Optimistically applied before the request resolves
	assert.Equal(t, []string{"x"}, cardIDs(e.store.Snapshot(), "E"))
	assert.True(t, e.InFlight("x"))
	assert.False(t, e.InFlight("y"))

	state, err := e.Complete(op, e.Persist(context.Background(), op))
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)
	assert.False(t, e.InFlight("x"))
}

func TestComplete_SupersededResultIgnored(t *testing.T) {
	e := createTestEngine()

	first, err := e.Begin(cardPayload("x", "S", "T", 0))
	require.NoError(t, err)
	second, err := e.Begin(cardPayload("x", "T", "E", 0))
	require.NoError(t, err)
	newer := e.store.Snapshot()

	state, err := e.Complete(first, errOffline)
	require.NoError(t, err)
	assert.Equal(t, StateSuperseded, state)
	assert.Equal(t, newer, e.store.Snapshot())
	assert.True(t, e.InFlight("x"))

	state, err = e.Complete(second, nil)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)
	assert.Equal(t, []string{"x"}, cardIDs(e.store.Snapshot(), "E"))
}

func TestComplete_ScopedRollbackKeepsUnrelatedWork(t *testing.T) {
	e := createTestEngine()

	cardOp, err := e.Begin(cardPayload("x", "S", "E", 0))
	require.NoError(t, err)
	listOp, err := e.Begin(listPayload("T", 0))
	require.NoError(t, err)

	state, err := e.Complete(cardOp, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)

	snap := e.store.Snapshot()
	assert.Equal(t, []string{"T", "S", "E"}, listIDs(snap), "newer list move survives")
	assert.Equal(t, []string{"x", "y"}, cardIDs(snap, "S"))
	assert.Empty(t, cardIDs(snap, "E"))
	assertDense(t, snap)

	state, err = e.Complete(listOp, nil)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, state)
}

func TestComplete_StaleRollbackSkipped(t *testing.T) {
	e := createTestEngine()

	first, err := e.Begin(cardPayload("x", "S", "T", 0))
	require.NoError(t, err)
	second, err := e.Begin(cardPayload("y", "S", "E", 0))
	require.NoError(t, err)
	newer := e.store.Snapshot()

	// y's move rewrote list S after x's; restoring x would erase it
	state, err := e.Complete(first, errOffline)
	assert.Equal(t, StateSuperseded, state)
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, newer, e.store.Snapshot())

	// The newest operation still rolls back to its own snapshot
	state, err = e.Complete(second, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	snap := e.store.Snapshot()
	assert.Equal(t, []string{"y"}, cardIDs(snap, "S"))
	assert.Equal(t, []string{"x", "z"}, cardIDs(snap, "T"))
	assert.Empty(t, cardIDs(snap, "E"))
}

func TestComplete_OwnershipReturnsAfterRollback(t *testing.T) {
	e := createTestEngine()
	original := e.store.Snapshot()

	older, err := e.Begin(cardPayload("y", "S", "E", 0))
	require.NoError(t, err)
	newer, err := e.Begin(cardPayload("x", "S", "T", 0))
	require.NoError(t, err)

	state, err := e.Complete(newer, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)

	// With the newer move undone, the older one owns list S again
	state, err = e.Complete(older, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, original, e.store.Snapshot())
}

func TestMove_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	e := createTestEngine()

	for step := 0; step < 300; step++ {
		before := e.store.Snapshot()
		fail := rng.Intn(3) == 0
		if fail {
			e.persister.err = errOffline
		} else {
			e.persister.err = nil
		}

		var payload drag.Payload
		if rng.Intn(4) == 0 {
			l := before.Lists[rng.Intn(len(before.Lists))]
			payload = listPayload(l.ID, rng.Intn(len(before.Lists)+1))
		} else {
			li := rng.Intn(len(before.Lists))
			for len(before.Lists[li].Cards) == 0 {
				li = rng.Intn(len(before.Lists))
			}
			c := before.Lists[li].Cards[rng.Intn(len(before.Lists[li].Cards))]
			to := before.Lists[rng.Intn(len(before.Lists))]
			payload = cardPayload(c.ID, c.ListID, to.ID, rng.Intn(len(to.Cards)+2))
		}

		state, err := e.Move(context.Background(), payload)
		after := e.store.Snapshot()
		assertDense(t, after)

		switch state {
		case StateRolledBack:
			require.ErrorIs(t, err, ErrPersist)
			assert.Equal(t, before, after)
		case StateConfirmed, StateIdle:
			require.NoError(t, err)
		default:
			t.Fatalf("unexpected state %s", state)
		}
	}
}

func TestComplete_RollbackKeepsEarlierRollback(t *testing.T) {
	e := createTestEngine()
	original := e.store.Snapshot()

	within, err := e.Begin(cardPayload("x", "S", "S", 1))
	require.NoError(t, err)
	across, err := e.Begin(cardPayload("z", "T", "E", 0))
	require.NoError(t, err)

	state, err := e.Complete(within, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, []string{"x", "y"}, cardIDs(e.store.Snapshot(), "S"))

	// The newest operation must not bring back the reorder of S
	state, err = e.Complete(across, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, original, e.store.Snapshot())
}

func TestComplete_RollbackKeepsEditsToOtherLists(t *testing.T) {
	e := createTestEngine()

	op, err := e.Begin(cardPayload("x", "S", "T", 0))
	require.NoError(t, err)
	require.NoError(t, e.store.AddCard(domain.Card{ID: "new", ListID: "E", Title: "Added meanwhile"}))
	e.TouchLists("E")

	state, err := e.Complete(op, errOffline)
	assert.Equal(t, StateRolledBack, state)
	assert.ErrorIs(t, err, ErrPersist)

	snap := e.store.Snapshot()
	assert.Equal(t, []string{"x", "y"}, cardIDs(snap, "S"))
	assert.Equal(t, []string{"z"}, cardIDs(snap, "T"))
	assert.Equal(t, []string{"new"}, cardIDs(snap, "E"))
	assertDense(t, snap)
}

func TestComplete_TouchedContainersAreStale(t *testing.T) {
	t.Run("card added to a moved-into list", func(t *testing.T) {
		e := createTestEngine()

		op, err := e.Begin(cardPayload("x", "S", "T", 0))
		require.NoError(t, err)
		require.NoError(t, e.store.AddCard(domain.Card{ID: "new", ListID: "T"}))
		e.TouchLists("T")
		edited := e.store.Snapshot()

		state, err := e.Complete(op, errOffline)
		assert.Equal(t, StateSuperseded, state)
		assert.ErrorIs(t, err, ErrStale)
		assert.Equal(t, edited, e.store.Snapshot())
	})

	t.Run("list added during a list move", func(t *testing.T) {
		e := createTestEngine()

		op, err := e.Begin(listPayload("E", 0))
		require.NoError(t, err)
		require.NoError(t, e.store.AddList(domain.List{ID: "B", Title: "Backlog"}))
		e.TouchBoard("board_1")
		edited := e.store.Snapshot()

		state, err := e.Complete(op, errOffline)
		assert.Equal(t, StateSuperseded, state)
		assert.ErrorIs(t, err, ErrStale)
		assert.Equal(t, edited, e.store.Snapshot())
	})

	t.Run("board reloaded", func(t *testing.T) {
		e := createTestEngine()

		op, err := e.Begin(cardPayload("x", "S", "E", 0))
		require.NoError(t, err)
		fresh := createTestState()
		fresh.Lists[2].Cards = []domain.Card{{ID: "w", Title: "From another editor"}}
		e.store.Load(fresh)
		e.Invalidate()
		reloaded := e.store.Snapshot()

		state, err := e.Complete(op, errOffline)
		assert.Equal(t, StateSuperseded, state)
		assert.ErrorIs(t, err, ErrStale)
		assert.Equal(t, reloaded, e.store.Snapshot())

		// Moves begun after the reload roll back normally
		state, err = e.Move(context.Background(), cardPayload("w", "E", "S", 0))
		assert.Equal(t, StateRolledBack, state)
		assert.ErrorIs(t, err, ErrPersist)
		assert.Equal(t, reloaded, e.store.Snapshot())
	})

	t.Run("touch after rollback keeps ownership for newer work", func(t *testing.T) {
		e := createTestEngine()

		older, err := e.Begin(cardPayload("y", "S", "E", 0))
		require.NoError(t, err)
		e.TouchLists("T")
		newer, err := e.Begin(cardPayload("z", "T", "E", 0))
		require.NoError(t, err)

		state, err := e.Complete(newer, errOffline)
		assert.Equal(t, StateRolledBack, state)
		assert.ErrorIs(t, err, ErrPersist)
		state, err = e.Complete(older, errOffline)
		assert.Equal(t, StateRolledBack, state)
		assert.ErrorIs(t, err, ErrPersist)
		assert.Equal(t, createTestEngine().store.Snapshot(), e.store.Snapshot())
	})
}

// serverPersister applies each request that succeeds to a second store, in
// the order the requests are sent.
type serverPersister struct {
	server *store.Store
	fail   bool
}

func (p *serverPersister) ReorderLists(_ context.Context, lists []domain.ListPosition) error {
	if p.fail {
		return errOffline
	}
	return p.server.ApplyListOrder(lists)
}

func (p *serverPersister) MoveCard(_ context.Context, cardID string, move domain.CardMove) error {
	if p.fail {
		return errOffline
	}
	state := p.server.Snapshot()
	li, _, ok := state.FindCard(cardID)
	if !ok {
		return store.ErrCardNotFound
	}
	return p.server.ApplyCardMove(cardID, state.Lists[li].ID, move.ListID, move.Position)
}

// randomPayload picks a drop of an entity that has no move in flight.
func randomPayload(rng *rand.Rand, state domain.BoardState, busy func(string) bool) (drag.Payload, bool) {
	if rng.Intn(4) == 0 {
		l := state.Lists[rng.Intn(len(state.Lists))]
		if busy(l.ID) {
			return drag.Payload{}, false
		}
		return listPayload(l.ID, rng.Intn(len(state.Lists)+1)), true
	}

	var cards []domain.Card
	for _, l := range state.Lists {
		cards = append(cards, l.Cards...)
	}
	c := cards[rng.Intn(len(cards))]
	if busy(c.ID) {
		return drag.Payload{}, false
	}
	to := state.Lists[rng.Intn(len(state.Lists))]
	return cardPayload(c.ID, c.ListID, to.ID, rng.Intn(len(to.Cards)+2)), true
}

func TestComplete_InterleavedResultsMatchServer(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	ctx := context.Background()

	local := store.New()
	local.Load(createTestState())
	server := store.New()
	server.Load(createTestState())

	p := &serverPersister{server: server}
	logger, _ := test.NewNullLogger()
	e := New(local, p, WithLogger(logger))

	var clean, rolledBack int
	for round := 0; round < 200; round++ {
		var (
			pending []*Operation
			results = make(map[*Operation]error)
			stale   bool
		)

		// Requests reach the server in the order they are sent; their
		// results come back in any order
		for begun := 0; begun < 4 || len(pending) > 0; {
			if begun < 4 && (len(pending) == 0 || rng.Intn(2) == 0) {
				begun++
				payload, ok := randomPayload(rng, local.Snapshot(), e.InFlight)
				if !ok {
					continue
				}
				op, err := e.Begin(payload)
				require.NoError(t, err)
				if op == nil {
					continue
				}
				p.fail = rng.Intn(3) == 0
				results[op] = e.Persist(ctx, op)
				pending = append(pending, op)
				continue
			}

			i := rng.Intn(len(pending))
			op := pending[i]
			pending = append(pending[:i], pending[i+1:]...)

			state, err := e.Complete(op, results[op])
			switch {
			case errors.Is(err, ErrStale):
				stale = true
			case results[op] == nil:
				require.NoError(t, err)
				assert.Equal(t, StateConfirmed, state)
			default:
				assert.Equal(t, StateRolledBack, state)
				assert.ErrorIs(t, err, ErrPersist)
				rolledBack++
			}
			assertDense(t, local.Snapshot())
		}

		if stale {
			// The editor reloads from the server after a stale rollback
			local.Load(server.Snapshot())
			continue
		}
		clean++
		require.Equal(t, server.Snapshot().Lists, local.Snapshot().Lists, "round %d", round)
	}

	assert.Greater(t, clean, 10)
	assert.Positive(t, rolledBack)
}
