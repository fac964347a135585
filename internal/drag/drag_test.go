package drag

import (
	"testing"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createTestState() domain.BoardState {
	return domain.BoardState{
		Board: domain.Board{ID: "board_1"},
		Lists: []domain.List{
			{ID: "S", Position: 0, Cards: []domain.Card{
				{ID: "x", Position: 0, ListID: "S"},
				{ID: "y", Position: 1, ListID: "S"},
				{ID: "w", Position: 2, ListID: "S"},
			}},
			{ID: "T", Position: 1, Cards: []domain.Card{
				{ID: "z", Position: 0, ListID: "T"},
			}},
			{ID: "E", Position: 2, Cards: []domain.Card{}},
		},
	}
}

// gridHitTester maps exact coordinates to targets.
type gridHitTester map[[2]int]Target

func (g gridHitTester) HitTest(x, y int) (Target, bool) {
	t, ok := g[[2]int{x, y}]
	return t, ok
}

func TestResolve_Card(t *testing.T) {
	state := createTestState()
	card := func(id string) Handle { return Handle{Kind: KindCard, ID: id} }

	tests := []struct {
		name      string
		active    Handle
		over      Target
		ok        bool
		container string
		index     int
	}{
		{"onto card in other list inserts before", card("x"), Target{Kind: KindCard, ID: "z", Container: "T"}, true, "T", 0},
		{"onto list body appends", card("x"), Target{Kind: KindList, ID: "T"}, true, "T", 1},
		{"onto empty list", card("x"), Target{Kind: KindList, ID: "E"}, true, "E", 0},
		{"onto own list body goes to end", card("x"), Target{Kind: KindList, ID: "S"}, true, "S", 2},
		{"onto itself keeps slot", card("y"), Target{Kind: KindCard, ID: "y", Container: "S"}, true, "S", 1},
		{"onto later card in same list", card("x"), Target{Kind: KindCard, ID: "w", Container: "S"}, true, "S", 1},
		{"onto earlier card in same list", card("w"), Target{Kind: KindCard, ID: "x", Container: "S"}, true, "S", 0},
		{"unknown active", card("ghost"), Target{Kind: KindList, ID: "T"}, false, "", 0},
		{"unknown list target", card("x"), Target{Kind: KindList, ID: "ghost"}, false, "", 0},
		{"unknown card target", card("x"), Target{Kind: KindCard, ID: "ghost"}, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := Resolve(state, tt.active, tt.over)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, KindCard, payload.Kind)
			assert.Equal(t, tt.active.ID, payload.ID)
			assert.Equal(t, tt.container, payload.TargetContainer)
			assert.Equal(t, tt.index, payload.TargetIndex)
		})
	}

	t.Run("source container comes from state", func(t *testing.T) {
		payload, ok := Resolve(state, Handle{Kind: KindCard, ID: "z", Container: "stale"}, Target{Kind: KindList, ID: "S"})
		require.True(t, ok)
		assert.Equal(t, "T", payload.SourceContainer)
	})
}

func TestResolve_List(t *testing.T) {
	state := createTestState()
	list := Handle{Kind: KindList, ID: "S"}

	payload, ok := Resolve(state, list, Target{Kind: KindList, ID: "E"})
	require.True(t, ok)
	assert.Equal(t, Payload{Kind: KindList, ID: "S", SourceContainer: "board_1", TargetContainer: "board_1", TargetIndex: 2}, payload)

	payload, ok = Resolve(state, list, Target{Kind: KindCard, ID: "z", Container: "T"})
	require.True(t, ok)
	assert.Equal(t, 1, payload.TargetIndex)

	_, ok = Resolve(state, Handle{Kind: KindList, ID: "ghost"}, Target{Kind: KindList, ID: "E"})
	assert.False(t, ok)

	_, ok = Resolve(state, Handle{Kind: "unknown", ID: "S"}, Target{Kind: KindList, ID: "E"})
	assert.False(t, ok)
}

func createTestTracker(opts ...Option) *Tracker {
	state := createTestState()
	hit := gridHitTester{
		{0, 0}:  {Kind: KindCard, ID: "x", Container: "S"},
		{0, 20}: {Kind: KindList, ID: "S"},
		{30, 0}: {Kind: KindCard, ID: "z", Container: "T"},
		{30, 5}: {Kind: KindList, ID: "T"},
	}
	resolver := BoardResolver{State: func() domain.BoardState { return state }}
	return NewTracker(hit, resolver, opts...)
}

func TestTracker_Drag(t *testing.T) {
	tr := createTestTracker()
	assert.Equal(t, DefaultThreshold, tr.Threshold())

	require.True(t, tr.PointerDown(0, 0))
	active, ok := tr.Active()
	require.True(t, ok)
	assert.Equal(t, "x", active.ID)

	// Below threshold: no start
	_, started := tr.PointerMove(3, 3)
	assert.False(t, started)
	assert.False(t, tr.Dragging())

	start, started := tr.PointerMove(10, 0)
	require.True(t, started)
	assert.Equal(t, "x", start.Active.ID)
	assert.True(t, tr.Dragging())

	// Exactly one start per gesture
	_, started = tr.PointerMove(20, 0)
	assert.False(t, started)

	rel := tr.PointerUp(30, 0)
	require.NotNil(t, rel.End)
	assert.Nil(t, rel.Click)
	require.NotNil(t, rel.End.Over)
	require.NotNil(t, rel.End.Payload)
	assert.Equal(t, "T", rel.End.Payload.TargetContainer)
	assert.Equal(t, 0, rel.End.Payload.TargetIndex)

	// Gesture finished
	assert.False(t, tr.Dragging())
	_, ok = tr.Active()
	assert.False(t, ok)
	assert.Equal(t, Release{}, tr.PointerUp(30, 0))
}

func TestTracker_Click(t *testing.T) {
	tr := createTestTracker()

	require.True(t, tr.PointerDown(0, 0))
	tr.PointerMove(1, 1)
	rel := tr.PointerUp(1, 1)

	assert.Nil(t, rel.End)
	require.NotNil(t, rel.Click)
	assert.Equal(t, "x", rel.Click.ID)
}

func TestTracker_DropOutsideTarget(t *testing.T) {
	tr := createTestTracker()

	require.True(t, tr.PointerDown(0, 0))
	_, started := tr.PointerMove(0, 50)
	require.True(t, started)

	rel := tr.PointerUp(99, 99)
	require.NotNil(t, rel.End)
	assert.Nil(t, rel.End.Over)
	assert.Nil(t, rel.End.Payload)
}

func TestTracker_Cancel(t *testing.T) {
	tr := createTestTracker()

	_, ok := tr.Cancel()
	assert.False(t, ok)

	require.True(t, tr.PointerDown(0, 20))
	tr.PointerMove(0, 40)
	end, ok := tr.Cancel()
	require.True(t, ok)
	assert.Equal(t, KindList, end.Active.Kind)
	assert.Nil(t, end.Over)
	assert.False(t, tr.Dragging())
}

func TestTracker_Options(t *testing.T) {
	t.Run("threshold", func(t *testing.T) {
		tr := createTestTracker(WithThreshold(2))
		require.True(t, tr.PointerDown(0, 0))
		_, started := tr.PointerMove(2, 0)
		assert.True(t, started)
	})

	t.Run("invalid threshold ignored", func(t *testing.T) {
		tr := createTestTracker(WithThreshold(0))
		assert.Equal(t, DefaultThreshold, tr.Threshold())
	})

	t.Run("busy entity cannot be pressed", func(t *testing.T) {
		tr := createTestTracker(WithBusy(func(id string) bool { return id == "x" }))
		assert.False(t, tr.PointerDown(0, 0))
		assert.True(t, tr.PointerDown(30, 0))
	})

	t.Run("nothing under pointer", func(t *testing.T) {
		tr := createTestTracker()
		assert.False(t, tr.PointerDown(7, 7))
	})

	t.Run("second press ignored", func(t *testing.T) {
		tr := createTestTracker()
		require.True(t, tr.PointerDown(0, 0))
		assert.False(t, tr.PointerDown(30, 0))
		active, _ := tr.Active()
		assert.Equal(t, "x", active.ID)
	})
}
