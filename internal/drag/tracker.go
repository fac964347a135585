package drag

type phase int

const (
	phaseIdle phase = iota
	phasePressed
	phaseDragging
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithThreshold sets the activation distance. Values below 1 are ignored.
func WithThreshold(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threshold = n
		}
	}
}

// WithBusy installs a predicate that rejects pressing an entity that still has
// an operation in flight.
func WithBusy(busy func(entityID string) bool) Option {
	return func(t *Tracker) {
		t.busy = busy
	}
}

// Tracker follows one pointer gesture at a time.
// Feed it PointerDown, PointerMove and PointerUp in order.
type Tracker struct {
	hit       HitTester
	resolver  Resolver
	threshold int
	busy      func(entityID string) bool

	phase            phase
	originX, originY int
	active           Handle
}

// NewTracker creates a Tracker using hit for hit testing and resolver to
// compute drop payloads.
func NewTracker(hit HitTester, resolver Resolver, opts ...Option) *Tracker {
	t := &Tracker{
		hit:       hit,
		resolver:  resolver,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Threshold returns the activation distance.
func (t *Tracker) Threshold() int {
	return t.threshold
}

// Dragging reports whether a drag is in progress.
func (t *Tracker) Dragging() bool {
	return t.phase == phaseDragging
}

// Active returns the pressed or dragged handle. ok is false when idle.
func (t *Tracker) Active() (Handle, bool) {
	if t.phase == phaseIdle {
		return Handle{}, false
	}
	return t.active, true
}

// PointerDown presses the pointer at (x, y). It returns false if nothing
// draggable is there or the entity is busy. A press while a gesture is
// already in progress is ignored.
func (t *Tracker) PointerDown(x, y int) bool {
	if t.phase != phaseIdle {
		return false
	}

	target, ok := t.hit.HitTest(x, y)
	if !ok || target.ID == "" {
		return false
	}
	if t.busy != nil && t.busy(target.ID) {
		return false
	}

	t.active = Handle{Kind: target.Kind, ID: target.ID, Container: target.Container}
	t.originX, t.originY = x, y
	t.phase = phasePressed
	return true
}

// PointerMove moves the pointer. The first move that reaches the threshold
// distance from the press point emits Start.
func (t *Tracker) PointerMove(x, y int) (Start, bool) {
	if t.phase != phasePressed {
		return Start{}, false
	}

	dx, dy := x-t.originX, y-t.originY
	if dx*dx+dy*dy < t.threshold*t.threshold {
		return Start{}, false
	}

	t.phase = phaseDragging
	return Start{Active: t.active}, true
}

// PointerUp lifts the pointer at (x, y) and ends the gesture.
func (t *Tracker) PointerUp(x, y int) Release {
	defer t.reset()

	switch t.phase {
	case phasePressed:
		click := t.active
		return Release{Click: &click}
	case phaseDragging:
		end := End{Active: t.active}
		if target, ok := t.hit.HitTest(x, y); ok {
			if payload, ok := t.resolver.Resolve(t.active, target); ok {
				end.Over = &target
				end.Payload = &payload
			}
		}
		return Release{End: &end}
	}
	return Release{}
}

// Cancel aborts the gesture. A drag in progress ends with no drop target.
func (t *Tracker) Cancel() (End, bool) {
	defer t.reset()

	if t.phase != phaseDragging {
		return End{}, false
	}
	return End{Active: t.active}, true
}

func (t *Tracker) reset() {
	t.phase = phaseIdle
	t.active = Handle{}
}
