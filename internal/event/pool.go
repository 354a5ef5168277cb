package event

import "errors"

// ErrStaleHandle is returned when a handle is used after it was recycled,
// including a second Recycle of the same handle.
var ErrStaleHandle = errors.New("event: stale handle")

// Handle is an exclusive claim on one pooled Event. It is only valid between
// Acquire and Recycle; each recycle bumps the slot generation so every copy
// of an old handle is rejected afterwards. The zero Handle is never valid.
type Handle struct {
	index int32
	gen   uint32
}

type slot struct {
	ev   Event
	gen  uint32
	live bool
}

// Pool is an arena of reusable events with a free-index stack.
// It is not safe for concurrent use; it belongs to the tick goroutine.
type Pool struct {
	slots []*slot
	free  []int32
	inUse int
}

// NewPool creates a pool with capacity preallocated free slots.
func NewPool(capacity int) *Pool {
	p := &Pool{}
	p.grow(max(capacity, 1))
	return p
}

func (p *Pool) grow(n int) {
	for i := 0; i < n; i++ {
		idx := int32(len(p.slots)) //nolint:gosec // pool size stays far below MaxInt32
		p.slots = append(p.slots, &slot{gen: 1})
		p.free = append(p.free, idx)
	}
}

// Acquire takes a free slot, growing the arena when none is left, fills it
// with e and returns the handle owning it. It never blocks.
func (p *Pool) Acquire(e Event) Handle {
	if len(p.free) == 0 {
		p.grow(len(p.slots))
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	s := p.slots[idx]
	s.live = true
	s.ev.CopyFrom(e)
	p.inUse++
	return Handle{index: idx, gen: s.gen}
}

func (p *Pool) lookup(h Handle) (*slot, error) {
	if h.index < 0 || int(h.index) >= len(p.slots) {
		return nil, ErrStaleHandle
	}
	s := p.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, ErrStaleHandle
	}
	return s, nil
}

// Get returns the event owned by h. The pointer must not be retained past
// Recycle(h).
func (p *Pool) Get(h Handle) (*Event, error) {
	s, err := p.lookup(h)
	if err != nil {
		return nil, err
	}
	return &s.ev, nil
}

// Recycle returns the slot owned by h to the pool. Recycling a handle twice
// is rejected with ErrStaleHandle and leaves the pool unchanged.
func (p *Pool) Recycle(h Handle) error {
	s, err := p.lookup(h)
	if err != nil {
		return err
	}
	s.ev.reset()
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	p.free = append(p.free, h.index)
	p.inUse--
	return nil
}

// Free returns the number of free slots.
func (p *Pool) Free() int {
	return len(p.free)
}

// Cap returns the total number of slots.
func (p *Pool) Cap() int {
	return len(p.slots)
}

// InUse returns the number of acquired, not yet recycled events.
func (p *Pool) InUse() int {
	return p.inUse
}
