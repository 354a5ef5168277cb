package netcode

import (
	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// Sampler is the non-blocking view of the input source.
type Sampler interface {
	Sample() core.Vector
}

// Sender forwards local input to the server without blocking.
type Sender interface {
	SendInput(v core.Vector)
}

// Inbound is the non-blocking view of the inbound authoritative stream.
type Inbound interface {
	// PollReceive moves whatever arrived since the last call into the
	// pending set.
	PollReceive()
	HasPendingEvents() bool
	// NextEvent acquires the next pending event from pool. The caller owns
	// the handle and must recycle it.
	NextEvent(pool *event.Pool) (event.Handle, bool)
}

// QueueSink stores generated events in a pooled queue.
type QueueSink struct {
	pool  *event.Pool
	queue *event.Queue
}

var _ sim.Sink = (*QueueSink)(nil)

// NewQueueSink creates a sink that pushes into queue using pool.
func NewQueueSink(pool *event.Pool, queue *event.Queue) *QueueSink {
	return &QueueSink{pool: pool, queue: queue}
}

// Emit acquires a pooled copy of e and queues it.
func (s *QueueSink) Emit(e event.Event) {
	s.queue.Push(s.pool.Acquire(e))
}
