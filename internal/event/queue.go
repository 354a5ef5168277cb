package event

import "errors"

// Queue is a FIFO ring buffer of pooled event handles. Insertion order is
// application order; the queue never reorders.
type Queue struct {
	buf  []Handle
	head int
	size int
}

// NewQueue creates a queue with room for capacity handles before growing.
func NewQueue(capacity int) *Queue {
	return &Queue{buf: make([]Handle, max(capacity, 1))}
}

// Push appends h to the back of the queue.
func (q *Queue) Push(h Handle) {
	if q.size == len(q.buf) {
		q.resize(len(q.buf) * 2)
	}
	q.buf[(q.head+q.size)%len(q.buf)] = h
	q.size++
}

func (q *Queue) resize(n int) {
	buf := make([]Handle, n)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}

// Poll removes and returns the oldest handle. ok is false when empty.
func (q *Queue) Poll() (h Handle, ok bool) {
	if q.size == 0 {
		return Handle{}, false
	}
	h = q.buf[q.head]
	q.buf[q.head] = Handle{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return h, true
}

// Len returns the number of queued handles.
func (q *Queue) Len() int {
	return q.size
}

// Drain empties the queue, recycling every handle into p. It returns the
// number of handles drained; stale handles are reported in the joined error.
func (q *Queue) Drain(p *Pool) (int, error) {
	var errs []error
	n := 0
	for {
		h, ok := q.Poll()
		if !ok {
			break
		}
		n++
		if err := p.Recycle(h); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}
