package network

import (
	"sync"
	"time"
)

const memPipeBuffer = 256

type envelope struct {
	data []byte
	at   time.Time
}

// memConn is one end of an in-memory pipe. Messages are encoded like on
// the wire and become readable latency after they were written.
type memConn struct {
	in      <-chan envelope
	out     chan<- envelope
	latency time.Duration

	closed     chan struct{}
	peerClosed <-chan struct{}
	closeOnce  sync.Once
}

// MemPipe returns two connected in-memory Conns. Each message is delivered
// latency after it was written, in order.
func MemPipe(latency time.Duration) (Conn, Conn) {
	ab := make(chan envelope, memPipeBuffer)
	ba := make(chan envelope, memPipeBuffer)
	aClosed := make(chan struct{})
	bClosed := make(chan struct{})

	a := &memConn{in: ba, out: ab, latency: latency, closed: aClosed, peerClosed: bClosed}
	b := &memConn{in: ab, out: ba, latency: latency, closed: bClosed, peerClosed: aClosed}
	return a, b
}

func (c *memConn) ReadMessage() (Message, error) {
	var env envelope
	select {
	case env = <-c.in:
	default:
		select {
		case env = <-c.in:
		case <-c.closed:
			return Message{}, ErrClosed
		case <-c.peerClosed:
			// Deliver what the peer wrote before closing.
			select {
			case env = <-c.in:
			default:
				return Message{}, ErrClosed
			}
		}
	}

	if wait := time.Until(env.at); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-c.closed:
			timer.Stop()
			return Message{}, ErrClosed
		}
	}
	return Decode(env.data)
}

func (c *memConn) WriteMessage(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	env := envelope{data: data, at: time.Now().Add(c.latency)}

	select {
	case <-c.closed:
		return ErrClosed
	case <-c.peerClosed:
		return ErrClosed
	default:
	}

	select {
	case c.out <- env:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-c.peerClosed:
		return ErrClosed
	}
}

func (c *memConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}
