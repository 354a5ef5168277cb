package network

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/core"
)

// peer is a connected human on the server side. Messages to it go through
// a buffered channel drained by its own writer goroutine.
type peer struct {
	name string
	conn Conn
	out  chan Message

	done      chan struct{}
	closeOnce sync.Once
}

type playerInput struct {
	peer  *peer
	input core.Vector
}

func newPeer(name string, conn Conn, buffer int) *peer {
	if buffer < 1 {
		buffer = 64 // Default buffer size
	}
	return &peer{
		name: name,
		conn: conn,
		out:  make(chan Message, buffer),
		done: make(chan struct{}),
	}
}

// send queues m without blocking. It reports false when the peer is gone
// or too slow to keep up.
func (p *peer) send(m Message) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.out <- m:
		return true
	default:
		return false
	}
}

func (p *peer) writeLoop(logger *log.Logger) {
	for {
		select {
		case m := <-p.out:
			if err := p.conn.WriteMessage(m); err != nil {
				logger.Debug("write failed", "peer", p.name, "error", err)
				p.close()
				return
			}
		case <-p.done:
			return
		}
	}
}

// bye writes a final Bye directly, bypassing the queue, and closes.
func (p *peer) bye(reason string) {
	_ = p.conn.WriteMessage(Message{Type: MsgBye, Reason: reason})
	p.close()
}

// close stops the writer and closes the connection. Safe to call more than once.
func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}
