package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/health"
)

// ClientConfig tunes the client side of a connection.
type ClientConfig struct {
	InboundBuffer  int           // Authoritative updates queued before the reader waits
	OutboundBuffer int           // Inputs queued before SendInput reports a send error
	JoinTimeout    time.Duration // Limit for the Join/Welcome handshake
	Logger         *log.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		InboundBuffer:  64,
		OutboundBuffer: 16,
		JoinTimeout:    5 * time.Second,
	}
}

// Client is the non-blocking client end of a game connection. Background
// goroutines move messages between the Conn and buffered channels; the
// tick goroutine only ever polls.
type Client struct {
	conn   Conn
	cfg    ClientConfig
	logger *log.Logger

	identity string

	mu      sync.Mutex
	peers   []event.PeerInfo
	lastErr *health.Signal

	inbound  chan []event.Event
	outbound chan core.Vector
	pending  []event.Event // owned by the tick goroutine

	closing   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to a websocket server and joins as name. Failures are
// returned as *health.Signal: ConnectError when the connection cannot be
// established, JoinError when the handshake fails.
func Dial(ctx context.Context, url, name string, cfg ClientConfig) (*Client, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, health.NewSignal(health.ConnectError, err)
	}
	return Join(ctx, NewWSConn(ws), name, cfg)
}

// Join performs the handshake on an established connection and starts the
// background reader and writer. On failure conn is closed.
func Join(ctx context.Context, conn Conn, name string, cfg ClientConfig) (*Client, error) {
	def := DefaultClientConfig()
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = def.InboundBuffer
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = def.OutboundBuffer
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = def.JoinTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	if err := conn.WriteMessage(Message{Type: MsgJoin, Name: name}); err != nil {
		conn.Close()
		return nil, health.NewSignal(health.JoinError, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.JoinTimeout)
	defer cancel()

	welcome, err := readContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, health.NewSignal(health.JoinError, err)
	}
	if welcome.Type != MsgWelcome || welcome.Identity == "" {
		conn.Close()
		reason := welcome.Reason
		if reason == "" {
			reason = "expected welcome, got " + welcome.Type.String()
		}
		return nil, health.NewSignal(health.JoinError, errors.New(reason))
	}

	c := &Client{
		conn:     conn,
		cfg:      cfg,
		logger:   cfg.Logger,
		identity: welcome.Identity,
		peers:    welcome.Peers,
		inbound:  make(chan []event.Event, cfg.InboundBuffer),
		outbound: make(chan core.Vector, cfg.OutboundBuffer),
		done:     make(chan struct{}),
	}
	c.logger.Info("joined", "identity", c.identity)

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

// readContext reads one message, giving up when ctx ends. The connection is
// closed on timeout so the blocked reader returns.
func readContext(ctx context.Context, conn Conn) (Message, error) {
	type result struct {
		msg Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := conn.ReadMessage()
		ch <- result{m, err}
	}()

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		conn.Close()
		return Message{}, fmt.Errorf("network: handshake: %w", ctx.Err())
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() {
				c.fail(health.NewSignal(health.TransportException, err))
			}
			return
		}

		switch msg.Type {
		case MsgEvents:
			if msg.Peers != nil {
				c.mu.Lock()
				c.peers = msg.Peers
				c.mu.Unlock()
			}
			select {
			case c.inbound <- msg.Events:
			case <-c.done:
				return
			}
		case MsgBye:
			reason := msg.Reason
			if reason == "" {
				reason = "server closed the session"
			}
			c.fail(health.NewSignal(health.TransportException, errors.New(reason)))
			return
		default:
			c.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case v := <-c.outbound:
			if err := c.conn.WriteMessage(Message{Type: MsgInput, Input: v}); err != nil {
				if !c.closing.Load() {
					c.fail(health.NewSignal(health.SendError, err))
				}
				return
			}
		case <-c.done:
			return
		}
	}
}

// fail records the first transport failure.
func (c *Client) fail(sig *health.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		c.lastErr = sig
		c.logger.Warn("connection failed", "kind", sig.Kind, "error", sig.Detail)
	}
}

// SendInput queues v for the server. It never blocks; a full queue is
// recorded as a send error.
func (c *Client) SendInput(v core.Vector) {
	select {
	case c.outbound <- v:
	default:
		c.fail(health.NewSignal(health.SendError, errors.New("outbound queue full")))
	}
}

// PollReceive moves every update that arrived since the last call into
// the pending set.
func (c *Client) PollReceive() {
	for {
		select {
		case batch := <-c.inbound:
			c.pending = append(c.pending, batch...)
		default:
			return
		}
	}
}

// HasPendingEvents reports whether PollReceive found any events.
func (c *Client) HasPendingEvents() bool {
	return len(c.pending) > 0
}

// NextEvent acquires the oldest pending event from pool.
func (c *Client) NextEvent(pool *event.Pool) (event.Handle, bool) {
	if len(c.pending) == 0 {
		return event.Handle{}, false
	}
	h := pool.Acquire(c.pending[0])
	c.pending[0] = event.Event{}
	c.pending = c.pending[1:]
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return h, true
}

// LastError returns the first transport failure, or nil.
func (c *Client) LastError() *health.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// OwnIdentity returns the unique name assigned by the server.
func (c *Client) OwnIdentity() (string, bool) {
	return c.identity, c.identity != ""
}

// ConnectedPeers returns the participants of the current match.
func (c *Client) ConnectedPeers() []event.PeerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.PeerInfo, len(c.peers))
	copy(out, c.peers)
	return out
}

// Close says goodbye, closes the connection and waits for the background
// goroutines. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)
		_ = c.conn.WriteMessage(Message{Type: MsgBye})
		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}
