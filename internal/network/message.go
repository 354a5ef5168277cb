// Package network carries the authoritative event stream between the
// server and its clients. Messages are msgpack encoded and travel over a
// Conn: a websocket in production, an in-memory pipe in tests and local play.
package network

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
)

// MessageType identifies a wire message.
type MessageType uint8

const (
	MsgJoin    MessageType = iota + 1 // client -> server: request to play
	MsgWelcome                        // server -> client: join accepted, identity assigned
	MsgEvents                         // server -> client: one authoritative update
	MsgInput                          // client -> server: sampled tilt
	MsgBye                            // either way: orderly shutdown
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MsgJoin:
		return "join"
	case MsgWelcome:
		return "welcome"
	case MsgEvents:
		return "events"
	case MsgInput:
		return "input"
	case MsgBye:
		return "bye"
	default:
		return fmt.Sprintf("message(%d)", uint8(t))
	}
}

// Message is the single wire envelope. Which fields are set depends on Type.
type Message struct {
	Type     MessageType      `msgpack:"t"`
	Name     string           `msgpack:"n,omitempty"`
	Identity string           `msgpack:"id,omitempty"`
	Peers    []event.PeerInfo `msgpack:"peers,omitempty"`
	Events   []event.Event    `msgpack:"ev,omitempty"`
	Input    core.Vector      `msgpack:"in"`
	Tick     uint64           `msgpack:"tick,omitempty"`
	Reason   string           `msgpack:"r,omitempty"`
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("network: encode %s: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("network: decode: %w", err)
	}
	if m.Type < MsgJoin || m.Type > MsgBye {
		return Message{}, fmt.Errorf("network: decode: unknown message type %d", m.Type)
	}
	return m, nil
}
