// Package event defines the discrete game-state mutations exchanged between
// the authoritative server and clients, together with the pool and queue used
// to move them through the tick loop without per-tick allocation.
package event

import "github.com/vovakirdan/clash/internal/core"

// ObjectID identifies a simulation object. IDs are small, unique and stable
// for the lifetime of a session.
type ObjectID uint16

// Kind tags the variant carried by an Event.
type Kind uint8

const (
	KindNone      Kind = iota
	KindSpawn          // Object enters the arena
	KindMove           // Authoritative position/velocity of an object
	KindImpact         // Two objects collided; Value is the impulse
	KindRemove         // Object dies and is removed
	KindGameInfo       // Arena size and player list
	KindGameStart      // Live play begins
	KindGameEnd        // Round is over; Object is the winner (0 = none)
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSpawn:
		return "spawn"
	case KindMove:
		return "move"
	case KindImpact:
		return "impact"
	case KindRemove:
		return "remove"
	case KindGameInfo:
		return "game_info"
	case KindGameStart:
		return "game_start"
	case KindGameEnd:
		return "game_end"
	default:
		return "unknown"
	}
}

// ObjectType distinguishes what a spawned object is.
type ObjectType uint8

const (
	ObjectPlayer ObjectType = iota
	ObjectObstacle
)

// PlayerInfo describes one participant in a GameInfo event.
type PlayerInfo struct {
	ID         ObjectID    `msgpack:"id"`
	UniqueName string      `msgpack:"name"`
	Color      int         `msgpack:"color"`
	Pos        core.Vector `msgpack:"pos"`
}

// Event is a single game-state mutation. Which fields are meaningful depends
// on Kind; unused fields are zero.
type Event struct {
	Kind    Kind         `msgpack:"k"`
	Object  ObjectID     `msgpack:"o"`
	Other   ObjectID     `msgpack:"x,omitempty"`
	Type    ObjectType   `msgpack:"t,omitempty"`
	Pos     core.Vector  `msgpack:"p"`
	Vel     core.Vector  `msgpack:"v"`
	Value   float64      `msgpack:"val,omitempty"`
	Arena   core.Vector  `msgpack:"a,omitempty"`
	Players []PlayerInfo `msgpack:"pl,omitempty"`
}

// reset clears e for reuse, keeping the Players backing array.
func (e *Event) reset() {
	players := e.Players[:0]
	*e = Event{Players: players}
}

// CopyFrom overwrites e with src. The Players slice is copied into e's own
// backing array so the pooled event never aliases caller memory.
func (e *Event) CopyFrom(src Event) {
	players := append(e.Players[:0], src.Players...)
	*e = src
	e.Players = players
}

// PeerInfo describes a connected participant as reported by the transport.
type PeerInfo struct {
	UniqueName string   `msgpack:"name"`
	ID         ObjectID `msgpack:"id"` // 0 until bound by GameInfo
}
