package network

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// botBaseAggression is the tilt of a bot at difficulty level 0.
const botBaseAggression = 0.6

// matchPlayer is one participant of a match, human or bot.
type matchPlayer struct {
	id   event.ObjectID
	name string
	peer *peer // nil for bots and for humans who left
	bot  *bot
	left bool
}

// match is a single round owned by the server's Run goroutine.
type match struct {
	id      string
	world   *sim.State
	players []*matchPlayer
	peers   []event.PeerInfo

	countdown    int // Updates left before GameStart
	running      bool
	ticks        uint64
	eliminations int
	started      time.Time

	generated []event.Event
}

func newMatch(s *Server, humans []*peer, seed uint64) *match {
	m := &match{id: generateMatchID()}
	m.world = sim.NewState(s.cfg.Physics, sim.SinkFunc(func(e event.Event) {
		m.generated = append(m.generated, e)
	}))

	total := min(max(len(humans), s.cfg.MinPlayers), s.cfg.MaxPlayers)
	taken := make(map[string]bool, total)
	for i, p := range humans {
		m.players = append(m.players, &matchPlayer{id: event.ObjectID(i + 1), name: p.name, peer: p})
		taken[p.name] = true
	}
	for n := 1; len(m.players) < total; n++ {
		name := fmt.Sprintf("bot-%d", n)
		if taken[name] {
			continue
		}
		id := event.ObjectID(len(m.players) + 1)
		m.players = append(m.players, &matchPlayer{id: id, name: name, bot: newBot(seed + uint64(id))})
	}

	info := event.Event{Kind: event.KindGameInfo, Arena: s.cfg.Arena}
	center := s.cfg.Arena.Scale(0.5)
	radius := math.Min(s.cfg.Arena.X, s.cfg.Arena.Y) * 0.3
	for i, mp := range m.players {
		angle := 2 * math.Pi * float64(i) / float64(len(m.players))
		pos := center.Add(core.Vec(math.Cos(angle), math.Sin(angle)).Scale(radius))
		info.Players = append(info.Players, event.PlayerInfo{
			ID:         mp.id,
			UniqueName: mp.name,
			Color:      i,
			Pos:        pos,
		})
		m.peers = append(m.peers, event.PeerInfo{UniqueName: mp.name, ID: mp.id})
	}
	if _, err := m.world.Apply(&info); err != nil {
		s.logger.Error("spawning players", "match", m.id, "error", err)
	}

	m.countdown = max(1, int((s.cfg.WaitToStart+s.cfg.UpdateInterval-1)/s.cfg.UpdateInterval))

	m.broadcast(s, Message{Type: MsgEvents, Events: []event.Event{info}, Peers: m.peers})
	return m
}

// generateMatchID creates an 8-character base32 identifier.
func generateMatchID() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return strings.ToUpper(base32.StdEncoding.EncodeToString(b))
}

func (m *match) broadcast(s *Server, msg Message) {
	for _, mp := range m.players {
		if mp.peer != nil {
			s.broadcast(mp.peer, msg)
		}
	}
}

func (m *match) humans() int {
	n := 0
	for _, mp := range m.players {
		if mp.peer != nil {
			n++
		}
	}
	return n
}

// setInput stores the latest tilt of p. It persists until the next input.
// A rejected input leaves the previous one in place.
func (m *match) setInput(p *peer, v core.Vector) error {
	for _, mp := range m.players {
		if mp.peer == p {
			return m.world.SetInput(mp.id, v)
		}
	}
	return nil
}

// leave detaches p. Its ball is removed on the next update.
func (m *match) leave(p *peer) {
	for _, mp := range m.players {
		if mp.peer == p {
			mp.peer = nil
			mp.left = true
			return
		}
	}
}

// step runs one authoritative update and broadcasts its events. It reports
// the result once the match is over.
func (m *match) step(s *Server) (MatchResult, bool) {
	if !m.running {
		if m.humans() == 0 {
			return m.result(MatchEndAbandoned, ""), true
		}
		m.countdown--
		if m.countdown > 0 {
			return MatchResult{}, false
		}
		m.running = true
		m.started = time.Now()
		m.broadcast(s, Message{Type: MsgEvents, Events: []event.Event{{Kind: event.KindGameStart}}})
		return MatchResult{}, false
	}

	m.ticks++
	m.driveBots(s)

	m.generated = m.generated[:0]
	m.world.Step(s.cfg.UpdateInterval)

	out := make([]event.Event, 0, len(m.generated)+m.world.Len()+1)
	for _, e := range m.generated {
		if _, err := m.world.Apply(&e); err != nil {
			s.logger.Warn("applying generated event", "match", m.id, "kind", e.Kind, "error", err)
			continue
		}
		out = append(out, e)
	}
	for _, mp := range m.players {
		if !mp.left {
			continue
		}
		if o, ok := m.world.Object(mp.id); ok && !o.Dead {
			e := event.Event{Kind: event.KindRemove, Object: mp.id, Pos: o.Pos}
			if _, err := m.world.Apply(&e); err == nil {
				out = append(out, e)
			}
		}
	}
	m.eliminations += len(m.world.RemoveDead())

	for _, o := range m.world.Objects() {
		out = append(out, event.Event{Kind: event.KindMove, Object: o.ID, Pos: o.Pos, Vel: o.Vel})
	}

	alive := m.world.Alive()
	humans := m.humans()
	if len(alive) > 1 && humans > 0 {
		m.broadcast(s, Message{Type: MsgEvents, Events: out})
		return MatchResult{}, false
	}

	var winner event.ObjectID
	if len(alive) == 1 {
		winner = alive[0]
	}
	out = append(out, event.Event{Kind: event.KindGameEnd, Object: winner})
	m.broadcast(s, Message{Type: MsgEvents, Events: out})

	reason := MatchEndCompleted
	if humans == 0 {
		reason = MatchEndAbandoned
	}
	return m.result(reason, m.nameOf(winner)), true
}

func (m *match) driveBots(s *Server) {
	ticks := int(m.ticks)
	aggression := s.difficulty.Aggression(botBaseAggression, m.eliminations, ticks)
	reaction := s.difficulty.ReactionTicks(m.eliminations, ticks)
	for _, mp := range m.players {
		if mp.bot == nil {
			continue
		}
		o, ok := m.world.Object(mp.id)
		if !ok || o.Dead {
			continue
		}
		_ = m.world.SetInput(mp.id, mp.bot.decide(o, m.world, aggression, reaction))
	}
}

func (m *match) nameOf(id event.ObjectID) string {
	if id == 0 {
		return ""
	}
	for _, mp := range m.players {
		if mp.id == id {
			return mp.name
		}
	}
	return ""
}

func (m *match) result(reason MatchEndReason, winner string) MatchResult {
	var d time.Duration
	if m.running {
		d = time.Since(m.started)
	}
	return MatchResult{
		MatchID:  m.id,
		Players:  len(m.players),
		Winner:   winner,
		Reason:   reason,
		Ticks:    m.ticks,
		Duration: d,
	}
}
