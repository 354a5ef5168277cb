package tui

import (
	"strings"
	"testing"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/sim"
)

func TestArenaCell(t *testing.T) {
	arena := core.Vec(40, 20)
	tests := []struct {
		pos    core.Vector
		x, y   int
		inside bool
	}{
		{core.Vec(0, 0), 0, 0, true},
		{core.Vec(40, 20), 19, 7, true},
		{core.Vec(20, 10), 10, 4, true},
		{core.Vec(-1, 10), 0, 0, false},
		{core.Vec(20, 21), 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := arenaCell(tt.pos, arena, 20, 8)
		if ok != tt.inside || (ok && (x != tt.x || y != tt.y)) {
			t.Errorf("arenaCell(%+v) = %d,%d,%v want %d,%d,%v", tt.pos, x, y, ok, tt.x, tt.y, tt.inside)
		}
	}
}

func TestDrawArena(t *testing.T) {
	world := sim.NewState(sim.DefaultPhysics(), nil)
	world.SetArena(core.Vec(40, 20))
	if err := world.Spawn(sim.Object{ID: 1, Pos: core.Vec(20, 10)}); err != nil {
		t.Fatal(err)
	}
	if err := world.Spawn(sim.Object{ID: 2, Pos: core.Vec(0, 0), Color: 1}); err != nil {
		t.Fatal(err)
	}

	scr := core.NewScreen(22, 10)
	drawArena(scr, world, 1)

	if got := scr.Get(0, 0); got != '┌' {
		t.Errorf("corner = %q", got)
	}
	if got := scr.Get(11, 5); got != '◉' {
		t.Errorf("own ball cell = %q\n%s", got, scr.String())
	}
	cell := scr.GetCell(1, 1)
	if cell.Rune != '●' || cell.Color != core.PlayerColor(1) {
		t.Errorf("opponent cell = %+v", cell)
	}
}

func TestDrawPopup(t *testing.T) {
	scr := core.NewScreen(40, 12)
	drawPopup(scr, "Error", []string{"The connection", "was lost."}, core.ColorRed)

	out := scr.String()
	for _, want := range []string{" Error ", "The connection", "was lost."} {
		if !strings.Contains(out, want) {
			t.Errorf("popup missing %q:\n%s", want, out)
		}
	}
}
