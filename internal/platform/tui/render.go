package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// statusLines is the number of terminal rows below the arena screen.
const statusLines = 2

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault: lipgloss.NewStyle(),
	core.ColorRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	core.ColorMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	core.ColorCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	core.ColorWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	core.ColorOrange:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	core.ColorGray:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// arenaCell maps a world position to a cell inside a w x h interior.
// ok is false for positions outside the arena.
func arenaCell(pos, arena core.Vector, w, h int) (x, y int, ok bool) {
	if arena.X <= 0 || arena.Y <= 0 || w < 1 || h < 1 {
		return 0, 0, false
	}
	if pos.X < 0 || pos.Y < 0 || pos.X > arena.X || pos.Y > arena.Y {
		return 0, 0, false
	}
	x = int(pos.X/arena.X*float64(w-1) + 0.5)
	y = int(pos.Y/arena.Y*float64(h-1) + 0.5)
	return x, y, true
}

// drawArena draws the arena border and every object.
func drawArena(scr *core.Screen, world *sim.State, own event.ObjectID) {
	bw, bh := scr.Width(), scr.Height()
	if bw < 3 || bh < 3 {
		return
	}
	scr.DrawBox(0, 0, bw, bh, core.ColorGray)

	arena := world.Arena()
	if arena.IsZero() {
		scr.DrawTextCentered(bh/2, "Waiting for players...", core.ColorGray)
		return
	}

	for _, o := range world.Objects() {
		x, y, ok := arenaCell(o.Pos, arena, bw-2, bh-2)
		if !ok {
			continue
		}
		r := '●'
		switch {
		case o.Dead && o.Anim < 0.5:
			r = '*'
		case o.Dead:
			r = '+'
		case o.ID == own:
			r = '◉'
		}
		scr.SetColored(x+1, y+1, r, core.PlayerColor(o.Color))
	}
}

// drawPopup draws a framed box with a title in the middle of the arena.
func drawPopup(scr *core.Screen, title string, lines []string, c core.Color) {
	width := len([]rune(title)) + 6
	for _, l := range lines {
		width = max(width, len([]rune(l))+4)
	}
	height := len(lines) + 4
	x := (scr.Width() - width) / 2
	y := (scr.Height() - height) / 2

	for j := y; j < y+height; j++ {
		for i := x; i < x+width; i++ {
			scr.Set(i, j, ' ')
		}
	}
	scr.DrawBox(x, y, width, height, c)
	scr.DrawText(x+2, y, " "+title+" ", c)
	for i, l := range lines {
		scr.DrawText(x+(width-len([]rune(l)))/2, y+2+i, l, core.ColorWhite)
	}
}
