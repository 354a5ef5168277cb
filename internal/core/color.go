package core

// Color represents a foreground color for a screen cell.
type Color uint8

// Predefined colors. Player colors cycle through PlayerColors.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorOrange
	ColorGray
)

// PlayerColors lists the colors assigned to players by color index.
var PlayerColors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorMagenta, ColorCyan, ColorOrange}

// PlayerColor returns the color for a player color index.
func PlayerColor(index int) Color {
	if index < 0 {
		return ColorWhite
	}
	return PlayerColors[index%len(PlayerColors)]
}
