package core

// Action represents a semantic player action, abstracted from physical key presses.
type Action int

const (
	ActionNone    Action = iota
	ActionUp             // W, Up arrow - tilt up
	ActionDown           // S, Down arrow - tilt down
	ActionLeft           // A, Left arrow - tilt left
	ActionRight          // D, Right arrow - tilt right
	ActionConfirm        // Enter - dismiss popup
	ActionBack           // B, Escape - abort the session
	ActionQuit           // Q, Ctrl+C - exit
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionUp:
		return "Up"
	case ActionDown:
		return "Down"
	case ActionLeft:
		return "Left"
	case ActionRight:
		return "Right"
	case ActionConfirm:
		return "Confirm"
	case ActionBack:
		return "Back"
	case ActionQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// Tilt returns the unit direction a tilt action contributes to the input
// vector. Non-tilt actions return the zero vector.
func (a Action) Tilt() Vector {
	switch a {
	case ActionUp:
		return Vec(0, -1)
	case ActionDown:
		return Vec(0, 1)
	case ActionLeft:
		return Vec(-1, 0)
	case ActionRight:
		return Vec(1, 0)
	default:
		return Vector{}
	}
}
