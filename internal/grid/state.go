package grid

// CellState is the display state of one (court, column) cell.
type CellState int

const (
	Available CellState = iota
	Selected
	Occupied
	Blocked
	// Unblock marks cells freed by an unblock command, until the next refresh.
	Unblock
	// Unbook marks cells freed by cancelling a raw booking, until the next refresh.
	Unbook
	// Cancelled marks cells freed by cancelling a game, until the next refresh.
	Cancelled
)

var stateNames = [...]string{
	Available: "available",
	Selected:  "selected",
	Occupied:  "occupied",
	Blocked:   "blocked",
	Unblock:   "unblock",
	Unbook:    "unbook",
	Cancelled: "cancelled",
}

func (s CellState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsExisting reports whether the cell holds an existing booking or block.
func (s CellState) IsExisting() bool {
	return s == Occupied || s == Blocked
}

// IsBookable reports whether the cell can be part of a new booking.
// Terminal action states select like available cells.
func (s CellState) IsBookable() bool {
	switch s {
	case Available, Unblock, Unbook, Cancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is set by a completed command.
func (s CellState) IsTerminal() bool {
	return s == Unblock || s == Unbook || s == Cancelled
}

// Action is an operator action offered for a selection.
type Action int

const (
	ActionBook Action = iota
	ActionBlock
	ActionUnblock
	ActionUnbook
	ActionMove
	ActionDetails
	ActionMarkHandled
)

var actionNames = [...]string{
	ActionBook:        "book",
	ActionBlock:       "block",
	ActionUnblock:     "unblock",
	ActionUnbook:      "unbook",
	ActionMove:        "move",
	ActionDetails:     "details",
	ActionMarkHandled: "mark handled",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}
