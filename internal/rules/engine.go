package rules

import "errors"

// ErrIllegalMove is returned when a proposed move is rejected for the
// current position.
var ErrIllegalMove = errors.New("invalid move")

// Result is the outcome of a successfully applied move.
type Result struct {
	// Position is the descriptor of the board after the move.
	Position string
	// Notation is the normalized form of the move that was applied.
	Notation string
}

// Engine validates moves against a position descriptor and answers
// terminal-state queries. Position descriptors are opaque to callers; only
// an Engine implementation interprets them.
type Engine interface {
	// Apply validates move against position and returns the new position
	// plus the normalized notation, or ErrIllegalMove.
	Apply(position, move string) (Result, error)

	// Terminal reports whether position ends the game and with which
	// reason (e.g. "checkmate"). The reason is only used to label
	// outbound messages.
	Terminal(position string) (string, bool)
}
