package rules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartingPosition is the canonical initial chess position in FEN.
const StartingPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ChessEngine implements Engine on top of the notnil/chess move generator.
// Position descriptors are FEN strings. Move input may be SAN ("Nf3") or
// coordinate form ("g1f3"); the returned notation is always SAN.
type ChessEngine struct{}

func NewChessEngine() *ChessEngine {
	return &ChessEngine{}
}

func (e *ChessEngine) Apply(position, move string) (Result, error) {
	game, err := load(position)
	if err != nil {
		return Result{}, err
	}

	pos := game.Position()
	mv, err := decode(pos, strings.TrimSpace(move))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}

	// Encode against the pre-move position so the notation carries
	// check/mate suffixes.
	san := chess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.Move(mv); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}

	return Result{
		Position: game.Position().String(),
		Notation: san,
	}, nil
}

func (e *ChessEngine) Terminal(position string) (string, bool) {
	game, err := load(position)
	if err != nil {
		return "", false
	}

	switch game.Position().Status() {
	case chess.Checkmate:
		return "checkmate", true
	case chess.Stalemate:
		return "stalemate", true
	}

	if insufficientMaterial(game.Position().Board()) {
		return "insufficient material", true
	}
	return "", false
}

func load(position string) (*chess.Game, error) {
	fen, err := chess.FEN(strings.TrimSpace(position))
	if err != nil {
		return nil, fmt.Errorf("bad position %q: %w", position, err)
	}
	return chess.NewGame(fen), nil
}

// decode tries SAN first, then falls back to coordinate (UCI) input, the
// same leniency chess clients expect from a server.
func decode(pos *chess.Position, move string) (*chess.Move, error) {
	if mv, err := (chess.AlgebraicNotation{}).Decode(pos, move); err == nil {
		return mv, nil
	}
	return chess.UCINotation{}.Decode(pos, move)
}

// insufficientMaterial covers the dead positions K vs K, KB vs K and
// KN vs K. Anything with a pawn, rook, queen or two minor pieces is left
// for the players to decide.
func insufficientMaterial(b *chess.Board) bool {
	minors := 0
	for _, piece := range b.SquareMap() {
		switch piece.Type() {
		case chess.King:
		case chess.Bishop, chess.Knight:
			minors++
		default:
			return false
		}
	}
	return minors <= 1
}
