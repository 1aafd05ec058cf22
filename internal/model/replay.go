package model

import (
	"github.com/pkg/errors"
)

// ReplayTurns drives a fresh board loaded with layout through the given
// turns, selecting and placing each piece as a player would. It returns the
// resulting board and the history it recorded.
func ReplayTurns(layout string, turns []Turn) (*Board, *History, error) {
	history := NewHistory()
	board := NewBoard(history)
	if err := board.LoadLayout(layout); err != nil {
		return nil, nil, err
	}
	for i, turn := range turns {
		if !board.SelectPiece(turn.Start, turn.Piece.Color) {
			return nil, nil, errors.Wrapf(ErrIllegalMove, "turn %d: cannot select %s on %s", i+1, turn.Piece.Color, turn.Start)
		}
		if !board.PlacePiece(turn.End) {
			return nil, nil, errors.Wrapf(ErrIllegalMove, "turn %d: %s to %s rejected", i+1, turn.Start, turn.End)
		}
		if !turn.IsPromotion {
			continue
		}
		if err := board.ResolvePromotion(turn.Piece.Type); err != nil {
			return nil, nil, errors.Wrapf(err, "turn %d", i+1)
		}
	}
	return board, history, nil
}
