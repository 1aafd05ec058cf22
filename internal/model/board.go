package model

import (
	"fmt"
	"sort"
)

// StartLayout is the standard initial position.
const StartLayout = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// Recorder receives every completed move applied to a Board.
type Recorder interface {
	Record(piece Piece, from, to Position, captured *Piece, promotion bool)
}

type pendingPromotion struct {
	from     Position
	at       Position
	captured *Piece
}

// Board is the 8x8 grid and the sole owner of all pieces. Board is not safe
// for concurrent use; Game serialises access to it.
type Board struct {
	grid      [8][8]*Piece
	selected  *Position
	promotion *pendingPromotion
	gameOver  bool
	winner    Color
	recorder  Recorder

	// UnderpromotedCastling leaves promoted pieces unmoved, so a rook
	// gained by promotion may castle.
	UnderpromotedCastling bool
}

// NewBoard returns a board in the initial position. recorder may be nil.
func NewBoard(recorder Recorder) *Board {
	b := &Board{recorder: recorder}
	b.Reset()
	return b
}

// Reset restores the initial position and clears all selection and game
// state.
func (b *Board) Reset() {
	if err := b.LoadLayout(StartLayout); err != nil {
		panic(fmt.Sprintf("start layout: %v", err))
	}
}

func (b *Board) at(pos Position) *Piece {
	if !pos.OnBoard() {
		return nil
	}
	return b.grid[pos.Y][pos.X]
}

func (b *Board) set(pos Position, piece *Piece) {
	b.grid[pos.Y][pos.X] = piece
}

// PieceAt implements BoardView.
func (b *Board) PieceAt(pos Position) (Piece, bool) {
	piece := b.at(pos)
	if piece == nil {
		return Piece{}, false
	}
	return piece.snapshot(), true
}

// Pieces implements BoardView with a linear scan of the grid.
func (b *Board) Pieces(kind PieceType, color Color) []Piece {
	pieces := []Piece{}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if piece := b.grid[y][x]; piece != nil && piece.Type == kind && piece.Color == color {
				pieces = append(pieces, piece.snapshot())
			}
		}
	}
	return pieces
}

// Squares returns a detached copy of the grid, indexed [y][x].
func (b *Board) Squares() [][]*Piece {
	squares := make([][]*Piece, 8)
	for y := 0; y < 8; y++ {
		squares[y] = make([]*Piece, 8)
		for x := 0; x < 8; x++ {
			if piece := b.grid[y][x]; piece != nil {
				cp := piece.snapshot()
				squares[y][x] = &cp
			}
		}
	}
	return squares
}

// Selected returns the square of the selected piece.
func (b *Board) Selected() (Position, bool) {
	if b.selected == nil {
		return NoPosition, false
	}
	return *b.selected, true
}

// PromotionPending reports whether a pawn waits on the last rank for
// ResolvePromotion, and where.
func (b *Board) PromotionPending() (Position, bool) {
	if b.promotion == nil {
		return NoPosition, false
	}
	return b.promotion.at, true
}

// GameOver reports whether a king has been captured and by which color.
func (b *Board) GameOver() (bool, Color) {
	return b.gameOver, b.winner
}

// SelectPiece selects the piece on pos if it belongs to color. Nothing
// changes when the square is empty or holds an opponent piece.
func (b *Board) SelectPiece(pos Position, color Color) bool {
	if b.gameOver || b.promotion != nil {
		return false
	}
	piece := b.at(pos)
	if piece == nil || piece.Color != color {
		return false
	}
	b.clearSelection()
	piece.Selected = true
	sel := pos
	b.selected = &sel
	return true
}

func (b *Board) clearSelection() {
	if b.selected == nil {
		return
	}
	if piece := b.at(*b.selected); piece != nil {
		piece.Selected = false
	}
	b.selected = nil
}

// AllowedMoves lists the squares the piece on pos may move to.
func (b *Board) AllowedMoves(pos Position) []Position {
	piece := b.at(pos)
	if piece == nil {
		return []Position{}
	}
	allowed := []Position{}
	for _, target := range piece.PseudoMoves(b) {
		if piece.IsMoveAllowed(b, target) {
			allowed = append(allowed, target)
		}
	}
	return allowed
}

// PlacePiece moves the selected piece to to. The move is applied
// completely or not at all; in both cases the selection is cleared.
func (b *Board) PlacePiece(to Position) bool {
	if b.selected == nil || b.promotion != nil || b.gameOver {
		return false
	}
	from := *b.selected
	piece := b.at(from)
	b.clearSelection()
	if piece == nil || to == from || !piece.Move(b, to) {
		return false
	}

	var captured *Piece
	landing := to
	if piece.CastlesWith != nil {
		rookFrom := *piece.CastlesWith
		dir := sign(rookFrom.X - from.X)
		rook := b.at(rookFrom)
		rookTo := Position{X: from.X + dir, Y: from.Y}
		landing = Position{X: from.X + 2*dir, Y: from.Y}
		b.set(from, nil)
		b.set(rookFrom, nil)
		rook.Position = rookTo
		rook.HasMoved = true
		b.set(rookTo, rook)
	} else {
		capturedAt := to
		if piece.CheckedEnPassant {
			capturedAt = Position{X: to.X, Y: from.Y}
		}
		captured = b.at(capturedAt)
		b.set(from, nil)
		b.set(capturedAt, nil)
	}
	piece.Position = landing
	piece.CheckedEnPassant = false
	b.set(landing, piece)

	if captured != nil && captured.Checkmate() {
		b.gameOver = true
		b.winner = piece.Color
	}

	if piece.promote {
		piece.promote = false
		b.promotion = &pendingPromotion{from: from, at: landing, captured: captured}
		return true
	}

	b.record(piece.snapshot(), from, to, captured, false)
	b.ResetEnPassant(piece.Color.Opponent())
	b.ResetCastles(piece.Color.Opponent())
	return true
}

// ResolvePromotion replaces the pawn waiting on the last rank with a new
// piece of the given kind.
func (b *Board) ResolvePromotion(kind PieceType) error {
	if b.promotion == nil {
		return ErrNoPromotionPending
	}
	switch kind {
	case Queen, Rook, Bishop, Knight:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPromotion, kind)
	}
	pending := b.promotion
	pawn := b.at(pending.at)
	promoted := NewPiece(kind, pawn.Color, pending.at)
	promoted.HasMoved = !b.UnderpromotedCastling
	b.set(pending.at, promoted)
	b.promotion = nil

	b.record(promoted.snapshot(), pending.from, pending.at, pending.captured, true)
	b.ResetEnPassant(promoted.Color.Opponent())
	b.ResetCastles(promoted.Color.Opponent())
	return nil
}

func (b *Board) record(piece Piece, from, to Position, captured *Piece, promotion bool) {
	if b.recorder == nil {
		return
	}
	var capturedCopy *Piece
	if captured != nil {
		cp := captured.snapshot()
		capturedCopy = &cp
	}
	b.recorder.Record(piece, from, to, capturedCopy, promotion)
}

// ResetEnPassant clears the en-passant flag of every pawn of color.
func (b *Board) ResetEnPassant(color Color) {
	b.each(func(piece *Piece) {
		if piece.Color == color {
			piece.EnPassant = false
		}
	})
}

// ResetCastles clears the castling marker of every piece of color.
func (b *Board) ResetCastles(color Color) {
	b.each(func(piece *Piece) {
		if piece.Color == color {
			piece.CastlesWith = nil
		}
	})
}

func (b *Board) each(fn func(piece *Piece)) {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if piece := b.grid[y][x]; piece != nil {
				fn(piece)
			}
		}
	}
}

// King returns the king of color. A board without that king during check
// evaluation is an engine bug, so King panics instead of returning an error.
func (b *Board) King(color Color) Piece {
	kings := b.Pieces(King, color)
	if len(kings) == 0 {
		panic(fmt.Sprintf("%v: no %s king on board %q", ErrMissingKing, color, b.Layout()))
	}
	return kings[0]
}

// HasKing reports whether color still has its king.
func (b *Board) HasKing(color Color) bool {
	return len(b.Pieces(King, color)) > 0
}

// Threatened returns every square the pieces of color could capture on
// with their next move, sorted. Pawn pushes and castling never capture and
// are left out.
func (b *Board) Threatened(color Color) []Position {
	seen := map[Position]struct{}{}
	b.each(func(piece *Piece) {
		if piece.Color != color {
			return
		}
		castles := piece.castleTargets(b)
		for _, target := range piece.PseudoMoves(b) {
			if piece.Type == Pawn && target.X == piece.Position.X {
				continue
			}
			if containsPosition(castles, target) {
				continue
			}
			if piece.IsMoveAllowed(b, target) {
				seen[target] = struct{}{}
			}
		}
	})
	threatened := make([]Position, 0, len(seen))
	for pos := range seen {
		threatened = append(threatened, pos)
	}
	sort.Slice(threatened, func(i, j int) bool { return threatened[i].Less(threatened[j]) })
	return threatened
}

// InCheck reports whether the king of color could be captured by the
// opponent's next move.
func (b *Board) InCheck(color Color) bool {
	king := b.King(color)
	return containsPosition(b.Threatened(color.Opponent()), king.Position)
}

// Clone returns a deep copy of the board without its recorder.
func (b *Board) Clone() *Board {
	clone := &Board{
		UnderpromotedCastling: b.UnderpromotedCastling,
		gameOver:              b.gameOver,
		winner:                b.winner,
	}
	b.each(func(piece *Piece) {
		cp := piece.snapshot()
		clone.set(cp.Position, &cp)
	})
	if b.selected != nil {
		sel := *b.selected
		clone.selected = &sel
	}
	if b.promotion != nil {
		pending := *b.promotion
		if pending.captured != nil {
			cp := pending.captured.snapshot()
			pending.captured = &cp
		}
		clone.promotion = &pending
	}
	return clone
}
