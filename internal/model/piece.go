package model

import (
	"fmt"
	"strings"
)

type PieceType string

func (p PieceType) getPieceNotation() string {
	switch p {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	case Pawn:
		return "P"
	}
	return ""
}

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

// ParsePieceType accepts either the full name ("queen") or the layout
// letter ("q", "Q").
func ParsePieceType(s string) (PieceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "k", "king":
		return King, nil
	case "q", "queen":
		return Queen, nil
	case "r", "rook":
		return Rook, nil
	case "b", "bishop":
		return Bishop, nil
	case "n", "knight":
		return Knight, nil
	case "p", "pawn":
		return Pawn, nil
	}
	return "", fmt.Errorf("unknown piece type %q", s)
}

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool {
	return c == White || c == Black
}

// Piece is a single figure on the board. Pieces are owned by the Board grid
// and only change through Board operations; a piece never holds a
// reference to another piece.
type Piece struct {
	Type     PieceType `json:"type"`
	Color    Color     `json:"color"`
	Position Position  `json:"position"`
	HasMoved bool      `json:"hasMoved"`
	CanJump  bool      `json:"canJump"`
	Selected bool      `json:"selected"`
	// EnPassant is set for one ply after a two-square pawn advance.
	EnPassant bool `json:"enPassant"`
	// CheckedEnPassant marks the last move as an en-passant capture until
	// the board has removed the captured pawn.
	CheckedEnPassant bool `json:"-"`
	// CastlesWith is the square of the rook the king castled with.
	CastlesWith *Position `json:"castlesWith,omitempty"`

	promote bool
}

func NewPiece(kind PieceType, color Color, pos Position) *Piece {
	return &Piece{
		Type:     kind,
		Color:    color,
		Position: pos,
		CanJump:  kind == Knight,
	}
}

// Checkmate reports whether capturing this piece ends the game.
func (p *Piece) Checkmate() bool {
	return p.Type == King
}

// Letter is the layout letter of the piece, upper case for White.
func (p *Piece) Letter() string {
	letter := p.Type.getPieceNotation()
	if p.Color == Black {
		return strings.ToLower(letter)
	}
	return letter
}

func (p *Piece) String() string {
	return fmt.Sprintf("%s %s: %s", p.Color, p.Type, p.Position)
}

// snapshot returns a detached copy of the piece.
func (p *Piece) snapshot() Piece {
	cp := *p
	if p.CastlesWith != nil {
		rook := *p.CastlesWith
		cp.CastlesWith = &rook
	}
	return cp
}

func (p *Piece) forward() int {
	if p.Color == White {
		return -1
	}
	return 1
}

func (p *Piece) lastRank() int {
	if p.Color == White {
		return 0
	}
	return 7
}

func (p *Piece) homeRank() int {
	if p.Color == White {
		return 6
	}
	return 1
}

// BoardView is the read-only access pieces have to the board.
type BoardView interface {
	// PieceAt returns a copy of the piece on pos.
	PieceAt(pos Position) (Piece, bool)
	// Pieces returns copies of all pieces of the given type and color.
	Pieces(kind PieceType, color Color) []Piece
}
