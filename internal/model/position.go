package model

import (
	"fmt"
)

// Position is a board coordinate. X is the file (0 = a), Y is the row as
// seen from White's side (0 = rank 8, 7 = rank 1).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoPosition never matches a square on the board.
var NoPosition = Position{X: -1, Y: -1}

func (p Position) OnBoard() bool {
	return p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8
}

// Sub returns the delta from o to p.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Less orders positions row by row, then by file.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// String returns the square notation, e.g. "e4". Off-board positions print
// as their raw coordinates.
func (p Position) String() string {
	if !p.OnBoard() {
		return fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return fmt.Sprintf("%c%d", p.X+97, 8-p.Y)
}

// ParsePosition reads square notation such as "a1" or "H8".
func ParsePosition(s string) (Position, error) {
	if len(s) != 2 {
		return NoPosition, fmt.Errorf("invalid square %q", s)
	}
	file := s[0] | 0x20
	if file < 'a' || file > 'h' || s[1] < '1' || s[1] > '8' {
		return NoPosition, fmt.Errorf("invalid square %q", s)
	}
	return Position{X: int(file - 'a'), Y: 8 - int(s[1]-'0')}, nil
}

// MustPosition is ParsePosition for constant squares.
func MustPosition(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
