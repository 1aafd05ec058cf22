package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ParseLayout reads a layout string: up to eight "/"-separated ranks from
// rank 8 down to rank 1. Within a rank a digit 1-8 skips that many empty
// squares and a letter k, q, r, b, n or p places a piece, upper case for
// White. Ranks shorter than eight squares are padded with empty squares and
// missing ranks are empty. Every problem found is reported.
func ParseLayout(layout string) ([8][8]*Piece, error) {
	var grid [8][8]*Piece
	var result *multierror.Error

	ranks := strings.Split(strings.TrimSpace(layout), "/")
	if len(ranks) > 8 {
		result = multierror.Append(result, fmt.Errorf("%d ranks, at most 8 allowed", len(ranks)))
		ranks = ranks[:8]
	}
	kings := map[Color]int{}
	for y, rank := range ranks {
		x := 0
		for _, ch := range rank {
			if x > 7 {
				result = multierror.Append(result, fmt.Errorf("rank %d: more than 8 squares", 8-y))
				break
			}
			if unicode.IsDigit(ch) {
				n, _ := strconv.Atoi(string(ch))
				if n < 1 || n > 8-x {
					result = multierror.Append(result, fmt.Errorf("rank %d: invalid run %q at file %c", 8-y, ch, 'a'+x))
					break
				}
				x += n
				continue
			}
			kind, err := ParsePieceType(string(ch))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("rank %d: %v", 8-y, err))
				x++
				continue
			}
			color := Black
			if unicode.IsUpper(ch) {
				color = White
			}
			pos := Position{X: x, Y: y}
			piece := NewPiece(kind, color, pos)
			if kind == Pawn {
				piece.HasMoved = y != piece.homeRank()
			}
			if kind == King {
				kings[color]++
				if kings[color] > 1 {
					result = multierror.Append(result, fmt.Errorf("more than one %s king", color))
				}
			}
			grid[y][x] = piece
			x++
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return [8][8]*Piece{}, errors.Wrapf(ErrInvalidLayout, "%q: %v", layout, err)
	}
	return grid, nil
}

// LoadLayout replaces the board content with the given layout and resets
// selection, promotion and game-over state. On error the board is left as
// it was.
func (b *Board) LoadLayout(layout string) error {
	grid, err := ParseLayout(layout)
	if err != nil {
		return err
	}
	b.grid = grid
	b.selected = nil
	b.promotion = nil
	b.gameOver = false
	b.winner = ""
	return nil
}

// Layout renders the board as a layout string with full eight-square
// ranks, the same form ParseLayout reads.
func (b *Board) Layout() string {
	var sb strings.Builder
	for y := 0; y < 8; y++ {
		if y > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for x := 0; x < 8; x++ {
			piece := b.grid[y][x]
			if piece == nil {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.Letter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}
	return sb.String()
}
