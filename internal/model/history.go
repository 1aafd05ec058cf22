package model

import (
	"io"
	"os"
	"strings"
)

// Turn is one recorded half-move.
type Turn struct {
	Start       Position `json:"start"`
	End         Position `json:"end"`
	IsCastling  bool     `json:"isCastling"`
	IsPromotion bool     `json:"isPromotion"`
	Piece       Piece    `json:"piece"`
	Notation    string   `json:"notation"`
}

// Move pairs White's and Black's half-moves of one full move.
type Move struct {
	WhitePly *Turn `json:"whitePly"`
	BlackPly *Turn `json:"blackPly"`
}

// History is the append-only move log of a game. It implements Recorder.
type History struct {
	turns []Turn
	data  strings.Builder
	final bool
}

func NewHistory() *History {
	return &History{turns: make([]Turn, 0)}
}

// Record appends a turn and its notation. Once a king has been captured the
// history is final and further records are ignored.
func (h *History) Record(piece Piece, from, to Position, captured *Piece, promotion bool) {
	if h.final {
		return
	}
	turn := Turn{
		Start:       from,
		End:         to,
		IsCastling:  piece.CastlesWith != nil,
		IsPromotion: promotion,
		Piece:       piece,
		Notation:    getNotation(piece, from, to, captured),
	}
	h.turns = append(h.turns, turn)

	h.data.WriteString(turn.Notation)
	if captured != nil && captured.Checkmate() {
		h.data.WriteString("#")
		h.final = true
	} else {
		h.data.WriteString(" ")
	}
	if piece.Color == Black {
		h.data.WriteString("\n")
	}
}

func getNotation(piece Piece, from, to Position, captured *Piece) string {
	if piece.CastlesWith != nil {
		if to.X > from.X {
			return "0-0"
		}
		return "0-0-0"
	}
	sep := "-"
	if captured != nil {
		sep = "x"
	}
	return piece.Letter() + from.String() + sep + to.String()
}

// Replay returns the recorded turns in order. The returned slice is a copy
// and can be iterated any number of times.
func (h *History) Replay() []Turn {
	turns := make([]Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

// Moves groups the turns into full moves.
func (h *History) Moves() []Move {
	moves := make([]Move, 0, (len(h.turns)+1)/2)
	for i := range h.turns {
		turn := h.turns[i]
		if turn.Piece.Color == White || len(moves) == 0 || moves[len(moves)-1].BlackPly != nil {
			moves = append(moves, Move{})
		}
		last := &moves[len(moves)-1]
		if turn.Piece.Color == White {
			last.WhitePly = &turn
		} else {
			last.BlackPly = &turn
		}
	}
	return moves
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) IsFinal() bool {
	return h.final
}

// Log returns the text log, one line per full move.
func (h *History) Log() string {
	return h.data.String()
}

// WriteTo writes the text log to w.
func (h *History) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, h.data.String())
	return int64(n), err
}

// Save writes the text log to the file at path, replacing it.
func (h *History) Save(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = h.WriteTo(f)
	return err
}
