package model

// WSMove is a complete move sent by a client: select From, place on To and,
// when a pawn reaches the last rank, promote to Promotion.
type WSMove struct {
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Promotion PieceType `json:"promotion"`
}

// WSClick is a single click on a board square.
type WSClick struct {
	Position
}

// WSPromotion chooses the piece for a pending promotion.
type WSPromotion struct {
	Piece PieceType `json:"piece"`
}

type SimpleMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}
