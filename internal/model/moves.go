package model

// PseudoMoves returns the geometric move candidates of the piece. Blocking
// pieces are only taken into account where the geometry itself depends on
// them (pawn captures, en passant and castling).
func (p *Piece) PseudoMoves(view BoardView) []Position {
	switch p.Type {
	case Pawn:
		return p.getPsuedoPawnMoves(view)
	case Knight:
		return KnightOffsets(p.Position)
	case Bishop:
		return Diagonals(p.Position, 8)
	case Rook:
		return Lines(p.Position, 8)
	case Queen:
		moves := append(Diagonals(p.Position, 8), Lines(p.Position, 8)...)
		sortPositions(moves)
		return moves
	case King:
		moves := append(Diagonals(p.Position, 1), Lines(p.Position, 1)...)
		moves = append(moves, p.castleTargets(view)...)
		sortPositions(moves)
		return moves
	default:
		return []Position{}
	}
}

func (p *Piece) getPsuedoPawnMoves(view BoardView) []Position {
	pawnMoves := []Position{}
	dir := p.forward()
	// move forward 1, or 2 if not moved
	for step := 1; step <= 2; step++ {
		if step == 2 && p.HasMoved {
			break
		}
		target := Position{X: p.Position.X, Y: p.Position.Y + dir*step}
		if target.OnBoard() {
			pawnMoves = append(pawnMoves, target)
		}
	}
	for _, dx := range []int{-1, 1} {
		// capture
		target := Position{X: p.Position.X + dx, Y: p.Position.Y + dir}
		if !target.OnBoard() {
			continue
		}
		if other, ok := view.PieceAt(target); ok && other.Color != p.Color {
			pawnMoves = append(pawnMoves, target)
			continue
		}
		// en passant
		if _, ok := p.enPassantVictim(view, target); ok {
			pawnMoves = append(pawnMoves, target)
		}
	}
	sortPositions(pawnMoves)
	return pawnMoves
}

// enPassantVictim returns the square of the pawn captured when p moves
// diagonally onto the empty square target.
func (p *Piece) enPassantVictim(view BoardView, target Position) (Position, bool) {
	if p.Type != Pawn || target.Y-p.Position.Y != p.forward() || abs(target.X-p.Position.X) != 1 {
		return NoPosition, false
	}
	if _, occupied := view.PieceAt(target); occupied {
		return NoPosition, false
	}
	victimPos := Position{X: target.X, Y: p.Position.Y}
	victim, ok := view.PieceAt(victimPos)
	if !ok || victim.Type != Pawn || victim.Color == p.Color || !victim.EnPassant {
		return NoPosition, false
	}
	return victimPos, true
}

// castleTargets returns the squares of the rooks the king may castle with:
// both unmoved, on the same rank, nothing in between.
func (p *Piece) castleTargets(view BoardView) []Position {
	if p.Type != King || p.HasMoved {
		return nil
	}
	targets := []Position{}
	for _, rook := range view.Pieces(Rook, p.Color) {
		if rook.HasMoved || rook.Position.Y != p.Position.Y || abs(rook.Position.X-p.Position.X) < 2 {
			continue
		}
		dir := sign(rook.Position.X - p.Position.X)
		blocked := false
		for x := p.Position.X + dir; x != rook.Position.X; x += dir {
			if _, ok := view.PieceAt(Position{X: x, Y: p.Position.Y}); ok {
				blocked = true
				break
			}
		}
		if !blocked {
			targets = append(targets, rook.Position)
		}
	}
	return targets
}

// canMove checks the path from the piece to target: every square in
// between must be empty unless the piece jumps, and the target must be
// empty or hold an enemy.
func (p *Piece) canMove(view BoardView, target Position) bool {
	if !target.OnBoard() || target == p.Position {
		return false
	}
	delta := target.Sub(p.Position)
	if !p.CanJump {
		if !isDiagonal(delta) && !isLine(delta) {
			return false
		}
		step := Position{X: sign(delta.X), Y: sign(delta.Y)}
		for sq := p.Position.Add(step); sq != target; sq = sq.Add(step) {
			if _, ok := view.PieceAt(sq); ok {
				return false
			}
		}
	}
	if other, ok := view.PieceAt(target); ok && other.Color == p.Color {
		return false
	}
	return true
}

// IsMoveAllowed reports whether the piece may move to target on the given
// board. Check is not considered.
func (p *Piece) IsMoveAllowed(view BoardView, target Position) bool {
	if !containsPosition(p.PseudoMoves(view), target) {
		return false
	}
	switch p.Type {
	case King:
		if containsPosition(p.castleTargets(view), target) {
			return true
		}
	case Pawn:
		_, occupied := view.PieceAt(target)
		if target.X == p.Position.X {
			return !occupied && p.canMove(view, target)
		}
		if !occupied {
			_, ok := p.enPassantVictim(view, target)
			return ok
		}
	}
	return p.canMove(view, target)
}

// Move moves the piece to target if allowed and updates its move flags.
// The board is responsible for updating the grid afterwards. On a rejected
// move the piece is left untouched.
func (p *Piece) Move(view BoardView, target Position) bool {
	if !p.IsMoveAllowed(view, target) {
		return false
	}
	from := p.Position
	switch p.Type {
	case King:
		p.CastlesWith = nil
		if containsPosition(p.castleTargets(view), target) {
			rook := target
			p.CastlesWith = &rook
		}
	case Pawn:
		_, p.CheckedEnPassant = p.enPassantVictim(view, target)
		p.EnPassant = abs(target.Y-from.Y) == 2
		p.promote = target.Y == p.lastRank()
	}
	p.Position = target
	p.HasMoved = true
	return true
}
