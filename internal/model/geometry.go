package model

import "sort"

var (
	rookDirs   = []Position{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}
	bishopDirs = []Position{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
	knightDirs = []Position{{X: 2, Y: 1}, {X: 2, Y: -1}, {X: -2, Y: 1}, {X: -2, Y: -1}, {X: 1, Y: 2}, {X: 1, Y: -2}, {X: -1, Y: 2}, {X: -1, Y: -2}}
)

// Diagonals returns every on-board square reachable from pos by stepping
// 1..maxLen squares along the four diagonals. Blocking pieces are ignored.
func Diagonals(pos Position, maxLen int) []Position {
	return rays(pos, bishopDirs, maxLen)
}

// Lines is Diagonals for the four orthogonal directions.
func Lines(pos Position, maxLen int) []Position {
	return rays(pos, rookDirs, maxLen)
}

// KnightOffsets returns the on-board L-shaped targets from pos.
func KnightOffsets(pos Position) []Position {
	targets := make([]Position, 0, len(knightDirs))
	for _, dir := range knightDirs {
		if target := pos.Add(dir); target.OnBoard() {
			targets = append(targets, target)
		}
	}
	sortPositions(targets)
	return targets
}

func rays(pos Position, dirs []Position, maxLen int) []Position {
	targets := []Position{}
	for _, dir := range dirs {
		target := pos.Add(dir)
		for step := 1; step <= maxLen && target.OnBoard(); step++ {
			targets = append(targets, target)
			target = target.Add(dir)
		}
	}
	sortPositions(targets)
	return targets
}

func sortPositions(positions []Position) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
}

// isDiagonal reports whether delta points along a diagonal.
func isDiagonal(delta Position) bool {
	return delta.X != 0 && abs(delta.X) == abs(delta.Y)
}

// isLine reports whether delta points along a rank or file.
func isLine(delta Position) bool {
	return (delta.X == 0) != (delta.Y == 0)
}

func containsPosition(positions []Position, target Position) bool {
	for _, p := range positions {
		if p == target {
			return true
		}
	}
	return false
}
