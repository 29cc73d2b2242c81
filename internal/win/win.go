// Package win evaluates bingo win conditions. All functions are pure: they
// inspect a sparse marked-cell map (only true entries need to be present) and
// never mutate it.
package win

import "github.com/partygames/bingo/internal/game"

// Line reports whether at least one full-length line is completely marked:
// any row, any column, the main diagonal, or the anti-diagonal. Only lines
// spanning the whole board count; there is no shorter-run concept.
func Line(marked game.Marks, size int) bool {
	for i := 0; i < size; i++ {
		if rowComplete(marked, size, i) || colComplete(marked, size, i) {
			return true
		}
	}
	return diagonalComplete(marked, size, false) || diagonalComplete(marked, size, true)
}

// FullBoard reports whether every cell of the size x size board is marked.
func FullBoard(marked game.Marks, size int) bool {
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			if !marked[game.CellKey(row, col)] {
				return false
			}
		}
	}
	return true
}

// Check dispatches to the evaluator for the game's winning model. Unknown
// models never win.
func Check(marked game.Marks, size int, model game.WinningModel) bool {
	switch model {
	case game.WinLine:
		return Line(marked, size)
	case game.WinFullBoard:
		return FullBoard(marked, size)
	}
	return false
}

func rowComplete(marked game.Marks, size, row int) bool {
	for col := 0; col < size; col++ {
		if !marked[game.CellKey(row, col)] {
			return false
		}
	}
	return true
}

func colComplete(marked game.Marks, size, col int) bool {
	for row := 0; row < size; row++ {
		if !marked[game.CellKey(row, col)] {
			return false
		}
	}
	return true
}

func diagonalComplete(marked game.Marks, size int, anti bool) bool {
	for i := 0; i < size; i++ {
		col := i
		if anti {
			col = size - 1 - i
		}
		if !marked[game.CellKey(i, col)] {
			return false
		}
	}
	return true
}
