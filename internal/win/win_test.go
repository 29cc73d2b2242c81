package win

import (
	"testing"

	"github.com/partygames/bingo/internal/game"
)

func markRow(m game.Marks, size, row int) {
	for col := 0; col < size; col++ {
		m[game.CellKey(row, col)] = true
	}
}

func markCol(m game.Marks, size, col int) {
	for row := 0; row < size; row++ {
		m[game.CellKey(row, col)] = true
	}
}

func markAll(m game.Marks, size int) {
	for row := 0; row < size; row++ {
		markRow(m, size, row)
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		marks    func(game.Marks, int)
		expected bool
	}{
		{
			name:     "empty board",
			size:     5,
			marks:    func(m game.Marks, size int) {},
			expected: false,
		},
		{
			name: "single cell",
			size: 5,
			marks: func(m game.Marks, size int) {
				m[game.CellKey(2, 2)] = true
			},
			expected: false,
		},
		{
			name:     "full top row",
			size:     5,
			marks:    func(m game.Marks, size int) { markRow(m, size, 0) },
			expected: true,
		},
		{
			name:     "full middle row size 3",
			size:     3,
			marks:    func(m game.Marks, size int) { markRow(m, size, 1) },
			expected: true,
		},
		{
			name:     "full last column",
			size:     4,
			marks:    func(m game.Marks, size int) { markCol(m, size, 3) },
			expected: true,
		},
		{
			name: "main diagonal",
			size: 5,
			marks: func(m game.Marks, size int) {
				for i := 0; i < size; i++ {
					m[game.CellKey(i, i)] = true
				}
			},
			expected: true,
		},
		{
			name: "anti diagonal",
			size: 6,
			marks: func(m game.Marks, size int) {
				for i := 0; i < size; i++ {
					m[game.CellKey(i, size-1-i)] = true
				}
			},
			expected: true,
		},
		{
			name: "row missing one cell",
			size: 5,
			marks: func(m game.Marks, size int) {
				markRow(m, size, 2)
				m[game.CellKey(2, 4)] = false
			},
			expected: false,
		},
		{
			name: "diagonal missing one cell",
			size: 4,
			marks: func(m game.Marks, size int) {
				for i := 1; i < size; i++ {
					m[game.CellKey(i, i)] = true
				}
			},
			expected: false,
		},
		{
			name: "scattered marks no line",
			size: 3,
			marks: func(m game.Marks, size int) {
				m[game.CellKey(0, 0)] = true
				m[game.CellKey(0, 1)] = true
				m[game.CellKey(1, 0)] = true
				m[game.CellKey(2, 1)] = true
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(game.Marks)
			tt.marks(m, tt.size)
			if got := Line(m, tt.size); got != tt.expected {
				t.Errorf("Line() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLineEveryRowAndColumn(t *testing.T) {
	for _, size := range []int{3, 4, 5, 6} {
		for i := 0; i < size; i++ {
			m := make(game.Marks)
			markRow(m, size, i)
			if !Line(m, size) {
				t.Errorf("size %d row %d: expected line win", size, i)
			}

			m = make(game.Marks)
			markCol(m, size, i)
			if !Line(m, size) {
				t.Errorf("size %d col %d: expected line win", size, i)
			}
		}
	}
}

func TestFullBoard(t *testing.T) {
	for _, size := range []int{3, 4, 5, 6} {
		m := make(game.Marks)
		markAll(m, size)
		if !FullBoard(m, size) {
			t.Errorf("size %d: expected full-board win", size)
		}

		// Unmark any single cell and the win disappears.
		m[game.CellKey(size-1, size-1)] = false
		if FullBoard(m, size) {
			t.Errorf("size %d: full board win with an unmarked cell", size)
		}
	}
}

func TestFullBoardEmpty(t *testing.T) {
	if FullBoard(make(game.Marks), 3) {
		t.Error("empty board should not be a full-board win")
	}
}

func TestFullBoardImpliesLine(t *testing.T) {
	// A completely marked board satisfies both winning models; a single
	// line satisfies only the line model.
	for _, size := range []int{3, 5} {
		full := make(game.Marks)
		markAll(full, size)
		if !Line(full, size) || !FullBoard(full, size) {
			t.Errorf("size %d: full board should win under both models", size)
		}

		oneRow := make(game.Marks)
		markRow(oneRow, size, 0)
		if !Line(oneRow, size) {
			t.Errorf("size %d: single row should be a line win", size)
		}
		if FullBoard(oneRow, size) {
			t.Errorf("size %d: single row should not be a full-board win", size)
		}
	}
}

func TestCheck(t *testing.T) {
	m := make(game.Marks)
	markRow(m, 3, 0)

	if !Check(m, 3, game.WinLine) {
		t.Error("Check with line model should dispatch to Line")
	}
	if Check(m, 3, game.WinFullBoard) {
		t.Error("Check with fullBoard model should dispatch to FullBoard")
	}
	if Check(m, 3, game.WinningModel("unknown")) {
		t.Error("Check with unknown model should never win")
	}
}
