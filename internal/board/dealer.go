// Package board deals randomized bingo boards from an item pool.
package board

import (
	rand "math/rand/v2"
	"time"

	"github.com/partygames/bingo/internal/game"
	"github.com/partygames/bingo/internal/randutil"
)

// Dealer produces per-player boards. The random source is injectable so tests
// can assert exact placements from a fixed seed.
type Dealer struct {
	rng *rand.Rand
}

// NewDealer creates a dealer using rng, or a time-seeded source when rng is nil.
func NewDealer(rng *rand.Rand) *Dealer {
	if rng == nil {
		rng = randutil.New(time.Now().UnixNano())
	}
	return &Dealer{rng: rng}
}

// Deal shuffles a copy of pool uniformly (Fisher-Yates) and lays the result
// row-major into a size x size grid keyed by "row-col". When the pool is
// smaller than size*size the missing cells are filled with empty strings;
// the lifecycle start precondition keeps that case out of normal play.
func (d *Dealer) Deal(pool []string, size int) game.Board {
	items := append([]string(nil), pool...)
	for i := len(items) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}

	grid := make(game.Board, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			idx := row*size + col
			cell := ""
			if idx < len(items) {
				cell = items[idx]
			}
			grid[game.CellKey(row, col)] = cell
		}
	}
	return grid
}

// EmptyMarks builds the all-false marked-cell grid initialized alongside a
// freshly dealt board.
func EmptyMarks(size int) game.Marks {
	marks := make(game.Marks, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			marks[game.CellKey(row, col)] = false
		}
	}
	return marks
}
