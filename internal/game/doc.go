// Package game defines the bingo game aggregate: the document shared by all
// players of one session, its status machine, and the error taxonomy used by
// the operations that mutate it.
package game
