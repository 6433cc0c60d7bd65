/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
	"strconv"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty falls back to medium for anything it does not recognise.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// GridSize returns the number of rows (and columns) of the square puzzle grid.
func (d Difficulty) GridSize() int {
	switch d {
	case DifficultyEasy:
		return 4
	case DifficultyHard:
		return 8
	default:
		return 6
	}
}

func (d Difficulty) Pieces() int {
	n := d.GridSize()

	return n * n
}

type Piece struct {
	ID              string `json:"id"`
	Position        int    `json:"position"`
	CorrectPosition int    `json:"correctPosition"`
	Content         string `json:"content"`
}

func newPuzzle(d Difficulty) []Piece {
	return shufflePieces(orderedPieces(d), rand.IntN)
}

func orderedPieces(d Difficulty) []Piece {
	total := d.Pieces()

	pieces := make([]Piece, total)
	for i := range pieces {
		pieces[i] = Piece{
			ID:              "piece" + strconv.Itoa(i),
			Position:        i,
			CorrectPosition: i,
			Content:         strconv.Itoa(i),
		}
	}

	return pieces
}

// shufflePieces permutes positions only; correctPosition never moves.
// intN must return a uniform value in [0,n).
func shufflePieces(pieces []Piece, intN func(n int) int) []Piece {
	for i := len(pieces) - 1; i > 0; i-- {
		j := intN(i + 1)
		pieces[i].Position, pieces[j].Position = pieces[j].Position, pieces[i].Position
	}

	return pieces
}
