package main

import (
	"slices"
	"testing"
)

func positions(pieces []Piece) []int {
	out := make([]int, len(pieces))
	for i, p := range pieces {
		out[i] = p.Position
	}
	slices.Sort(out)
	return out
}

func isPermutation(pieces []Piece) bool {
	for i, pos := range positions(pieces) {
		if pos != i {
			return false
		}
	}
	return true
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want Difficulty
	}{
		{"easy", DifficultyEasy},
		{"medium", DifficultyMedium},
		{"hard", DifficultyHard},
		{"", DifficultyMedium},
		{"HARD", DifficultyMedium},
		{"impossible", DifficultyMedium},
	}

	for _, tt := range tests {
		if got := ParseDifficulty(tt.in); got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDifficultyPieces(t *testing.T) {
	tests := map[Difficulty]int{
		DifficultyEasy:   16,
		DifficultyMedium: 36,
		DifficultyHard:   64,
		Difficulty("?"):  36,
	}

	for d, want := range tests {
		if got := d.Pieces(); got != want {
			t.Errorf("%q.Pieces() = %d, want %d", d, got, want)
		}
	}
}

func TestNewPuzzleIsPermutation(t *testing.T) {
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		for range 200 {
			pieces := newPuzzle(d)

			if len(pieces) != d.Pieces() {
				t.Fatalf("expected %d pieces for %s, got %d", d.Pieces(), d, len(pieces))
			}
			if !isPermutation(pieces) {
				t.Fatalf("positions for %s are not a permutation: %v", d, positions(pieces))
			}

			for i, p := range pieces {
				if p.CorrectPosition != i {
					t.Fatalf("piece %d has correctPosition %d", i, p.CorrectPosition)
				}
				if p.ID != "piece"+p.Content {
					t.Fatalf("piece %d has id %q and content %q", i, p.ID, p.Content)
				}
			}
		}
	}
}

func TestShufflePiecesOnlyMovesPositions(t *testing.T) {
	// Always picking 0 rotates every position down by one slot.
	pieces := shufflePieces(orderedPieces(DifficultyEasy), func(int) int { return 0 })

	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 0}
	for i, p := range pieces {
		if p.Position != want[i] {
			t.Fatalf("piece %d at position %d, want %d", i, p.Position, want[i])
		}
		if p.CorrectPosition != i {
			t.Fatalf("shuffle moved correctPosition of piece %d to %d", i, p.CorrectPosition)
		}
	}
}

func TestShufflePiecesIdentity(t *testing.T) {
	pieces := shufflePieces(orderedPieces(DifficultyMedium), func(n int) int { return n - 1 })

	for i, p := range pieces {
		if p.Position != i {
			t.Fatalf("expected identity shuffle, piece %d at %d", i, p.Position)
		}
	}
}
