package main

import (
	"slices"
	"time"
)

type Player struct {
	ConnID   string `json:"id"`
	Username string `json:"username"`
}

// Room is the authoritative state of one puzzle session. Difficulty is the
// room's configuration and shares its lifecycle.
type Room struct {
	ID         string     `json:"id"`
	Players    []Player   `json:"players"`
	Pieces     []Piece    `json:"puzzle"`
	StartTime  time.Time  `json:"startTime"`
	Completed  bool       `json:"completed"`
	ImageURL   *string    `json:"puzzleImage"`
	Difficulty Difficulty `json:"difficulty"`
}

func newRoom(id string, d Difficulty, now time.Time) *Room {
	return &Room{
		ID:         id,
		Players:    []Player{},
		Pieces:     newPuzzle(d),
		StartTime:  now,
		Difficulty: d,
	}
}

type MoveResult struct {
	Moved   bool
	Solved  bool
	Elapsed time.Duration
}

func (r *Room) pieceIndex(pieceID string) int {
	return slices.IndexFunc(r.Pieces, func(p Piece) bool { return p.ID == pieceID })
}

func (r *Room) pieceAt(position int) int {
	return slices.IndexFunc(r.Pieces, func(p Piece) bool { return p.Position == position })
}

// MovePiece swaps the piece with whichever piece holds newPosition. Solved is
// only reported on the move that first completes the puzzle.
func (r *Room) MovePiece(pieceID string, newPosition int, now time.Time) MoveResult {
	src := r.pieceIndex(pieceID)
	if src == -1 {
		return MoveResult{}
	}

	current := r.Pieces[src].Position
	if current == newPosition {
		return MoveResult{}
	}

	dst := r.pieceAt(newPosition)
	if dst == -1 {
		return MoveResult{}
	}

	r.Pieces[src].Position = newPosition
	r.Pieces[dst].Position = current

	result := MoveResult{Moved: true}

	if r.IsSolved() && !r.Completed {
		r.Completed = true
		result.Solved = true
		result.Elapsed = now.Sub(r.StartTime)
	}

	return result
}

func (r *Room) IsSolved() bool {
	for _, p := range r.Pieces {
		if p.Position != p.CorrectPosition {
			return false
		}
	}

	return true
}

// Reset deals a fresh shuffle at the configured difficulty. The image is kept.
func (r *Room) Reset(now time.Time) {
	r.Pieces = newPuzzle(r.Difficulty)
	r.StartTime = now
	r.Completed = false
}

// SetImage stores url as given; an empty string is kept, not cleared.
func (r *Room) SetImage(url string, now time.Time) {
	r.ImageURL = &url

	r.Reset(now)
}

func (r *Room) SetDifficulty(d Difficulty, now time.Time) {
	r.Difficulty = d

	r.Reset(now)
}

func (r *Room) hasPlayer(connID string) bool {
	return slices.ContainsFunc(r.Players, func(p Player) bool { return p.ConnID == connID })
}

// connections lists each connection in the room once, in join order.
func (r *Room) connections() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		if !slices.Contains(ids, p.ConnID) {
			ids = append(ids, p.ConnID)
		}
	}

	return ids
}

// Snapshot returns a deep copy that is safe to hand to writer goroutines.
func (r *Room) Snapshot() Room {
	s := *r
	s.Players = slices.Clone(r.Players)
	s.Pieces = slices.Clone(r.Pieces)
	if r.ImageURL != nil {
		url := *r.ImageURL
		s.ImageURL = &url
	}

	return s
}
