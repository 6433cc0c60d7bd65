package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrMissingField = errors.New("missing required field")
)

// Messages coming from clients. Every event names its room with gameId.
type ClientMessage struct {
	Type        string  `json:"type"`                  // see the event constants below
	GameID      string  `json:"gameId"`                // all events
	Username    string  `json:"username,omitempty"`    // join_game, optional
	PieceID     string  `json:"pieceId,omitempty"`     // move_piece
	NewPosition *int    `json:"newPosition,omitempty"` // move_piece
	Message     *string `json:"message,omitempty"`     // send_message
	ImageURL    *string `json:"imageUrl,omitempty"`    // set_puzzle_image, stored as sent
	Difficulty  string  `json:"difficulty,omitempty"`  // update_difficulty
}

const (
	eventJoinGame         = "join_game"
	eventMovePiece        = "move_piece"
	eventSendMessage      = "send_message"
	eventResetGame        = "reset_game"
	eventSetPuzzleImage   = "set_puzzle_image"
	eventUpdateDifficulty = "update_difficulty"
)

// clientEvent is the closed set of validated inbound events.
type clientEvent interface {
	room() string
}

type joinGame struct {
	gameID   string
	username string
}

type movePiece struct {
	gameID      string
	pieceID     string
	newPosition int
}

type sendMessage struct {
	gameID  string
	message string
}

type resetGame struct {
	gameID string
}

type setPuzzleImage struct {
	gameID   string
	imageURL string
}

type updateDifficulty struct {
	gameID     string
	difficulty Difficulty
}

func (e joinGame) room() string         { return e.gameID }
func (e movePiece) room() string        { return e.gameID }
func (e sendMessage) room() string      { return e.gameID }
func (e resetGame) room() string        { return e.gameID }
func (e setPuzzleImage) room() string   { return e.gameID }
func (e updateDifficulty) room() string { return e.gameID }

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func decodeEvent(data []byte) (clientEvent, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	return msg.event()
}

// event validates msg and converts it to its typed variant.
func (msg ClientMessage) event() (clientEvent, error) {
	if msg.Type == "" {
		return nil, missing("type")
	}

	switch msg.Type {
	case eventJoinGame, eventMovePiece, eventSendMessage, eventResetGame, eventSetPuzzleImage, eventUpdateDifficulty:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}

	if msg.GameID == "" {
		return nil, missing("gameId")
	}

	switch msg.Type {
	case eventJoinGame:
		return joinGame{gameID: msg.GameID, username: msg.Username}, nil

	case eventMovePiece:
		if msg.PieceID == "" {
			return nil, missing("pieceId")
		}
		if msg.NewPosition == nil {
			return nil, missing("newPosition")
		}
		return movePiece{gameID: msg.GameID, pieceID: msg.PieceID, newPosition: *msg.NewPosition}, nil

	case eventSendMessage:
		if msg.Message == nil {
			return nil, missing("message")
		}
		return sendMessage{gameID: msg.GameID, message: *msg.Message}, nil

	case eventResetGame:
		return resetGame{gameID: msg.GameID}, nil

	case eventSetPuzzleImage:
		if msg.ImageURL == nil {
			return nil, missing("imageUrl")
		}
		return setPuzzleImage{gameID: msg.GameID, imageURL: *msg.ImageURL}, nil

	default:
		if msg.Difficulty == "" {
			return nil, missing("difficulty")
		}
		return updateDifficulty{gameID: msg.GameID, difficulty: ParseDifficulty(msg.Difficulty)}, nil
	}
}

// Messages sent to clients

type GameStateMessage struct {
	Type string `json:"type"` // "game_state"
	Room
}

type PlayerMessage struct {
	Type     string `json:"type"` // "player_joined" or "player_left"
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type ChatMessage struct {
	Type      string `json:"type"` // "new_message"
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

type SolvedMessage struct {
	Type        string `json:"type"` // "puzzle_solved"
	GameID      string `json:"gameId"`
	SolvedBy    string `json:"solvedBy"`
	TimeElapsed int64  `json:"timeElapsed"` // milliseconds
}

// Sent once to a long-polling client when its session opens.
type SessionMessage struct {
	Type string `json:"type"` // "session"
	SID  string `json:"sid"`
}
