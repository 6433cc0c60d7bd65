package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

const (
	systemSender   = "System"
	unknownPlayer  = "Unknown player"
	unknownActor   = "Someone"
	guestNameRange = 1000
)

// Client is one live connection, whatever transport carries it.
type Client struct {
	id   string
	send chan any
}

func newClient(id string, buffer int) *Client {
	return &Client{
		id:   id,
		send: make(chan any, buffer),
	}
}

type inboundEvent struct {
	client *Client
	event  clientEvent
}

type expiry struct {
	room string
	gen  uint64
}

// Hub applies every inbound event, disconnect and room expiry one at a time
// from run, so no two of them ever touch the registry concurrently.
type Hub struct {
	cfg   *Config
	rooms *Registry

	mu      sync.RWMutex
	clients map[string]*Client

	register chan *Client
	unreg    chan *Client
	inbound  chan inboundEvent
	expired  chan expiry
	done     chan struct{}

	now  func() time.Time
	intN func(n int) int
}

func newHub(cfg *Config, rooms *Registry) *Hub {
	return &Hub{
		cfg:      cfg,
		rooms:    rooms,
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		inbound:  make(chan inboundEvent),
		expired:  make(chan expiry),
		done:     make(chan struct{}),
		now:      time.Now,
		intN:     rand.IntN,
	}
}

func (h *Hub) run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()

			logf(h.cfg, "CONNS: Client %s connected", c.id)

		case c := <-h.unreg:
			h.disconnect(c)

		case ie := <-h.inbound:
			h.handle(ie.client, ie.event)

		case e := <-h.expired:
			h.expire(e)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.rooms.Close()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) connect(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(c *Client, ev clientEvent) bool {
	select {
	case h.inbound <- inboundEvent{client: c, event: ev}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) isConnected(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.clients[c.id] == c
}

func (h *Hub) handle(c *Client, ev clientEvent) {
	// Late events from an evicted client must not re-add it to a room.
	if !h.isConnected(c) {
		return
	}

	switch e := ev.(type) {
	case joinGame:
		h.join(c, e)
	case movePiece:
		h.move(c, e)
	case sendMessage:
		h.broadcast(e.gameID, ChatMessage{
			Type:      "new_message",
			Sender:    h.nameOr(c.id, unknownPlayer),
			Message:   e.message,
			Timestamp: h.now().UnixMilli(),
		})
	case resetGame:
		h.restart(c, e.gameID, func(r *Room) { r.Reset(h.now()) },
			"%s reset the puzzle. New puzzle ready!")
	case setPuzzleImage:
		h.restart(c, e.gameID, func(r *Room) { r.SetImage(e.imageURL, h.now()) },
			"%s set a new puzzle image. Puzzle ready!")
	case updateDifficulty:
		h.restart(c, e.gameID, func(r *Room) { r.SetDifficulty(e.difficulty, h.now()) },
			"%s changed the difficulty to "+string(e.difficulty))
	}
}

func (h *Hub) join(c *Client, e joinGame) {
	name := e.username
	if name == "" {
		name = "Player" + strconv.Itoa(h.intN(guestNameRange))
	}

	h.rooms.SetName(c.id, name)

	if h.rooms.CancelCleanup(e.gameID) {
		logf(h.cfg, "GAMES: Cancelled removal of room %s", e.gameID)
	}

	if _, created := h.rooms.EnsureRoom(e.gameID, DifficultyMedium, h.now()); created {
		logf(h.cfg, "GAMES: Created room %s", e.gameID)
	}

	h.rooms.AddPlayer(e.gameID, c.id, name)

	logf(h.cfg, "GAMES: Player %q joined %s", name, e.gameID)

	h.broadcast(e.gameID,
		h.stateMessage(e.gameID),
		PlayerMessage{Type: "player_joined", PlayerID: c.id, Username: name},
		h.systemMessage(name+" has joined the game"),
	)
}

func (h *Hub) move(c *Client, e movePiece) {
	var res MoveResult

	if !h.rooms.Update(e.gameID, func(r *Room) {
		res = r.MovePiece(e.pieceID, e.newPosition, h.now())
	}) {
		return
	}

	if !res.Moved {
		return
	}

	msgs := []any{h.stateMessage(e.gameID)}

	if res.Solved {
		name := h.nameOr(c.id, unknownPlayer)

		logf(h.cfg, "GAMES: Room %s solved by %q in %s", e.gameID, name, res.Elapsed.Round(time.Millisecond))

		msgs = append(msgs,
			SolvedMessage{
				Type:        "puzzle_solved",
				GameID:      e.gameID,
				SolvedBy:    name,
				TimeElapsed: res.Elapsed.Milliseconds(),
			},
			h.systemMessage("🎉 Puzzle solved by "+name+"!"),
		)
	}

	h.broadcast(e.gameID, msgs...)
}

// restart applies one of the operations that deal a new shuffle, then tells
// the room who did it. notice must contain a single %s for the actor.
func (h *Hub) restart(c *Client, roomID string, fn func(*Room), notice string) {
	if !h.rooms.Update(roomID, fn) {
		return
	}

	h.broadcast(roomID,
		h.stateMessage(roomID),
		h.systemMessage(fmt.Sprintf(notice, h.nameOr(c.id, unknownActor))),
	)
}

func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	logf(h.cfg, "CONNS: Client %s disconnected", c.id)

	name := h.nameOr(c.id, unknownPlayer)

	for _, roomID := range h.rooms.RoomsWith(c.id) {
		removed, empty := false, false
		for {
			e, ok := h.rooms.RemovePlayer(roomID, c.id)
			if !ok {
				break
			}
			removed, empty = true, e
		}

		if !removed {
			continue
		}

		if empty {
			h.rooms.ScheduleCleanup(roomID, h.cfg.roomTimeout, h.expireLater(roomID))
			logf(h.cfg, "GAMES: Room %s is empty, removing in %s", roomID, h.cfg.roomTimeout)
			continue
		}

		h.broadcast(roomID,
			PlayerMessage{Type: "player_left", PlayerID: c.id, Username: name},
			h.systemMessage(name+" has left the game"),
			h.stateMessage(roomID),
		)
	}

	h.rooms.ForgetName(c.id)
}

// expireLater hands a fired cleanup back to the run loop.
func (h *Hub) expireLater(roomID string) func(gen uint64) {
	return func(gen uint64) {
		select {
		case h.expired <- expiry{room: roomID, gen: gen}:
		case <-h.done:
		}
	}
}

func (h *Hub) expire(e expiry) {
	if !h.rooms.CleanupCurrent(e.room, e.gen) {
		return
	}

	room, ok := h.rooms.Snapshot(e.room)
	if ok && len(room.Players) > 0 {
		h.rooms.CancelCleanup(e.room)
		return
	}

	h.rooms.DeleteRoom(e.room)

	logf(h.cfg, "GAMES: Room %s removed due to inactivity", e.room)
}

// broadcast delivers msgs, in order, to every connection in the room. A
// connection that cannot keep up is dropped.
func (h *Hub) broadcast(roomID string, msgs ...any) {
	room, ok := h.rooms.Snapshot(roomID)
	if !ok {
		return
	}

	var slow []*Client

	h.mu.RLock()
	for _, id := range room.connections() {
		c, ok := h.clients[id]
		if !ok {
			continue
		}

		if !deliver(c, msgs) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logf(h.cfg, "CONNS: Dropping slow client %s", c.id)
		h.disconnect(c)
	}
}

func deliver(c *Client, msgs []any) bool {
	for _, msg := range msgs {
		select {
		case c.send <- msg:
		default:
			return false
		}
	}

	return true
}

func (h *Hub) stateMessage(roomID string) GameStateMessage {
	room, _ := h.rooms.Snapshot(roomID)

	return GameStateMessage{Type: "game_state", Room: room}
}

func (h *Hub) systemMessage(text string) ChatMessage {
	return ChatMessage{
		Type:      "new_message",
		Sender:    systemSender,
		Message:   text,
		Timestamp: h.now().UnixMilli(),
	}
}

func (h *Hub) nameOr(connID, fallback string) string {
	if name, ok := h.rooms.Name(connID); ok {
		return name
	}

	return fallback
}
