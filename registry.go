package main

import (
	"slices"
	"sync"
	"time"
)

// Registry owns every room, the connection to display name table, and the
// pending empty-room cleanups. All tables are keyed by the client supplied
// room id.
type Registry struct {
	mu sync.RWMutex

	rooms      map[string]*Room
	names      map[string]string
	cleanups   map[string]cleanupTask
	cleanupGen uint64
}

type cleanupTask struct {
	gen   uint64
	timer *time.Timer
}

func newRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		names:    make(map[string]string),
		cleanups: make(map[string]cleanupTask),
	}
}

// EnsureRoom returns the room for id, creating it with difficulty d if it
// does not exist yet. The second return value reports whether it was created.
func (reg *Registry) EnsureRoom(id string, d Difficulty, now time.Time) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[id]; ok {
		return room, false
	}

	room := newRoom(id, d, now)
	reg.rooms[id] = room

	return room, true
}

func (reg *Registry) Room(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]

	return room, ok
}

// Snapshot returns a copy of the room that later mutations will not touch.
func (reg *Registry) Snapshot(id string) (Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]
	if !ok {
		return Room{}, false
	}

	return room.Snapshot(), true
}

// Update runs fn against the room under the write lock. It reports false,
// without calling fn, when the room does not exist.
func (reg *Registry) Update(id string, fn func(*Room)) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[id]
	if !ok {
		return false
	}

	fn(room)

	return true
}

func (reg *Registry) AddPlayer(id, connID, username string) bool {
	return reg.Update(id, func(r *Room) {
		r.Players = append(r.Players, Player{ConnID: connID, Username: username})
	})
}

// RemovePlayer drops the first entry for connID and reports whether the room
// is now empty. ok is false if the room or the player was not found.
func (reg *Registry) RemovePlayer(id, connID string) (empty, ok bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[id]
	if !exists {
		return false, false
	}

	i := slices.IndexFunc(room.Players, func(p Player) bool { return p.ConnID == connID })
	if i == -1 {
		return len(room.Players) == 0, false
	}

	room.Players = slices.Delete(room.Players, i, i+1)

	return len(room.Players) == 0, true
}

func (reg *Registry) DeleteRoom(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, id)

	if c, ok := reg.cleanups[id]; ok {
		c.timer.Stop()
		delete(reg.cleanups, id)
	}
}

// RoomsWith lists, in no particular order, the rooms connID is a player in.
func (reg *Registry) RoomsWith(connID string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var ids []string
	for id, room := range reg.rooms {
		if room.hasPlayer(connID) {
			ids = append(ids, id)
		}
	}

	return ids
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms)
}

func (reg *Registry) SetName(connID, username string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.names[connID] = username
}

func (reg *Registry) Name(connID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	name, ok := reg.names[connID]

	return name, ok
}

func (reg *Registry) ForgetName(connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.names, connID)
}

// ScheduleCleanup arms fire to run after d, replacing any cleanup already
// pending for the room. fire receives the task's generation so it can check,
// via CleanupCurrent, that it has not been superseded.
func (reg *Registry) ScheduleCleanup(id string, d time.Duration, fire func(gen uint64)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if c, ok := reg.cleanups[id]; ok {
		c.timer.Stop()
	}

	reg.cleanupGen++
	gen := reg.cleanupGen

	reg.cleanups[id] = cleanupTask{
		gen:   gen,
		timer: time.AfterFunc(d, func() { fire(gen) }),
	}
}

// CancelCleanup reports whether a pending cleanup was cancelled.
func (reg *Registry) CancelCleanup(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	c, ok := reg.cleanups[id]
	if !ok {
		return false
	}

	c.timer.Stop()
	delete(reg.cleanups, id)

	return true
}

// CleanupCurrent reports whether gen is still the pending cleanup for id.
func (reg *Registry) CleanupCurrent(id string, gen uint64) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	c, ok := reg.cleanups[id]

	return ok && c.gen == gen
}

func (reg *Registry) PendingCleanups() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.cleanups)
}

// Close stops every pending cleanup.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for id, c := range reg.cleanups {
		c.timer.Stop()
		delete(reg.cleanups, id)
	}
}
