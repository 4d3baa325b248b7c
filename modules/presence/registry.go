// Package presence tracks which live connections are joined to which user room.
package presence

import (
	"log"
	"sort"
	"sync"

	"github.com/tomershatz123/chat123/domain/chat"
)

// Registry maps rooms to the set of live connections joined to them.
// It is the only owner of the membership map; every access goes through its lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string              // connID -> room ("" while unbound)
	rooms map[string]map[string]struct{} // room -> set of connIDs
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]string),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register starts tracking a connection. Registering twice is a no-op.
func (r *Registry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return
	}
	r.conns[connID] = ""
}

// Bind makes connID a member of the room of userID.
// A connection belongs to at most one room, so binding to a new room leaves the old one.
// It returns false when the connection is unknown, which happens when a join
// races with a disconnect.
func (r *Registry) Bind(connID string, userID chat.UserID) bool {
	room := userID.Room()

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[connID]
	if !ok {
		log.Printf("[presence] Bind ignored: connection %s is not registered", connID)
		return false
	}
	if current == room {
		return true
	}
	if current != "" {
		r.leaveLocked(connID, current)
	}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[connID] = struct{}{}
	r.conns[connID] = room
	return true
}

// UnbindAll removes every membership held by connID. The connection stays registered.
func (r *Registry) UnbindAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.conns[connID]
	if !ok || room == "" {
		return
	}
	r.leaveLocked(connID, room)
	r.conns[connID] = ""
}

// Unregister removes every membership held by connID and forgets the connection.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.conns[connID]
	if !ok {
		return
	}
	if room != "" {
		r.leaveLocked(connID, room)
	}
	delete(r.conns, connID)
}

// MembersOf returns the connections joined to the room of userID, sorted.
// An empty result means the user is offline.
func (r *Registry) MembersOf(userID chat.UserID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[userID.Room()]
	if len(members) == 0 {
		return nil
	}
	result := make([]string, 0, len(members))
	for connID := range members {
		result = append(result, connID)
	}
	sort.Strings(result)
	return result
}

// RoomOf returns the room connID is joined to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.conns[connID]
	if !ok || room == "" {
		return "", false
	}
	return room, true
}

// IsRegistered reports whether connID is tracked.
func (r *Registry) IsRegistered(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

// ConnectionCount returns the number of tracked connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) leaveLocked(connID, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}
