package session

import (
	"sync"
	"time"
)

// Registry is the authoritative table of sessions plus the reverse index
// from connection identity to session id. Every operation is atomic with
// respect to concurrent callers: the registry mutex is held for the whole
// read-modify-write of one operation and never across external calls.
//
// WithSessionLock additionally serializes multi-operation transitions
// (validate, mutate, broadcast) for a single session id without blocking
// work on other sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byConn   map[string]string
	gatesMu  sync.Mutex
	gates    map[string]*gate
	startPos string
}

// gate is one session's serialization mutex. refs counts holders plus
// waiters; the table entry is only pruned when refs drops to zero, so a
// waiter never ends up on a mutex that is no longer the one in the table.
type gate struct {
	mu   sync.Mutex
	refs int
}

// NewRegistry returns an empty registry. New sessions start from
// startingPosition with white to move.
func NewRegistry(startingPosition string) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byConn:   make(map[string]string),
		gates:    make(map[string]*gate),
		startPos: startingPosition,
	}
}

// WithSessionLock runs fn while holding the serialization gate for id. Two
// transitions for the same id never interleave, even across a Delete or
// Sweep of that id; transitions for different ids run concurrently.
func (r *Registry) WithSessionLock(id string, fn func()) {
	g := r.lockSession(id)
	defer r.unlockSession(id, g)
	fn()
}

func (r *Registry) lockSession(id string) *gate {
	r.gatesMu.Lock()
	g, ok := r.gates[id]
	if !ok {
		g = &gate{}
		r.gates[id] = g
	}
	g.refs++
	r.gatesMu.Unlock()

	g.mu.Lock()
	return g
}

func (r *Registry) unlockSession(id string, g *gate) {
	g.mu.Unlock()

	r.gatesMu.Lock()
	g.refs--
	if g.refs == 0 {
		delete(r.gates, id)
	}
	r.gatesMu.Unlock()
}

// CreateOrGet returns the session for id, creating it in its default state
// if unknown. It never overwrites an existing session.
func (r *Registry) CreateOrGet(id string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s.snapshot()
	}

	now := time.Now()
	s := &Session{
		ID:           id,
		Players:      map[Role]string{RoleWhite: "", RoleBlack: ""},
		Position:     r.startPos,
		Turn:         RoleWhite,
		Status:       StatusWaiting,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.sessions[id] = s
	return s.snapshot()
}

// Get returns the session for id without creating it.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// SessionFor returns the session id a connection is currently assigned to.
func (r *Registry) SessionFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byConn[connID]
	return id, ok
}

// RoleOf returns the role connID holds in session id, if any.
func (r *Registry) RoleOf(id, connID string) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || connID == "" {
		return "", false
	}
	for _, role := range []Role{RoleWhite, RoleBlack} {
		if s.Players[role] == connID {
			return role, true
		}
	}
	return "", false
}

// AssignRole gives connID a slot in session id. A connection that already
// holds a slot gets the same role back flagged as a reconnect, with no
// mutation. Otherwise the first open slot in canonical order (white, then
// black) is filled; filling the second slot activates the session.
func (r *Registry) AssignRole(id, connID string) (Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Assignment{}, ErrSessionNotFound
	}

	// Reconnect detection must precede slot filling so a returning player
	// is never rejected as a third party.
	for _, role := range []Role{RoleWhite, RoleBlack} {
		if s.Players[role] == connID {
			return Assignment{Role: role, Reconnect: true, Snapshot: s.snapshot()}, nil
		}
	}

	var assigned Role
	switch {
	case s.Players[RoleWhite] == "":
		assigned = RoleWhite
	case s.Players[RoleBlack] == "":
		assigned = RoleBlack
	default:
		return Assignment{}, ErrSessionFull
	}

	s.Players[assigned] = connID
	r.byConn[connID] = id
	if s.Players[RoleWhite] != "" && s.Players[RoleBlack] != "" && s.Status == StatusWaiting {
		s.Status = StatusActive
	}
	s.LastActivity = time.Now()

	return Assignment{Role: assigned, Snapshot: s.snapshot()}, nil
}

// RemoveConnection clears the slot held by connID and its reverse-index
// entry. When the last slot empties the session is marked finished and
// reported Empty so the caller can delete it.
func (r *Registry) RemoveConnection(id, connID string) Removal {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byConn, connID)

	s, ok := r.sessions[id]
	if !ok {
		return Removal{}
	}

	var rem Removal
	for _, role := range []Role{RoleWhite, RoleBlack} {
		if s.Players[role] == connID {
			s.Players[role] = ""
			rem = Removal{Role: role, Removed: true}
			break
		}
	}
	if !rem.Removed {
		return rem
	}

	s.LastActivity = time.Now()
	if s.empty() {
		s.Status = StatusFinished
		rem.Empty = true
	}
	return rem
}

// RecordMove appends a move to the log, replaces the position and flips the
// turn. The move log is the sole source of truth for moves played.
func (r *Registry) RecordMove(id, notation, position string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}

	s.Moves = append(s.Moves, MoveRecord{Notation: notation, PlayedAt: time.Now()})
	s.Position = position
	s.Turn = s.Turn.Other()
	s.LastActivity = time.Now()
	return s.snapshot(), nil
}

// End marks the session finished. The record is retained for inspection
// until deleted explicitly or swept.
func (r *Registry) End(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = StatusFinished
	s.LastActivity = time.Now()
	return nil
}

// Delete removes the session and any reverse-index entries pointing at it.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(id)
}

func (r *Registry) deleteLocked(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	for _, connID := range s.Players {
		if connID != "" {
			delete(r.byConn, connID)
		}
	}
	delete(r.sessions, id)
}

// Sweep deletes every session with no assigned slots and every session
// idle longer than maxAge, regardless of occupancy. Candidates are
// collected under a read lock and each deletion is re-checked under the
// session gate so the sweep never interrupts an in-flight transition.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.RLock()
	candidates := make([]string, 0)
	for id, s := range r.sessions {
		if s.empty() || s.LastActivity.Before(cutoff) {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	deleted := 0
	for _, id := range candidates {
		r.WithSessionLock(id, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			s, ok := r.sessions[id]
			if !ok {
				return
			}
			if !s.empty() && !s.LastActivity.Before(cutoff) {
				return // revived since the scan
			}
			r.deleteLocked(id)
			deleted++
		})
	}
	return deleted
}

// Len reports the number of sessions currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
