package protocol

import (
	"errors"
	"fmt"
	"log"

	"chessroom/internal/metrics"
	"chessroom/internal/rules"
	"chessroom/internal/session"
)

// Conn is one connected participant. Send must not block the caller; a
// transport that cannot deliver tears the connection down through its
// normal disconnect path.
type Conn interface {
	ID() string
	Send(msg ServerMessage)
}

// Broadcaster delivers messages to every connection currently in one
// session's group and never beyond it.
type Broadcaster interface {
	Join(sessionID string, c Conn)
	Leave(sessionID string, c Conn)
	Broadcast(sessionID string, msg ServerMessage)
}

// Handler interprets inbound messages against session state. All state
// lives in the registry; the handler owns no game-specific logic beyond
// turn-order enforcement and role bookkeeping.
type Handler struct {
	registry *session.Registry
	engine   rules.Engine
	group    Broadcaster
}

func NewHandler(registry *session.Registry, engine rules.Engine, group Broadcaster) *Handler {
	return &Handler{registry: registry, engine: engine, group: group}
}

// Handle dispatches one inbound message.
func (h *Handler) Handle(c Conn, msg ClientMessage) {
	if msg.SessionID == "" {
		h.reject(c, "bad_request", errors.New("sessionId is required"))
		return
	}

	switch msg.Type {
	case TypeJoin:
		h.handleJoin(c, msg.SessionID)
	case TypeState:
		h.handleState(c, msg.SessionID)
	case TypeMove:
		h.handleMove(c, msg.SessionID, msg.Move)
	case TypeResign:
		h.handleResign(c, msg.SessionID)
	default:
		h.reject(c, "bad_request", fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (h *Handler) handleJoin(c Conn, id string) {
	// A connection holds at most one session; switching games detaches it
	// from the previous one first, exactly like a disconnect would.
	if prev, ok := h.registry.SessionFor(c.ID()); ok && prev != id {
		h.Disconnect(c)
	}

	h.registry.WithSessionLock(id, func() {
		h.registry.CreateOrGet(id)
		metrics.ActiveSessions.Set(float64(h.registry.Len()))

		asg, err := h.registry.AssignRole(id, c.ID())
		if err != nil {
			h.reject(c, errorKind(err), err)
			return
		}

		h.group.Join(id, c)
		c.Send(roleAssigned(id, asg.Role, asg.Snapshot.Position))

		// Both seats taken by this join: tell the whole table. A reconnect
		// never re-announces.
		if !asg.Reconnect && asg.Snapshot.Status == session.StatusActive {
			h.group.Broadcast(id, opponentJoined(id))
		}
		log.Printf("[game %s] %s joined as %s (reconnect=%t)", id, c.ID(), asg.Role, asg.Reconnect)
	})
}

func (h *Handler) handleState(c Conn, id string) {
	h.registry.WithSessionLock(id, func() {
		snap, ok := h.registry.Get(id)
		if !ok {
			h.reject(c, errorKind(session.ErrSessionNotFound), session.ErrSessionNotFound)
			return
		}
		role, _ := h.registry.RoleOf(id, c.ID())
		c.Send(stateSnapshot(snap, role))
	})
}

func (h *Handler) handleMove(c Conn, id, move string) {
	h.registry.WithSessionLock(id, func() {
		snap, ok := h.registry.Get(id)
		if !ok {
			h.reject(c, errorKind(session.ErrSessionNotFound), session.ErrSessionNotFound)
			return
		}
		role, ok := h.registry.RoleOf(id, c.ID())
		if !ok {
			h.reject(c, errorKind(session.ErrRoleNotAssigned), session.ErrRoleNotAssigned)
			return
		}
		if snap.Status != session.StatusActive {
			h.reject(c, errorKind(session.ErrSessionNotActive), session.ErrSessionNotActive)
			return
		}
		if snap.Turn != role {
			h.reject(c, errorKind(session.ErrNotYourTurn), session.ErrNotYourTurn)
			return
		}

		// The engine call runs under the session gate, not the registry
		// mutex: validation must complete before any mutation and must see
		// a position no concurrent handler can change.
		res, err := h.engine.Apply(snap.Position, move)
		if err != nil {
			h.reject(c, errorKind(err), err)
			return
		}

		after, err := h.registry.RecordMove(id, res.Notation, res.Position)
		if err != nil {
			h.reject(c, errorKind(err), err)
			return
		}

		gameOver, terminal := h.engine.Terminal(after.Position)
		if terminal {
			if err := h.registry.End(id); err == nil {
				after.Status = session.StatusFinished
			}
		}

		metrics.MovesApplied.Inc()
		h.group.Broadcast(id, moveApplied(after, role, res.Notation, gameOver))
		log.Printf("[game %s] %s played %s", id, role, res.Notation)
	})
}

func (h *Handler) handleResign(c Conn, id string) {
	h.registry.WithSessionLock(id, func() {
		if _, ok := h.registry.Get(id); !ok {
			h.reject(c, errorKind(session.ErrSessionNotFound), session.ErrSessionNotFound)
			return
		}
		role, ok := h.registry.RoleOf(id, c.ID())
		if !ok {
			h.reject(c, errorKind(session.ErrRoleNotAssigned), session.ErrRoleNotAssigned)
			return
		}

		if err := h.registry.End(id); err != nil {
			h.reject(c, errorKind(err), err)
			return
		}

		// The broadcast reaches the resigning player too, which doubles as
		// the acknowledgement.
		h.group.Broadcast(id, resigned(id, role))
		log.Printf("[game %s] %s resigned", id, role)
	})
}

// Disconnect handles the transport-level lifecycle event. It is not a
// client message and always succeeds; a session left with one player stays
// active (no auto-forfeit), only an empty session is deleted.
func (h *Handler) Disconnect(c Conn) {
	id, ok := h.registry.SessionFor(c.ID())
	if !ok {
		return
	}

	h.registry.WithSessionLock(id, func() {
		rem := h.registry.RemoveConnection(id, c.ID())
		h.group.Leave(id, c)
		if !rem.Removed {
			return
		}
		log.Printf("[game %s] %s disconnected", id, rem.Role)

		if rem.Empty {
			h.registry.Delete(id)
			metrics.ActiveSessions.Set(float64(h.registry.Len()))
			return
		}
		h.group.Broadcast(id, opponentDisconnected(id))
	})
}

func (h *Handler) reject(c Conn, kind string, err error) {
	metrics.ProtocolErrors.WithLabelValues(kind).Inc()
	c.Send(errorNotice(err.Error()))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, session.ErrSessionFull):
		return "session_full"
	case errors.Is(err, session.ErrNotYourTurn):
		return "turn_violation"
	case errors.Is(err, session.ErrRoleNotAssigned):
		return "no_role"
	case errors.Is(err, session.ErrSessionNotActive):
		return "not_active"
	case errors.Is(err, rules.ErrIllegalMove):
		return "illegal_move"
	default:
		return "internal"
	}
}
