package protocol_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"chessroom/internal/protocol"
	"chessroom/internal/rules"
	"chessroom/internal/session"
)

// fakeConn records everything unicast to it.
type fakeConn struct {
	id   string
	msgs []protocol.ServerMessage
}

func (c *fakeConn) ID() string                        { return c.id }
func (c *fakeConn) Send(msg protocol.ServerMessage)   { c.msgs = append(c.msgs, msg) }
func (c *fakeConn) last() protocol.ServerMessage      { return c.msgs[len(c.msgs)-1] }
func (c *fakeConn) ofType(t protocol.MessageType) int {
	n := 0
	for _, m := range c.msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

// fakeGroup fans broadcasts out to joined members and keeps a log per
// session so tests can assert scoping.
type fakeGroup struct {
	members    map[string]map[protocol.Conn]struct{}
	broadcasts map[string][]protocol.ServerMessage
}

func newFakeGroup() *fakeGroup {
	return &fakeGroup{
		members:    make(map[string]map[protocol.Conn]struct{}),
		broadcasts: make(map[string][]protocol.ServerMessage),
	}
}

func (g *fakeGroup) Join(id string, c protocol.Conn) {
	if g.members[id] == nil {
		g.members[id] = make(map[protocol.Conn]struct{})
	}
	g.members[id][c] = struct{}{}
}

func (g *fakeGroup) Leave(id string, c protocol.Conn) {
	delete(g.members[id], c)
}

func (g *fakeGroup) Broadcast(id string, msg protocol.ServerMessage) {
	g.broadcasts[id] = append(g.broadcasts[id], msg)
	for c := range g.members[id] {
		c.Send(msg)
	}
}

func (g *fakeGroup) ofType(id string, t protocol.MessageType) int {
	n := 0
	for _, m := range g.broadcasts[id] {
		if m.Type == t {
			n++
		}
	}
	return n
}

// scriptEngine walks positions P0 -> P1 -> P2 ... and rejects the move
// "bad". It keeps the handler tests free of chess.
type scriptEngine struct {
	terminalAt string
	reason     string
}

func (e *scriptEngine) Apply(position, move string) (rules.Result, error) {
	if move == "bad" {
		return rules.Result{}, fmt.Errorf("%w: %s", rules.ErrIllegalMove, move)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(position, "P"))
	if err != nil {
		return rules.Result{}, fmt.Errorf("bad position %q", position)
	}
	return rules.Result{Position: fmt.Sprintf("P%d", n+1), Notation: move}, nil
}

func (e *scriptEngine) Terminal(position string) (string, bool) {
	if e.terminalAt != "" && position == e.terminalAt {
		return e.reason, true
	}
	return "", false
}

func newHandler(eng rules.Engine) (*protocol.Handler, *session.Registry, *fakeGroup) {
	reg := session.NewRegistry("P0")
	group := newFakeGroup()
	return protocol.NewHandler(reg, eng, group), reg, group
}

func join(h *protocol.Handler, c protocol.Conn, id string) {
	h.Handle(c, protocol.ClientMessage{Type: protocol.TypeJoin, SessionID: id})
}

func move(h *protocol.Handler, c protocol.Conn, id, m string) {
	h.Handle(c, protocol.ClientMessage{Type: protocol.TypeMove, SessionID: id, Move: m})
}

func TestJoinAssignsRolesAndAnnouncesOnce(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}

	join(h, a, "g1")
	if got := a.last(); got.Type != protocol.TypeRoleAssigned || got.Role != session.RoleWhite || got.Position != "P0" {
		t.Fatalf("first join reply = %+v, want white at P0", got)
	}
	if group.ofType("g1", protocol.TypeOpponentJoined) != 0 {
		t.Fatal("opponentJoined announced before second player")
	}

	join(h, b, "g1")
	if got := b.msgs[0]; got.Type != protocol.TypeRoleAssigned || got.Role != session.RoleBlack {
		t.Fatalf("second join reply = %+v, want black", got)
	}
	if group.ofType("g1", protocol.TypeOpponentJoined) != 1 {
		t.Fatalf("opponentJoined broadcast %d times, want 1", group.ofType("g1", protocol.TypeOpponentJoined))
	}
	if a.ofType(protocol.TypeOpponentJoined) != 1 || b.ofType(protocol.TypeOpponentJoined) != 1 {
		t.Fatal("both players should receive opponentJoined")
	}
	if snap, _ := reg.Get("g1"); snap.Status != session.StatusActive {
		t.Fatalf("status = %s, want active", snap.Status)
	}
}

func TestRejoinKeepsRoleWithoutReannouncing(t *testing.T) {
	h, _, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}

	join(h, a, "g1")
	join(h, b, "g1")
	join(h, a, "g1")

	assignments := []protocol.ServerMessage{}
	for _, m := range a.msgs {
		if m.Type == protocol.TypeRoleAssigned {
			assignments = append(assignments, m)
		}
	}
	if len(assignments) != 2 {
		t.Fatalf("got %d role assignments, want 2", len(assignments))
	}
	if assignments[0].Role != assignments[1].Role {
		t.Fatalf("rejoin changed role: %s then %s", assignments[0].Role, assignments[1].Role)
	}
	if group.ofType("g1", protocol.TypeOpponentJoined) != 1 {
		t.Fatal("rejoin produced a duplicate opponentJoined broadcast")
	}
}

func TestThirdJoinRejectedUnicast(t *testing.T) {
	h, _, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	c := &fakeConn{id: "conn-c"}

	join(h, a, "g1")
	join(h, b, "g1")
	join(h, c, "g1")

	if got := c.last(); got.Type != protocol.TypeError {
		t.Fatalf("third join reply = %+v, want error", got)
	}
	if _, ok := group.members["g1"][c]; ok {
		t.Fatal("rejected connection was added to the group")
	}
	if group.ofType("g1", protocol.TypeError) != 0 {
		t.Fatal("error was broadcast to the group")
	}
}

func TestMoveFlowScenario(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	move(h, a, "g1", "m1")
	if got := a.last(); got.Type != protocol.TypeMoveApplied || got.Position != "P1" || got.Turn != session.RoleBlack {
		t.Fatalf("after m1 = %+v, want P1 with black to move", got)
	}
	if a.ofType(protocol.TypeMoveApplied) != 1 || b.ofType(protocol.TypeMoveApplied) != 1 {
		t.Fatal("moveApplied should reach both players")
	}

	// The same move text is fine once the turn has flipped.
	move(h, b, "g1", "m1")
	if got := b.last(); got.Position != "P2" || got.Turn != session.RoleWhite {
		t.Fatalf("after second move = %+v, want P2 with white to move", got)
	}

	snap, _ := reg.Get("g1")
	if snap.Moves != group.ofType("g1", protocol.TypeMoveApplied) {
		t.Fatalf("move log %d != moveApplied broadcasts %d", snap.Moves, group.ofType("g1", protocol.TypeMoveApplied))
	}
}

func TestMoveOutOfTurn(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	move(h, b, "g1", "m1")
	if got := b.last(); got.Type != protocol.TypeError {
		t.Fatalf("out-of-turn reply = %+v, want error", got)
	}
	snap, _ := reg.Get("g1")
	if snap.Moves != 0 || snap.Position != "P0" || snap.Turn != session.RoleWhite {
		t.Fatalf("rejected move mutated session: %+v", snap)
	}
	if group.ofType("g1", protocol.TypeMoveApplied) != 0 {
		t.Fatal("rejected move was broadcast")
	}
}

func TestMovePreconditions(t *testing.T) {
	h, _, _ := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	c := &fakeConn{id: "conn-c"}

	// Unknown session.
	move(h, a, "nope", "m1")
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("move on unknown session = %+v, want error", got)
	}

	// Waiting session: joined but no opponent yet.
	join(h, a, "g1")
	move(h, a, "g1", "m1")
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("move while waiting = %+v, want error", got)
	}

	// No role in an active session.
	b := &fakeConn{id: "conn-b"}
	join(h, b, "g1")
	move(h, c, "g1", "m1")
	if got := c.last(); got.Type != protocol.TypeError {
		t.Fatalf("move without role = %+v, want error", got)
	}
}

func TestIllegalMoveLeavesStateUntouched(t *testing.T) {
	h, reg, _ := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	move(h, a, "g1", "bad")
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("illegal move reply = %+v, want error", got)
	}
	snap, _ := reg.Get("g1")
	if snap.Moves != 0 || snap.Turn != session.RoleWhite {
		t.Fatalf("illegal move mutated session: %+v", snap)
	}

	// Still white's move and the session is intact.
	move(h, a, "g1", "m1")
	if got := a.last(); got.Type != protocol.TypeMoveApplied {
		t.Fatalf("follow-up move = %+v, want applied", got)
	}
}

func TestTerminalMoveFinishesSession(t *testing.T) {
	h, reg, _ := newHandler(&scriptEngine{terminalAt: "P1", reason: "checkmate"})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	move(h, a, "g1", "m1")
	got := b.last()
	if got.Type != protocol.TypeMoveApplied || got.GameOver != "checkmate" || got.Status != session.StatusFinished {
		t.Fatalf("terminal broadcast = %+v, want finished with checkmate", got)
	}
	if snap, _ := reg.Get("g1"); snap.Status != session.StatusFinished {
		t.Fatalf("status = %s, want finished", snap.Status)
	}

	move(h, b, "g1", "m2")
	if got := b.last(); got.Type != protocol.TypeError {
		t.Fatalf("move after game over = %+v, want error", got)
	}
}

func TestResign(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	h.Handle(a, protocol.ClientMessage{Type: protocol.TypeResign, SessionID: "g1"})
	if group.ofType("g1", protocol.TypeResigned) != 1 {
		t.Fatal("resignation not broadcast")
	}
	if got := b.last(); got.Type != protocol.TypeResigned || got.Role != session.RoleWhite {
		t.Fatalf("resignation broadcast = %+v, want white resigned", got)
	}
	if snap, _ := reg.Get("g1"); snap.Status != session.StatusFinished {
		t.Fatalf("status = %s, want finished", snap.Status)
	}

	// Resigning without a role or on an unknown session is an error.
	c := &fakeConn{id: "conn-c"}
	h.Handle(c, protocol.ClientMessage{Type: protocol.TypeResign, SessionID: "g1"})
	if got := c.last(); got.Type != protocol.TypeError {
		t.Fatalf("resign without role = %+v, want error", got)
	}
	h.Handle(a, protocol.ClientMessage{Type: protocol.TypeResign, SessionID: "missing"})
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("resign on unknown session = %+v, want error", got)
	}
}

func TestRequestState(t *testing.T) {
	h, _, _ := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}

	h.Handle(a, protocol.ClientMessage{Type: protocol.TypeState, SessionID: "missing"})
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("state of unknown session = %+v, want error", got)
	}

	join(h, a, "g1")
	h.Handle(a, protocol.ClientMessage{Type: protocol.TypeState, SessionID: "g1"})
	got := a.last()
	if got.Type != protocol.TypeStateSnapshot || got.Position != "P0" || got.Role != session.RoleWhite || got.Status != session.StatusWaiting {
		t.Fatalf("snapshot = %+v, want waiting P0 as white", got)
	}
}

func TestDisconnectKeepsSessionActive(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	h.Disconnect(a)
	if group.ofType("g1", protocol.TypeOpponentDisconnected) != 1 {
		t.Fatal("opponentDisconnected not broadcast")
	}
	snap, _ := reg.Get("g1")
	if snap.Status != session.StatusActive {
		t.Fatalf("status after one disconnect = %s, want active (no auto-forfeit)", snap.Status)
	}
	if _, ok := reg.RoleOf("g1", "conn-a"); ok {
		t.Fatal("disconnected connection still holds a role")
	}

	h.Disconnect(b)
	if _, ok := reg.Get("g1"); ok {
		t.Fatal("session survived both players leaving")
	}

	// A stranger's disconnect is a no-op.
	h.Disconnect(&fakeConn{id: "conn-x"})
}

func TestJoinNewSessionDetachesFromOld(t *testing.T) {
	h, reg, group := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	join(h, a, "g1")
	join(h, b, "g1")

	join(h, a, "g2")
	if got := a.last(); got.Type != protocol.TypeRoleAssigned || got.SessionID != "g2" {
		t.Fatalf("join g2 reply = %+v, want role in g2", got)
	}
	if group.ofType("g1", protocol.TypeOpponentDisconnected) != 1 {
		t.Fatal("old session not told about the departure")
	}
	if _, ok := reg.RoleOf("g1", "conn-a"); ok {
		t.Fatal("connection still holds a role in the old session")
	}
}

func TestUnknownTypeAndMissingSessionID(t *testing.T) {
	h, _, _ := newHandler(&scriptEngine{})
	a := &fakeConn{id: "conn-a"}

	h.Handle(a, protocol.ClientMessage{Type: "dance", SessionID: "g1"})
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("unknown type reply = %+v, want error", got)
	}

	h.Handle(a, protocol.ClientMessage{Type: protocol.TypeJoin})
	if got := a.last(); got.Type != protocol.TypeError {
		t.Fatalf("missing sessionId reply = %+v, want error", got)
	}
}
