package protocol

import "chessroom/internal/session"

// MessageType discriminates the websocket message surface. The set is
// closed: Handle dispatches by exhaustive switch and unknown types are
// rejected.
type MessageType string

// Client -> server.
const (
	TypeJoin   MessageType = "join"
	TypeState  MessageType = "state"
	TypeMove   MessageType = "move"
	TypeResign MessageType = "resign"
)

// Server -> client.
const (
	TypeRoleAssigned         MessageType = "roleAssigned"
	TypeStateSnapshot        MessageType = "stateSnapshot"
	TypeMoveApplied          MessageType = "moveApplied"
	TypeOpponentJoined       MessageType = "opponentJoined"
	TypeOpponentDisconnected MessageType = "opponentDisconnected"
	TypeResigned             MessageType = "resigned"
	TypeError                MessageType = "error"
)

// ClientMessage is one inbound request. Every request names the session it
// targets; Move is only set for TypeMove.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	Move      string      `json:"move,omitempty"`
}

// ServerMessage is one outbound message. Fields are populated per Type by
// the constructors below; TypeError is the only message ever sent outside
// a session group.
type ServerMessage struct {
	Type      MessageType    `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	Role      session.Role   `json:"role,omitempty"`
	Position  string         `json:"position,omitempty"`
	Turn      session.Role   `json:"turn,omitempty"`
	Status    session.Status `json:"status,omitempty"`
	Move      string         `json:"move,omitempty"`
	GameOver  string         `json:"gameOver,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func roleAssigned(id string, role session.Role, position string) ServerMessage {
	return ServerMessage{
		Type:      TypeRoleAssigned,
		SessionID: id,
		Role:      role,
		Position:  position,
	}
}

func stateSnapshot(snap session.Snapshot, role session.Role) ServerMessage {
	return ServerMessage{
		Type:      TypeStateSnapshot,
		SessionID: snap.ID,
		Role:      role,
		Position:  snap.Position,
		Turn:      snap.Turn,
		Status:    snap.Status,
	}
}

func moveApplied(snap session.Snapshot, acting session.Role, notation, gameOver string) ServerMessage {
	return ServerMessage{
		Type:      TypeMoveApplied,
		SessionID: snap.ID,
		Role:      acting,
		Position:  snap.Position,
		Turn:      snap.Turn,
		Status:    snap.Status,
		Move:      notation,
		GameOver:  gameOver,
	}
}

func opponentJoined(id string) ServerMessage {
	return ServerMessage{Type: TypeOpponentJoined, SessionID: id}
}

func opponentDisconnected(id string) ServerMessage {
	return ServerMessage{Type: TypeOpponentDisconnected, SessionID: id}
}

func resigned(id string, role session.Role) ServerMessage {
	return ServerMessage{Type: TypeResigned, SessionID: id, Role: role}
}

func errorNotice(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
