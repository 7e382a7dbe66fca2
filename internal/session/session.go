package session

import "time"

// Role identifies one of the two player slots in a session. White moves
// first and is assigned first.
type Role string

const (
	RoleWhite Role = "white"
	RoleBlack Role = "black"
)

// Other returns the opposing role.
func (r Role) Other() Role {
	if r == RoleWhite {
		return RoleBlack
	}
	return RoleWhite
}

// Status is the lifecycle state of a session. It moves waiting -> active
// exactly once and never leaves finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// MoveRecord is one accepted move in a session's append-only log.
type MoveRecord struct {
	Notation string    `json:"notation"`
	PlayedAt time.Time `json:"playedAt"`
}

// Session is one two-party game. Instances are owned exclusively by the
// Registry; other packages only ever see Snapshots.
type Session struct {
	ID           string
	Players      map[Role]string // role -> connection id, "" while open
	Position     string
	Moves        []MoveRecord
	Turn         Role
	Status       Status
	CreatedAt    time.Time
	LastActivity time.Time
}

func (s *Session) empty() bool {
	return s.Players[RoleWhite] == "" && s.Players[RoleBlack] == ""
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID,
		Status:   s.Status,
		Turn:     s.Turn,
		Position: s.Position,
		Moves:    len(s.Moves),
		White:    s.Players[RoleWhite] != "",
		Black:    s.Players[RoleBlack] != "",
	}
}

// Snapshot is a read-only copy of a session's observable state.
type Snapshot struct {
	ID       string
	Status   Status
	Turn     Role
	Position string
	Moves    int
	White    bool
	Black    bool
}

// Assignment is the result of AssignRole.
type Assignment struct {
	Role      Role
	Reconnect bool
	Snapshot  Snapshot
}

// Removal is the result of RemoveConnection.
type Removal struct {
	Role    Role
	Removed bool
	Empty   bool
}
