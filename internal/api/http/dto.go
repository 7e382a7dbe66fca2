package http

// GameInfoResponse is the read-only introspection payload for a session.
// It exposes no position or move contents.
type GameInfoResponse struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Moves   int         `json:"moves"`
	Players PlayersInfo `json:"players"`
}

// PlayersInfo reports per-role connectivity as "Connected" or "Waiting".
type PlayersInfo struct {
	White string `json:"white"`
	Black string `json:"black"`
}
