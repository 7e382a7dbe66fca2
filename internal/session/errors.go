package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("game not found")
	ErrSessionFull      = errors.New("game is full - both players already joined")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrRoleNotAssigned  = errors.New("you are not a player in this game")
	ErrSessionNotActive = errors.New("game is not active")
)
