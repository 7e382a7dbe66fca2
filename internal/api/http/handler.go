package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chessroom/internal/session"
)

// @Summary Liveness probe
// @Description Returns pong with the server timestamp
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /ping [get]
func PingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true, "timestamp": time.Now().UTC().Format(time.RFC3339)})
	}
}

// @Summary Health check
// @Description Reports server status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/health [get]
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Server is running", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	}
}

// @Summary Inspect a game session
// @Description Returns status, move count and per-seat connectivity for one game
// @Tags Game
// @Produce json
// @Param id path string true "Game ID"
// @Success 200 {object} GameInfoResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/game/{id} [get]
func GameInfoHandler(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := registry.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		c.JSON(http.StatusOK, GameInfoResponse{
			ID:     snap.ID,
			Status: string(snap.Status),
			Moves:  snap.Moves,
			Players: PlayersInfo{
				White: connectivity(snap.White),
				Black: connectivity(snap.Black),
			},
		})
	}
}

func connectivity(occupied bool) string {
	if occupied {
		return "Connected"
	}
	return "Waiting"
}
