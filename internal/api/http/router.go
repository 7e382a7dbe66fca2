package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"chessroom/internal/api/ws"
	"chessroom/internal/config"
	"chessroom/internal/protocol"
	"chessroom/internal/session"
)

func NewRouter(cfg *config.Config, registry *session.Registry, hub *ws.Hub, handler *protocol.Handler) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg)))

	// WebSocket endpoint for gameplay
	r.GET("/ws", hub.HandleWS(handler))

	// --- HEALTH ENDPOINTS ---
	r.GET("/ping", PingHandler())
	r.GET("/api/health", HealthHandler())

	// --- GAME ENDPOINTS ---
	r.GET("/api/game/:id", GameInfoHandler(registry))

	// --- OBSERVABILITY ---
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST"}

	allowAll := len(cfg.AllowedOrigins) == 0
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
