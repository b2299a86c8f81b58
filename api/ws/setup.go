package ws

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the websocket endpoint on the router.
func RegisterRoutes(engine *gin.Engine, cfg WSConfig) {
	engine.GET("/ws", gin.WrapF(HandleWebSocket(cfg)))
}
