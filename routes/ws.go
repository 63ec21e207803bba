package routes

import (
	"github.com/gin-gonic/gin"

	"conference-booking-server/middleware"
	ws "conference-booking-server/websocket"
)

// RegisterEventFeedRoutes registers the admin websocket feed
func RegisterEventFeedRoutes(router *gin.RouterGroup, hub *ws.Hub) {
	router.GET("/admin", func(c *gin.Context) {
		actor, _ := middleware.CurrentUser(c)
		ws.ServeAdminFeed(hub, c.Writer, c.Request, actor.ID)
	})
}
