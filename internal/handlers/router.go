package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/pipeline-board/internal/services"
)

// NewRouter wires every route under /api/v1.
func NewRouter(users *services.UserService, apps *ApplicationHandler, boards *BoardHandler, origins []string) *gin.Engine {
	r := gin.Default()

	config := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", UserHeader}
	r.Use(cors.New(config))

	api := r.Group("/api/v1")
	api.GET("/health", HealthCheck)

	scoped := api.Group("", RequireUser(users))
	{
		// Application Routes
		scoped.POST("/applications", apps.CreateApplication)
		scoped.DELETE("/applications/:id", apps.DeleteApplication)
		scoped.GET("/applications/:id/events", apps.ListEvents)

		// Board Routes
		scoped.GET("/board", boards.GetBoard)
		scoped.PUT("/board/sort", boards.SetSort)
		scoped.POST("/board/moves", boards.Move)
		scoped.POST("/board/gestures", boards.Gesture)
		scoped.POST("/board/reload", boards.Reload)
	}
	return r
}
