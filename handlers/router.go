package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparrow/middleware"
	"sparrow/services"
)

type RouterDeps struct {
	Registry *services.Registry
	Catalog  services.SessionCatalog
	// Redis and Publisher are optional; without them /ws/events answers 503.
	Redis          *redis.Client
	Publisher      *services.RedisPublisher
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires every HTTP and WebSocket route.
func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sessionsHandler := NewSessionsHandler(deps.Catalog)
	conversationsHandler := NewConversationsHandler(deps.Registry, deps.Catalog)
	chatHandler := NewChatHandler(deps.Registry, deps.AllowedOrigins, log)
	syncHandler := NewSyncHandler(deps.Redis, deps.Publisher, deps.AllowedOrigins, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.GET("/", Root)

	api := r.Group("/api")
	{
		api.GET("/health", Health)
		api.GET("/sessions", sessionsHandler.List)

		// Conversations
		api.POST("/conversations", conversationsHandler.Create)
		api.GET("/conversations/:id", conversationsHandler.Get)
		api.DELETE("/conversations/:id", conversationsHandler.Delete)
		api.POST("/conversations/:id/messages", conversationsHandler.SendMessage)
		api.POST("/conversations/:id/reset", conversationsHandler.Reset)
		api.PUT("/conversations/:id/session", conversationsHandler.SelectSession)
		api.PUT("/conversations/:id/view", conversationsHandler.SetView)
	}

	// WebSocket routes
	r.GET("/ws/chat/:id", chatHandler.HandleWebSocket)
	r.GET("/ws/events/:id", syncHandler.HandleWebSocket)

	return r
}
