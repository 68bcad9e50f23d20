package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Chat      *ChatHandler
	Voice     *VoiceHandler
	Health    *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/documents/ingest", deps.Documents.Ingest)
	api.POST("/documents/delete", deps.Documents.Delete)
	api.POST("/chat", deps.Chat.Chat)
	api.GET("/voice/session", deps.Voice.Session)
	api.GET("/healthz", deps.Health.Health)
}
