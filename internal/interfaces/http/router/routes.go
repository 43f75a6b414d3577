package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 星盘与人格
	v1.POST("/charts", h.Chart.ComputeChart)
	v1.POST("/personas", h.Persona.GeneratePersona)
	v1.POST("/orchestrate", h.Orchestrate.Orchestrate)
	v1.GET("/geocode", h.Geocode.Search)

	// 会话
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", h.Session.CreateSession)
		sessions.GET("/:sid", h.Session.GetSession)
		sessions.DELETE("/:sid", h.Session.DeleteSession)

		sessions.GET("/:sid/messages", h.Session.ListMessages)
		sessions.POST("/:sid/messages", h.Session.SendMessage)
		sessions.DELETE("/:sid/messages", h.Session.ClearMessages)
		sessions.PATCH("/:sid/messages/:mid", h.Session.UpdateMessage)
	}
}
