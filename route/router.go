package route

import (
	"inbox-triage/api"
	"inbox-triage/service"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, svc *service.TriageService) {

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 收件箱分流接口分组
	inboxGroup := r.Group("/inbox")
	{
		inboxGroup.POST("/evaluate", api.EvaluateHandler(svc))
		inboxGroup.POST("/interpret", api.InterpretHandler(svc))
		inboxGroup.GET("/runs/:run_id/stats", api.RunStatsHandler(svc))
	}
}
