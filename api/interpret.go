package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-triage/model"
	"inbox-triage/service"
)

// InterpretHandler 执行一次歧义消解尝试
// 尝试失败不返回5xx：结局分类在响应体里，调用方把缺失的判读当"无法确定"
func InterpretHandler(svc *service.TriageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.AiAttemptInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		if req.ConversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
			return
		}

		c.JSON(http.StatusOK, svc.Interpret(c.Request.Context(), req))
	}
}

// RunStatsHandler 查询一个同步批次的压缩统计
func RunStatsHandler(svc *service.TriageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")
		summary, ok := svc.RunSummary(runID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}
