package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-triage/model"
	"inbox-triage/service"
)

// EvaluateHandler 对一个会话快照做生命周期判定
func EvaluateHandler(svc *service.TriageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.InboxStateMachineContext
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		c.JSON(http.StatusOK, svc.Evaluate(req))
	}
}
