package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	enginedomain "github.com/pawsentry/pawsentry/internal/alertengine/domain"
)

func (s *Server) SubmitAnalysisEvent(c *gin.Context) {
	var req enginedomain.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.alertSvc.Evaluate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TriggerCheck(c *gin.Context) {
	resp, err := s.alertSvc.TriggerCheck(c.Request.Context(), c.Param("petId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
