package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
)

func (s *Server) GetNotificationSettings(c *gin.Context) {
	settings, err := s.notifSvc.GetSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) UpdateNotificationSettings(c *gin.Context) {
	var req notifdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settings, err := s.notifSvc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}
