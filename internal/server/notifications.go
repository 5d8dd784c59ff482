package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/pkg/db/pagination"
)

func (s *Server) CreateNotification(c *gin.Context) {
	var req notifdomain.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	n, err := s.notifSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": n})
}

func (s *Server) ListNotifications(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := notifdomain.ListNotificationsRequest{
		Status:     c.Query("status"),
		Type:       c.Query("type"),
		PetID:      c.Query("pet_id"),
		UnreadOnly: strings.EqualFold(c.Query("unread_only"), "true"),
		Pagination: page,
	}

	resp, err := s.notifSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Items,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) UnreadCount(c *gin.Context) {
	count, err := s.notifSvc.UnreadCount(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unread_count": count}})
}

func (s *Server) NotificationStatistics(c *gin.Context) {
	days := 0
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		days = parsed
	}

	stats, err := s.notifSvc.Statistics(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	n, err := s.notifSvc.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": n})
}

func (s *Server) MarkManyNotificationsRead(c *gin.Context) {
	var req notifdomain.MarkManyReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.notifSvc.MarkManyRead(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": updated}})
}

func (s *Server) ArchiveNotification(c *gin.Context) {
	n, err := s.notifSvc.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": n})
}

func (s *Server) DeleteNotification(c *gin.Context) {
	if err := s.notifSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
