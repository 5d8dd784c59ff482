package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawsentry/pawsentry/internal/alertengine"
	enginedomain "github.com/pawsentry/pawsentry/internal/alertengine/domain"
	"github.com/pawsentry/pawsentry/internal/alertrule"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/pawsentry/pawsentry/internal/config"
	"github.com/pawsentry/pawsentry/internal/dispatch"
	"github.com/pawsentry/pawsentry/internal/notification"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/observability"
	obsmiddleware "github.com/pawsentry/pawsentry/internal/observability/logger"
	obsmetrics "github.com/pawsentry/pawsentry/internal/observability/metrics"
	obstracing "github.com/pawsentry/pawsentry/internal/observability/tracing"
	"github.com/pawsentry/pawsentry/internal/providers"
	"github.com/pawsentry/pawsentry/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	ratelimit.Module,
	dispatch.Module,
	alertrule.Module,
	notification.Module,
	alertengine.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	ruleSvc  ruledomain.Service
	notifSvc notifdomain.Service
	alertSvc enginedomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	RuleSvc  ruledomain.Service
	NotifSvc notifdomain.Service
	AlertSvc enginedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		ruleSvc:  p.RuleSvc,
		notifSvc: p.NotifSvc,
		alertSvc: p.AlertSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", OwnerRequired())

	api.POST("/alert-rules", s.CreateAlertRule)
	api.GET("/alert-rules", s.ListAlertRules)
	api.GET("/alert-rules/:id", s.GetAlertRule)
	api.PATCH("/alert-rules/:id", s.UpdateAlertRule)
	api.DELETE("/alert-rules/:id", s.DeleteAlertRule)

	api.POST("/analysis-events", s.SubmitAnalysisEvent)
	api.POST("/pets/:petId/trigger-check", s.TriggerCheck)

	api.POST("/notifications", s.CreateNotification)
	api.GET("/notifications", s.ListNotifications)
	api.GET("/notifications/unread-count", s.UnreadCount)
	api.GET("/notifications/statistics", s.NotificationStatistics)
	api.POST("/notifications/read", s.MarkManyNotificationsRead)
	api.POST("/notifications/:id/read", s.MarkNotificationRead)
	api.POST("/notifications/:id/archive", s.ArchiveNotification)
	api.DELETE("/notifications/:id", s.DeleteNotification)

	api.GET("/notification-settings", s.GetNotificationSettings)
	api.PUT("/notification-settings", s.UpdateNotificationSettings)
}
