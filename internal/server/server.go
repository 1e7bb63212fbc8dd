// Package server exposes the back-office HTTP surface: cron triggers, the
// subscription and invoice views, and the notification inbox.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/kekeligroup/backoffice/internal/billing"
	"github.com/kekeligroup/backoffice/internal/clock"
	billingdomain "github.com/kekeligroup/backoffice/internal/billing/domain"
	"github.com/kekeligroup/backoffice/internal/config"
	"github.com/kekeligroup/backoffice/internal/delinquency"
	delinquencydomain "github.com/kekeligroup/backoffice/internal/delinquency/domain"
	"github.com/kekeligroup/backoffice/internal/invoice"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	"github.com/kekeligroup/backoffice/internal/notification"
	notificationdomain "github.com/kekeligroup/backoffice/internal/notification/domain"
	"github.com/kekeligroup/backoffice/internal/observability"
	obsmiddleware "github.com/kekeligroup/backoffice/internal/observability/logger"
	obsmetrics "github.com/kekeligroup/backoffice/internal/observability/metrics"
	"github.com/kekeligroup/backoffice/internal/providers/email"
	"github.com/kekeligroup/backoffice/internal/subscription"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	email.Module,
	billing.Module,
	subscription.Module,
	invoice.Module,
	notification.Module,
	delinquency.Module,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	clock           clock.Clock
	billingSvc      billingdomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	notificationSvc notificationdomain.Service
	delinquencySvc  delinquencydomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	Clock           clock.Clock
	BillingSvc      billingdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	NotificationSvc notificationdomain.Service
	DelinquencySvc  delinquencydomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		clock:           p.Clock,
		billingSvc:      p.BillingSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		notificationSvc: p.NotificationSvc,
		delinquencySvc:  p.DelinquencySvc,
	}

	svc.registerCronRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCronRoutes() {
	cron := s.engine.Group("/api/cron", s.CronAuthRequired())

	cron.POST("/generate-invoices", s.CronGenerateInvoices)
	cron.POST("/check-late-payments", s.CronCheckLatePayments)
	cron.POST("/reconcile-status", s.CronReconcileStatus)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	abonnements := api.Group("/abonnements")
	abonnements.POST("", s.CreateSubscription)
	abonnements.GET("", s.ListSubscriptions)
	abonnements.GET("/:id", s.GetSubscriptionByID)
	abonnements.PATCH("/:id", s.UpdateSubscription)
	abonnements.POST("/:id/annuler", s.CancelSubscription)

	factures := api.Group("/factures")
	factures.GET("", s.ListInvoices)
	factures.GET("/:id", s.GetInvoiceByID)
	factures.GET("/a-venir", s.UpcomingInvoices)

	paiements := api.Group("/paiements", s.ObserverRequired())
	paiements.GET("/check-late", s.CheckLatePaymentsAndNotify)
	paiements.POST("/check-late", s.ListLatePayments)

	notifications := api.Group("/notifications")
	notifications.GET("", s.ListNotifications)
	notifications.POST("/:id/lue", s.MarkNotificationRead)
}
