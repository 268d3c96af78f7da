package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/edubill/internal/audit"
	auditdomain "github.com/smallbiznis/edubill/internal/audit/domain"
	"github.com/smallbiznis/edubill/internal/authorization"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/invoice"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	numberdomain "github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"github.com/smallbiznis/edubill/internal/observability"
	obsmiddleware "github.com/smallbiznis/edubill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/edubill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/edubill/internal/observability/tracing"
	"github.com/smallbiznis/edubill/internal/ratelimit"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	audit.Module,
	invoice.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	authzSvc   authorization.Service
	invoiceSvc invoicedomain.Service
	allocator  numberdomain.Allocator
	taxSvc     taxdomain.Service
	auditSvc   auditdomain.Service

	obsMetrics      *obsmetrics.Metrics
	validateLimiter *ratelimit.NumberValidationLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	AuthzSvc   authorization.Service
	InvoiceSvc invoicedomain.Service
	Allocator  numberdomain.Allocator
	TaxSvc     taxdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`

	ObsMetrics      *obsmetrics.Metrics                `optional:"true"`
	ValidateLimiter *ratelimit.NumberValidationLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authzSvc:        p.AuthzSvc,
		invoiceSvc:      p.InvoiceSvc,
		allocator:       p.Allocator,
		taxSvc:          p.TaxSvc,
		auditSvc:        p.AuditSvc,
		obsMetrics:      p.ObsMetrics,
		validateLimiter: p.ValidateLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(OrgContext())
	api.Use(ActorContext())

	// -------- Invoices --------
	api.GET("/invoices", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.POST("/invoices", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
	api.POST("/invoices/preview", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoicePreview), s.PreviewInvoice)
	api.GET("/invoices/:id", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.DownloadInvoicePDF)
	api.POST("/invoices/:id/void", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceVoid), s.VoidInvoice)

	// -------- Invoice numbers --------
	api.GET("/invoice-numbers/next", s.authorizeOrgAction(authorization.ObjectInvoiceNumber, authorization.ActionInvoiceNumberView), s.SuggestInvoiceNumber)
	api.POST("/invoice-numbers/validate",
		s.authorizeOrgAction(authorization.ObjectInvoiceNumber, authorization.ActionInvoiceNumberValidate),
		s.NumberValidationRateLimit(),
		s.ValidateInvoiceNumber,
	)
	api.GET("/invoice-numbers/template", s.authorizeOrgAction(authorization.ObjectNumberingTemplate, authorization.ActionNumberingTemplateView), s.GetNumberingTemplate)
	api.PUT("/invoice-numbers/template", s.authorizeOrgAction(authorization.ObjectNumberingTemplate, authorization.ActionNumberingTemplateUpdate), s.UpdateNumberingTemplate)

	// -------- Tax definitions --------
	api.GET("/tax-definitions", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionView), s.ListTaxDefinitions)
	api.POST("/tax-definitions", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionManage), s.CreateTaxDefinition)
	api.POST("/tax-definitions/presets", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionManage), s.InstallTaxPresets)
	api.GET("/tax-definitions/:id", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionView), s.GetTaxDefinition)
	api.PATCH("/tax-definitions/:id", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionManage), s.UpdateTaxDefinition)
	api.POST("/tax-definitions/:id/disable", s.authorizeOrgAction(authorization.ObjectTaxDefinition, authorization.ActionTaxDefinitionManage), s.DisableTaxDefinition)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
