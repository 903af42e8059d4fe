package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/meterbill/internal/auth"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	"github.com/smallbiznis/meterbill/internal/authorization"
	"github.com/smallbiznis/meterbill/internal/billingcycle"
	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	"github.com/smallbiznis/meterbill/internal/billingdashboard"
	billingdashboarddomain "github.com/smallbiznis/meterbill/internal/billingdashboard/domain"
	"github.com/smallbiznis/meterbill/internal/cloudmetrics"
	"github.com/smallbiznis/meterbill/internal/config"
	"github.com/smallbiznis/meterbill/internal/observability"
	obslogger "github.com/smallbiznis/meterbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/meterbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/meterbill/internal/observability/tracing"
	"github.com/smallbiznis/meterbill/internal/pricingplan"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"github.com/smallbiznis/meterbill/internal/ratelimit"
	"github.com/smallbiznis/meterbill/internal/rating"
	"github.com/smallbiznis/meterbill/internal/tenant"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"github.com/smallbiznis/meterbill/internal/usage"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cloudmetrics.Module,
	fx.Provide(registerGin),
	auth.Module,
	authorization.Module,
	pricingplan.Module,
	tenant.Module,
	usage.Module,
	rating.Module,
	billingcycle.Module,
	billingdashboard.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain. The
// /metrics endpoint serves the default gatherer together with registry.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if registry != nil {
		gatherers = append(gatherers, registry)
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine          *gin.Engine
	cfg             config.Config
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	dashboardSvc    billingdashboarddomain.Service
	segmenter       billingcycledomain.Segmenter
	planSvc         pricingplandomain.Service
	tenantSvc       tenantdomain.Service
	usagesvc        usagedomain.Service
	meteringLimiter *ratelimit.MeteringLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	DashboardSvc    billingdashboarddomain.Service
	Segmenter       billingcycledomain.Segmenter
	PlanSvc         pricingplandomain.Service
	TenantSvc       tenantdomain.Service
	Usagesvc        usagedomain.Service
	MeteringLimiter *ratelimit.MeteringLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		dashboardSvc:    p.DashboardSvc,
		segmenter:       p.Segmenter,
		planSvc:         p.PlanSvc,
		tenantSvc:       p.TenantSvc,
		usagesvc:        p.Usagesvc,
		meteringLimiter: p.MeteringLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/", s.AuthRequired())

	api.GET("/userinfo", s.GetUserInfo)
	api.GET("/users", s.ListTenantUsers)

	api.GET("/billing/dashboard",
		s.authorizeTenantAction(queryTenantID, authorization.ObjectBillingDashboard, authorization.ActionBillingDashboardView),
		s.GetBillingDashboard,
	)
	api.GET("/tenant/plan_periods",
		s.authorizeTenantAction(queryTenantID, authorization.ObjectPlanPeriod, authorization.ActionPlanPeriodView),
		s.ListPlanPeriods,
	)
	api.POST("/metering/:tenant_id/:unit/:ts",
		s.authorizeTenantAction(paramTenantID, authorization.ObjectMetering, authorization.ActionMeteringUpdate),
		s.MeteringRateLimit(),
		s.UpdateMeteringCount,
	)
	api.PUT("/plans/:plan_id",
		s.authorizeTenantAction(queryTenantID, authorization.ObjectPlan, authorization.ActionPlanWrite),
		s.SavePlan,
	)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
