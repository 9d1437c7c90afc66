package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	chartdomain "github.com/siderealabs/astroledger/internal/chart/domain"
	"github.com/siderealabs/astroledger/internal/config"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	"github.com/siderealabs/astroledger/internal/observability"
	obsmiddleware "github.com/siderealabs/astroledger/internal/observability/logger"
	obsmetrics "github.com/siderealabs/astroledger/internal/observability/metrics"
	obstracing "github.com/siderealabs/astroledger/internal/observability/tracing"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	purchasedomain "github.com/siderealabs/astroledger/internal/purchase/domain"
	reportdomain "github.com/siderealabs/astroledger/internal/report/domain"
	"github.com/siderealabs/astroledger/internal/storekit"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine     *gin.Engine
	cfg        config.Config
	catalog    *storekit.Catalog
	profileSvc profiledomain.Service
	creditSvc  creditdomain.Service
	chartSvc   chartdomain.Service
	reportSvc  reportdomain.Service
	gateway    purchasedomain.Gateway
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Catalog    *storekit.Catalog
	ProfileSvc profiledomain.Service
	CreditSvc  creditdomain.Service
	ChartSvc   chartdomain.Service
	ReportSvc  reportdomain.Service
	Gateway    purchasedomain.Gateway
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		catalog:    p.Catalog,
		profileSvc: p.ProfileSvc,
		creditSvc:  p.CreditSvc,
		chartSvc:   p.ChartSvc,
		reportSvc:  p.ReportSvc,
		gateway:    p.Gateway,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Profiles --------
	api.GET("/profiles", s.ListProfiles)
	api.POST("/profiles", s.CreateProfile)
	api.GET("/profiles/:id", s.GetProfileByID)
	api.DELETE("/profiles/:id", s.DeleteProfile)
	api.GET("/profiles/:id/chart", s.GetProfileChart)
	api.GET("/profiles/:id/credits", s.GetProfileCreditHistory)
	api.GET("/profiles/:id/reports", s.ListProfileReports)

	// -------- Store --------
	api.GET("/products", s.ListProducts)
	api.POST("/purchases", s.Purchase)
	api.POST("/purchases/restore", s.RestorePurchases)

	// -------- Credits --------
	api.GET("/credits", s.GetCreditBalances)
	api.GET("/credits/:category", s.ListAvailableCredits)

	// -------- Reports --------
	api.POST("/reports", s.GenerateReport)
	api.GET("/reports/:id", s.GetReportByID)
}
