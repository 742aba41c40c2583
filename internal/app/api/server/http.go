package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/teleshop/paygate/docs"
	"github.com/teleshop/paygate/internal/app/api/handlers"
	mw "github.com/teleshop/paygate/internal/app/api/middleware"
	"github.com/teleshop/paygate/internal/app/service/callback"
	"github.com/teleshop/paygate/internal/app/service/callbacklog"
	"github.com/teleshop/paygate/internal/app/service/payment"
	"github.com/teleshop/paygate/internal/app/service/statistics"
	subsvc "github.com/teleshop/paygate/internal/app/service/subscription"
	cfgpkg "github.com/teleshop/paygate/pkg/config"
	"github.com/teleshop/paygate/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request tracing only; request logger & access log are attached per group
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	m *metrics.Metrics,
	cbSvc *callback.Service,
	audit *callbacklog.Service,
	paySvc *payment.Service,
	sub *subsvc.Service,
	stats *statistics.Service,
) {
	if cfg.MetricsAddr != "" {
		m.Serve(cfg.MetricsAddr)
		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	r.Use(m.Middleware())

	// Public group: health + swagger
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateway webhook: authenticated by signature, not by bearer token
	cb := r.Group("/callback")
	cb.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterCallbackRoutes(cb, cbSvc, audit, log)

	// Bot-facing payment APIs behind the shared-secret JWT
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterPaymentRoutes(apiV1.Group("/payment"), paySvc, sub)

	// Admin APIs additionally require the admin role claim
	admin := apiV1.Group("/admin")
	admin.Use(mw.RequireRole(mw.RoleAdmin))
	handlers.RegisterAdminRoutes(admin, stats, sub)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(metrics.New),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
