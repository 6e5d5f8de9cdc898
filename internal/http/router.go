package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusworks/campusfix/internal/auth"
	"github.com/campusworks/campusfix/internal/config"
	"github.com/campusworks/campusfix/internal/domain/user"
	"github.com/campusworks/campusfix/internal/http/handlers"
	"github.com/campusworks/campusfix/internal/http/middlewares"
	"github.com/campusworks/campusfix/internal/observability"
	"github.com/campusworks/campusfix/internal/queue/redisclient"
	"github.com/campusworks/campusfix/internal/repo/postgres"
	"github.com/campusworks/campusfix/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Cfg   config.Config
	Log   *slog.Logger
	Pool  *pgxpool.Pool
	Redis *redisclient.Client
	Prom  *observability.Prom

	// registry backing /metrics; the default one when nil
	Registry *prometheus.Registry
}

func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.Cfg.MaxUploadBytes))
	r.Use(otelgin.Middleware("campusfix"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	pingDB := func(ctx context.Context) error {
		if deps.Pool == nil {
			return nil
		}
		return deps.Pool.Ping(ctx)
	}

	var pingRedis handlers.PingFunc
	if deps.Redis != nil {
		pingRedis = deps.Redis.Ping
	}

	health := handlers.NewHealthHandler(pingDB, pingRedis)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// issue photos, served as-is
	r.Static("/uploads", deps.Cfg.UploadDir)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Prom)
	issuesRepo := postgres.NewIssuesRepo(deps.Pool, deps.Prom, jobsRepo)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, time.Duration(deps.Cfg.JWTAccessTTLMinutes)*time.Minute)
	authMw := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	saver, err := upload.NewSaver(deps.Cfg.UploadDir)

	if err != nil {
		return nil, err
	}

	var nudge handlers.Nudger
	if deps.Redis != nil {
		nudge = deps.Redis
	}

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager)
	issuesHandler := handlers.NewIssuesHandler(issuesRepo, saver, nudge, deps.Log, deps.Prom)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", middlewares.RequireJSON(), authHandler.Register)
	authRoutes.POST("/login", middlewares.RequireJSON(), authHandler.Login)
	authRoutes.GET("/me", authMw.RequireAuth(), authHandler.Me)

	issues := api.Group("/issues", authMw.RequireAuth())
	issues.POST("", authMw.RequireRole(user.RoleStudent), issuesHandler.CreateIssue)
	issues.GET("/my", issuesHandler.ListMine)
	issues.GET("", authMw.RequireRole(user.RoleAdmin), issuesHandler.ListAll)
	issues.PATCH("/:id", authMw.RequireRole(user.RoleAdmin), middlewares.RequireJSON(), issuesHandler.UpdateStatus)

	return r, nil
}
