package http

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserService is everything the auth and user routes need from the user
// directory.
type UserService interface {
	handlers.Accounts
	handlers.UserDirectory
}

type Deps struct {
	Config  config.Config
	Version string

	Tokens handlers.TokenIssuer
	Users  UserService
	Tasks  handlers.TaskService

	// Ping is nil for the memory backend.
	Ping    func(ctx context.Context) error
	Counter handlers.Counter

	// Draining reports that shutdown has begun; may be nil.
	Draining func() bool

	// Prom and Gatherer may be nil, e.g. in tests.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders(d.Config.Env == "prod"))
	r.Use(cors.New(corsConfig(d.Config.CORSAllowedOrigins)))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondNotFound(c, "route_not_found", "Route not found.")
	})

	// health and diagnostics
	health := handlers.NewHealthHandler(d.Ping, d.Draining)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	status := handlers.NewStatusHandler(handlers.ServiceInfo{
		Name:    "TaskMaster Pro API",
		Version: d.Version,
		Env:     d.Config.Env,
		Driver:  d.Config.StoreDriver,
	}, d.Ping, d.Counter)
	r.GET("/status", status.Status)
	r.GET("/status/db", status.Database)

	if d.Config.MetricsEnabled && d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Users)
	authH := handlers.NewAuthHandler(d.Users, d.Tokens)
	if d.Prom != nil {
		authMW.OnFailure(d.Prom.AuthFailed)
		authH.OnFailure(d.Prom.AuthFailed)
	}

	// auth: credential endpoints are throttled per client ip
	limiter := middlewares.NewRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateWindow)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Register)
		authGroup.POST("/login", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authH.Login)
		authGroup.GET("/verify", authH.Verify)
	}

	tasksH := handlers.NewTasksHandler(d.Tasks)
	tasks := r.Group("/tasks", authMW.RequireAuth())
	{
		tasks.GET("", tasksH.List)
		tasks.GET("/stats", tasksH.Stats)
		tasks.GET("/:id", tasksH.Get)
		tasks.POST("", tasksH.Create)
		tasks.PUT("/:id", tasksH.Update)
		tasks.PATCH("/:id/status", tasksH.UpdateStatus)
		tasks.DELETE("/:id", tasksH.Delete)
	}

	usersH := handlers.NewUsersHandler(d.Users)
	users := r.Group("/users", authMW.RequireAuth())
	{
		users.GET("/me", usersH.Me)
		users.PUT("/me", usersH.UpdateMe)
		users.GET("", authMW.RequireAdmin(), usersH.List)
		users.DELETE("/:id", authMW.RequireAdmin(), usersH.Delete)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-Id", "ETag", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}

	cfg.AllowOrigins = origins
	return cfg
}
