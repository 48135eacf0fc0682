package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/cache"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/http/handlers"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/geocoder89/inkhub/internal/redisclient"
	"github.com/geocoder89/inkhub/internal/repo/postgres"
	"github.com/geocoder89/inkhub/internal/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/inkhub/internal/domain/user"
)

// Deps carries everything the router needs wired from main. Tests build
// a Deps with fakes instead of real backing stores.
type Deps struct {
	Cfg      config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redisclient.Client
	Prom     *observability.Prom
	Registry *prometheus.Registry
	JWT      *auth.Manager
	Sessions sessions.Store
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// page routes get the stricter CSP
	pagePrefixes := make([]string, 0, len(d.Cfg.AdminPathPrefixes)+len(d.Cfg.DemoPathPrefixes)+2)
	pagePrefixes = append(pagePrefixes, d.Cfg.AdminPathPrefixes...)
	pagePrefixes = append(pagePrefixes, d.Cfg.DemoPathPrefixes...)
	pagePrefixes = append(pagePrefixes, d.Cfg.LoginPath, d.Cfg.DemoLoginPath)

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(otelgin.Middleware("inkhub"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(pagePrefixes))
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health and metrics
	var dbPinger, redisPinger handlers.Pinger
	if d.Pool != nil {
		dbPinger = d.Pool
	}
	if d.Redis != nil {
		redisPinger = d.Redis
	}

	health := handlers.NewHealthHandler(dbPinger, redisPinger)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// repositories
	usersRepo := postgres.NewUsersRepo(d.Pool, d.Prom)
	articlesRepo := postgres.NewArticlesRepo(d.Pool, d.Prom)
	commentsRepo := postgres.NewCommentsRepo(d.Pool, d.Prom)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)

	listCache := cache.New(30 * time.Second)

	// middleware stacks
	authMW := middlewares.NewAuthMiddleware(d.JWT, d.Sessions)
	guard := middlewares.NewPageGuard(authMW, d.JWT, d.Prom, d.Cfg.LoginPath, d.Cfg.DemoLoginPath)

	authLimiter := middlewares.NewRateLimiter(20, time.Minute)
	apiLimiter := middlewares.NewRateLimiter(300, time.Minute)

	// handlers
	authH := handlers.NewAuthHandler(usersRepo, d.JWT, d.Sessions, jobsRepo, d.Cfg)
	passwordH := handlers.NewPasswordHandler(usersRepo, d.JWT, d.Sessions, jobsRepo, d.Cfg)
	profileH := handlers.NewProfileHandler(usersRepo, d.JWT, d.Cfg)
	articlesH := handlers.NewArticlesHandler(articlesRepo, listCache)
	commentsH := handlers.NewCommentsHandler(commentsRepo, articlesRepo)
	adminUsersH := handlers.NewAdminUsersHandler(usersRepo, d.Sessions)
	dashboardH := handlers.NewAdminDashboardHandler(usersRepo, articlesRepo, commentsRepo)
	adminJobsH := handlers.NewAdminJobsHandler(jobsRepo)
	pagesH := handlers.NewPagesHandler()
	demoH := handlers.NewDemoHandler(d.Cfg)

	// browser pages
	r.GET(d.Cfg.LoginPath, guard.RedirectIfAuthenticated(adminHome(d.Cfg)), pagesH.LoginPage)

	// every sub-path under a guarded prefix goes through the guard too
	for _, prefix := range d.Cfg.AdminPathPrefixes {
		g := r.Group(prefix)
		g.Use(guard.AdminPages())
		g.GET("", pagesH.AdminHome)
		g.GET("/*page", pagesH.AdminHome)
	}

	r.GET(d.Cfg.DemoLoginPath, guard.RedirectIfDemoAuthenticated(demoHome(d.Cfg)), pagesH.DemoLoginPage)
	r.POST(d.Cfg.DemoLoginPath, authLimiter.Middleware(middlewares.KeyByIP), demoH.Login)

	for _, prefix := range d.Cfg.DemoPathPrefixes {
		g := r.Group(prefix)
		g.Use(guard.DemoPages())
		g.GET("", pagesH.DemoPage)
		g.GET("/*page", pagesH.DemoPage)
		g.POST("/logout", demoH.Logout)
	}

	// JSON API
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter.Middleware(middlewares.KeyByIP))
	authGroup.POST("/register", middlewares.RequireJSON(), authH.Register)
	authGroup.POST("/login", middlewares.RequireJSON(), authH.Login)
	authGroup.POST("/oauth", middlewares.RequireJSON(), authH.OAuth)
	authGroup.POST("/logout", authH.Logout)
	authGroup.GET("/me", authMW.RequireAuth(), authH.Me)
	authGroup.POST("/forgot-password", middlewares.RequireJSON(), passwordH.Forgot)
	authGroup.POST("/reset-password", middlewares.RequireJSON(), passwordH.Reset)
	authGroup.POST("/change-password", authMW.RequireAuth(), middlewares.RequireJSON(), passwordH.Change)

	api.PUT("/me/profile", apiLimiter.Middleware(middlewares.KeyByUserOrIP),
		authMW.RequireAuth(), middlewares.RequireJSON(), profileH.Update)

	articles := api.Group("/articles")
	articles.Use(apiLimiter.Middleware(middlewares.KeyByUserOrIP))
	articles.GET("", authMW.OptionalAuth(), articlesH.List)
	articles.GET("/:slug", authMW.OptionalAuth(), articlesH.GetBySlug)
	articles.GET("/:slug/comments", commentsH.ListByArticle)
	articles.POST("/:slug/comments", authMW.RequireAuth(), middlewares.RequireJSON(), commentsH.Create)
	articles.POST("", authMW.RequireAuth(), authMW.RequireRole(user.RoleEditor), middlewares.RequireJSON(), articlesH.Create)
	articles.PUT("/:slug", authMW.RequireAuth(), authMW.RequireRole(user.RoleEditor), middlewares.RequireJSON(), articlesH.Update)
	articles.DELETE("/:slug", authMW.RequireAuth(), authMW.RequireRole(user.RoleEditor), articlesH.Delete)

	api.DELETE("/comments/:id", apiLimiter.Middleware(middlewares.KeyByUserOrIP),
		authMW.RequireAuth(), commentsH.Delete)

	admin := api.Group("/admin")
	admin.Use(apiLimiter.Middleware(middlewares.KeyByUserOrIP))
	admin.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	admin.GET("/stats", dashboardH.Stats)
	admin.GET("/users", adminUsersH.List)
	admin.GET("/users/:id", adminUsersH.GetByID)
	admin.PUT("/users/:id/role", middlewares.RequireJSON(), adminUsersH.UpdateRole)
	admin.PUT("/users/:id/status", middlewares.RequireJSON(), adminUsersH.UpdateStatus)
	admin.DELETE("/users/:id", adminUsersH.Delete)
	admin.GET("/articles", articlesH.AdminList)
	admin.DELETE("/articles/:id", articlesH.AdminDelete)
	admin.GET("/jobs", adminJobsH.List)
	admin.GET("/jobs/:id", adminJobsH.GetByID)
	// PUT so the static reprocess path below does not collide with :id
	admin.PUT("/jobs/:id/retry", adminJobsH.Retry)
	admin.POST("/jobs/reprocess-dead", adminJobsH.ReprocessDead)

	return r
}

// adminHome picks where a logged-in user lands when they hit the login
// page with no callback.
func adminHome(cfg config.Config) string {
	if len(cfg.AdminPathPrefixes) > 0 {
		return cfg.AdminPathPrefixes[0]
	}
	return "/admin"
}

// demoHome is where a sentinel-holding visitor lands instead of the
// demo login page.
func demoHome(cfg config.Config) string {
	if len(cfg.DemoPathPrefixes) > 0 {
		return cfg.DemoPathPrefixes[0]
	}
	return "/"
}
