// Package server assembles the Fiber application: middleware, route access
// rules and every handler.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/handlers"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/dashboard"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/learning"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/marketplace"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/storage"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

// Deps are the long-lived collaborators built in main. Limiter, Notifier
// and OAuth may be nil.
type Deps struct {
	Config   config.Config
	DB       *gorm.DB
	Log      zerolog.Logger
	Tokens   *utils.TokenService
	Limiter  middleware.Limiter
	Store    storage.ObjectStore
	Events   events.Publisher
	Hub      *realtime.Hub
	Notifier *realtime.Notifier
	OAuth    *oauth2.Config
}

// Rules lists the routes that skip authentication and the admin-only
// prefixes. Everything else requires a session.
var Rules = middleware.RouteRules{
	Public: []middleware.Rule{
		{Method: fiber.MethodPost, Pattern: "/api/auth"},
		{Method: fiber.MethodDelete, Pattern: "/api/auth"},
		{Method: fiber.MethodGet, Pattern: "/api/auth/google/*"},
		{Method: fiber.MethodGet, Pattern: "/api/health"},
		{Method: fiber.MethodGet, Pattern: "/api/categories"},
		{Method: fiber.MethodGet, Pattern: "/api/projects"},
		{Method: fiber.MethodGet, Pattern: "/api/projects/:id"},
		{Method: fiber.MethodGet, Pattern: "/api/courses"},
		{Method: fiber.MethodGet, Pattern: "/api/courses/:id"},
		{Method: fiber.MethodGet, Pattern: "/api/freelancers"},
		{Method: fiber.MethodGet, Pattern: "/api/freelancers/:id"},
		{Method: fiber.MethodGet, Pattern: "/"},
		{Method: fiber.MethodGet, Pattern: "/login"},
		{Method: fiber.MethodGet, Pattern: "/register"},
		{Method: fiber.MethodGet, Pattern: "/uploads/*"},
	},
	Admin: []middleware.Rule{
		{Pattern: "/api/admin/*"},
		{Pattern: "/admin/*"},
	},
}

// bodyLimit leaves room for multipart overhead around a maximum upload.
const bodyLimit = handlers.MaxUploadBytes + 2<<20

func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		AppName:      "skillhub-api",
		ErrorHandler: middleware.ErrorHandler(d.Log),
		BodyLimit:    bodyLimit,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLog(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Content-Length, X-Request-ID",
		AllowCredentials: true,
	}))
	app.Use(middleware.Session(middleware.SessionConfig{
		Tokens:     d.Tokens,
		CookieName: cfg.CookieName,
		Secure:     cfg.CookieSecure(),
		Rules:      Rules,
		Users:      db.Accounts{DB: d.DB},
	}))

	if cfg.UploadDir != "" {
		app.Static("/uploads", cfg.UploadDir)
	}

	notify := &handlers.Notifications{Hub: d.Hub, Redis: d.Notifier, Log: d.Log}
	earn := earnings.NewEarningsService()
	market := marketplace.NewService(d.DB, earn)
	learn := learning.NewService(d.DB)

	authH := &handlers.AuthHandler{
		DB:         d.DB,
		Tokens:     d.Tokens,
		CookieName: cfg.CookieName,
		Secure:     cfg.CookieSecure(),
		Events:     d.Events,
		Log:        d.Log,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              d.DB,
		Tokens:          d.Tokens,
		CookieName:      cfg.CookieName,
		Secure:          cfg.CookieSecure(),
		OAuth:           d.OAuth,
		FrontendBaseURL: cfg.FrontendBaseURL,
		Events:          d.Events,
		Log:             d.Log,
	}
	categoryH := handlers.NewCategoryHandler(d.DB)
	projectH := &handlers.ProjectHandler{Svc: market, Events: d.Events, Notify: notify, Log: d.Log}
	proposalH := &handlers.ProposalHandler{Svc: market, Events: d.Events, Notify: notify, Log: d.Log}
	courseH := &handlers.CourseHandler{Svc: learn}
	enrollH := &handlers.EnrollmentHandler{Svc: learn, Events: d.Events, Notify: notify, Log: d.Log}
	freelancerH := handlers.NewFreelancerHandler(d.DB)
	messageH := &handlers.MessageHandler{DB: d.DB, Hub: d.Hub, Notify: notify, Events: d.Events, Log: d.Log}
	dashboardH := &handlers.DashboardHandler{Svc: dashboard.NewService(d.DB, earn)}
	adminH := &handlers.AdminHandler{DB: d.DB, Log: d.Log}
	uploadH := &handlers.UploadHandler{DB: d.DB, Store: d.Store, Log: d.Log}

	api := app.Group("/api")

	api.Get("/health", health(d.DB))
	api.Get("/categories", categoryH.GetCategories)

	// auth
	api.Post("/auth", middleware.RateLimit(d.Limiter, "auth"), authH.Handle)
	api.Delete("/auth", authH.Logout)
	api.Get("/auth/me", authH.Me)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	// projects & proposals
	api.Get("/projects", projectH.ListPublic)
	api.Get("/projects/:id", projectH.GetPublic)
	api.Post("/projects", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), projectH.Create)
	api.Patch("/projects/:id", projectH.Update)
	api.Patch("/projects/:id/status", projectH.UpdateStatus)
	api.Delete("/projects/:id", projectH.Delete)
	api.Get("/projects/:id/proposals", proposalH.List)
	api.Post("/projects/:id/proposals", middleware.RequireRoles(models.RoleFreelancer), proposalH.Create)
	api.Patch("/projects/:id/proposals/:proposalId", proposalH.Decide)

	// courses & enrollments
	api.Get("/courses", courseH.ListPublic)
	api.Get("/courses/:id", courseH.GetPublic)
	api.Post("/courses", middleware.RequireRoles(models.RoleFreelancer, models.RoleAdmin), courseH.Create)
	api.Patch("/courses/:id", courseH.Update)
	api.Delete("/courses/:id", courseH.Delete)
	api.Post("/courses/:id/enroll", enrollH.Enroll)
	api.Delete("/courses/:id/enroll", enrollH.Unenroll)
	api.Patch("/courses/:id/progress", enrollH.UpdateProgress)

	api.Get("/freelancers", freelancerH.List)
	api.Get("/freelancers/:id", freelancerH.Get)

	me := api.Group("/me")
	me.Get("/projects", projectH.ListMine)
	me.Get("/proposals", middleware.RequireRoles(models.RoleFreelancer), proposalH.ListMine)
	me.Get("/courses", courseH.ListTeaching)
	me.Get("/enrollments", enrollH.ListMine)
	me.Patch("/profile", freelancerH.UpdateProfile)

	api.Get("/dashboard", dashboardH.Get)

	api.Post("/messages", messageH.Send)
	api.Get("/messages", messageH.List)
	api.Get("/messages/unread", messageH.UnreadCount)
	api.Patch("/messages/:id/read", messageH.MarkRead)

	api.Post("/upload", uploadH.Upload)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.Get("/users", adminH.ListUsers)
	admin.Patch("/users/:id/status", adminH.SetUserStatus)

	if d.Hub != nil {
		app.Get("/ws/messages", messageH.Upgrade, websocket.New(messageH.Stream))
	}

	app.Use(notFound(cfg.FrontendBaseURL))
	return app
}

func health(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return apperr.Internal("sql handle", err)
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "status": "database unavailable"})
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	}
}

// notFound answers unmatched API calls with JSON and hands browser
// navigation that got past the session check over to the frontend.
func notFound(frontend string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.IsAPIPath(c.Path()) || frontend == "" {
			return apperr.NotFound("route not found")
		}
		return c.Redirect(frontend+c.OriginalURL(), fiber.StatusFound)
	}
}
