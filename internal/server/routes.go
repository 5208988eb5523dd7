package server

import (
	"time"

	"github.com/crestcms/crest/internal/auth"
	"github.com/crestcms/crest/internal/content"
	"github.com/crestcms/crest/internal/media"
	"github.com/crestcms/crest/internal/tenant"
	"github.com/crestcms/crest/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Cookie",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "CMS API is running",
		})
	})

	// ==========================================
	// AUTH ROUTES
	// ==========================================
	authGroup := app.Group("/auth")
	authGroup.Post("/register", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
	}), auth.RegisterHandler)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), auth.LoginHandler)
	authGroup.Get("/google/login", auth.GoogleLogin)
	authGroup.Get("/google/callback", auth.GoogleCallback)
	authGroup.Post("/refresh", limiter.New(limiter.Config{
		Max:        3,
		Expiration: 5 * time.Minute,
	}), auth.RefreshHandler)
	authGroup.Post("/logout", auth.Identity(), auth.RequireAuth(), auth.LogoutHandler)
	authGroup.Post("/select-tenant", auth.Identity(), auth.RequireAuth(), auth.SelectTenantHandler)

	// Identity is optional on /api so public reads stay open; every
	// request gets an access context either way.
	api := app.Group("/api", auth.Identity(), auth.WithAccess())

	// ==========================================
	// ADMIN NAVIGATION
	// ==========================================
	api.Get("/admin/collections", auth.RequireAuth(), content.VisibleCollectionsHandler)

	// ==========================================
	// TENANT MANAGEMENT
	// ==========================================
	tenantGroup := api.Group("/tenants", auth.RequireAuth())
	tenantGroup.Post("/", tenant.CreateTenantHandler)
	tenantGroup.Get("/", tenant.ListTenantsHandler)
	tenantGroup.Get("/:id", tenant.GetTenantHandler)
	tenantGroup.Put("/:id", tenant.UpdateTenantHandler)
	tenantGroup.Delete("/:id", tenant.DeleteTenantHandler)
	tenantGroup.Post("/:id/restore", tenant.RestoreTenantHandler)

	// ==========================================
	// USER MANAGEMENT
	// ==========================================
	userGroup := api.Group("/users", auth.RequireAuth())
	userGroup.Post("/", user.CreateUserHandler)
	userGroup.Get("/", user.ListUsersHandler)
	userGroup.Get("/:id", user.GetUserHandler)
	userGroup.Put("/:id", user.UpdateUserHandler)
	userGroup.Post("/:id/tenant", user.AssignTenantHandler)
	userGroup.Delete("/:id", user.DeleteUserHandler)

	// ==========================================
	// MEDIA LIBRARY
	// ==========================================
	api.Post("/media/upload", auth.RequireAuth(), media.UploadMediaHandler)

	// ==========================================
	// COLLECTIONS
	// ==========================================
	// Reads go through the access predicates, so anonymous requests only
	// ever see published documents of public-read collections.
	api.Get("/:collection", content.ListDocumentsHandler)
	api.Get("/:collection/:id", content.GetDocumentHandler)
	api.Post("/:collection", auth.RequireAuth(), content.CreateDocumentHandler)
	api.Put("/:collection/:id", auth.RequireAuth(), content.UpdateDocumentHandler)
	api.Delete("/:collection/:id", auth.RequireAuth(), content.DeleteDocumentHandler)
	api.Post("/:collection/:id/restore", auth.RequireAuth(), content.RestoreDocumentHandler)
}
