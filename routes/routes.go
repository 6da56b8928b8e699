package routes

import (
	controller "chatwave/controllers"
	"chatwave/logutils"
	"chatwave/middleware"
	"chatwave/tenancy"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	logutils.Component("routes").Info("Authentication routes initialized")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	tenancyService := tenancy.NewService(db, logutils.Component("tenancy"))
	hub := controller.NewMessageHub(logutils.Component("hub"))

	workspaceController := controller.NewWorkspaceController(db, tenancyService, logutils.Component("workspace"))
	channelController := controller.NewChannelController(db, tenancyService, logutils.Component("channel"))
	messageController := controller.NewMessageController(db, tenancyService, logutils.Component("message"), hub)
	profileController := controller.NewProfileController(db, logutils.Component("profile"))
	uploadController := controller.NewUploadController(db, logutils.Component("upload"))

	// API group with versioning; queries resolve identity when present,
	// mutations additionally go through Protected()
	api := app.Group("/api/v1", middleware.OptionalAuth(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Workspace routes
	api.Get("/workspace", workspaceController.GetMyWorkspace)
	api.Post("/workspace/ensure", middleware.Protected(), workspaceController.EnsureWorkspace)

	// Channel routes
	api.Get("/channels", channelController.GetChannels)
	api.Post("/channels", middleware.Protected(), channelController.CreateChannel)
	api.Get("/channels/:id", channelController.GetChannel)

	// Message routes
	api.Get("/channels/:id/messages", messageController.GetMessages)
	api.Post("/channels/:id/messages",
		middleware.Protected(),
		middleware.MessageRateLimiter(),
		messageController.SendMessage)
	api.Get("/messages/search", messageController.SearchMessages)

	// Websocket live feed per channel
	api.Get("/channels/:id/stream",
		controller.RequireWebSocketUpgrade(),
		middleware.Protected(),
		messageController.AuthorizeStream(),
		messageController.StreamChannel())

	// Profile routes
	api.Get("/profile", profileController.GetMyProfile)
	api.Put("/profile", middleware.Protected(), profileController.UpdateProfile)

	// Upload routes: grant creation is authenticated, the PUT and the
	// download are capability/id based
	api.Post("/uploads", middleware.Protected(), uploadController.CreateUploadURL)
	app.Put("/uploads/:token", uploadController.ReceiveUpload)
	app.Get("/files/:id", uploadController.ServeFile)

	logutils.Component("routes").Info("API routes initialized")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
