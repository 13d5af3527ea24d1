package routes

import (
	"log"
	"os"

	controller "leadpilot/controllers"
	"leadpilot/middleware"
	"leadpilot/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

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

	// Payment routes; the webhook is public, Stripe signs its own calls
	payment := app.Group("/payment")
	payment.Get("/plans", controller.GetPlans)
	payment.Post("/webhook", controller.HandlePaymentWebhook)
	payment.Post("/create-intent", middleware.Protected(), controller.CreatePaymentIntent)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize controllers with their respective loggers
	mailer := utils.NewMailer()
	strategyController := controller.NewStrategyController(db, log.New(os.Stdout, "STRATEGY: ", log.LstdFlags))
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags), mailer)
	sessionController := controller.NewSessionController(db, log.New(os.Stdout, "SESSION: ", log.LstdFlags), taskController)
	scrapeController := controller.NewScrapeController(db, log.New(os.Stdout, "SCRAPE: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	// Public scraper callback, authenticated by the per-job secret
	app.Post("/scraper/callback", scrapeController.HandleScraperCallback)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Strategy routes
	strategy := api.Group("/strategies")
	strategy.Post("/", strategyController.CreateStrategy)
	strategy.Get("/", strategyController.GetStrategies)
	strategy.Get("/:id", strategyController.GetStrategy)
	strategy.Get("/:id/timeline", strategyController.GetStrategyTimeline)
	strategy.Put("/:id", strategyController.UpdateStrategy)
	strategy.Delete("/:id", strategyController.DeleteStrategy)

	// Lead routes
	lead := api.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)
	lead.Post("/import", middleware.ImportRateLimiter(), leadController.ImportLeads)
	lead.Post("/export", leadController.ExportLeads)
	lead.Post("/:id/assign-strategy", leadController.AssignStrategy)
	lead.Post("/:id/unassign-strategy", leadController.UnassignStrategy)
	lead.Post("/:id/activities", leadController.AddActivity)
	lead.Get("/:id/activities", leadController.GetActivities)

	// Task routes
	task := api.Group("/tasks")
	task.Get("/buckets", taskController.GetTaskBuckets)
	task.Get("/counts", taskController.GetTaskCounts)
	task.Post("/:leadID/complete", taskController.CompleteTask)
	task.Post("/:leadID/skip", taskController.SkipTask)

	// Session routes
	session := api.Group("/session")
	session.Post("/start", sessionController.StartSession)
	session.Get("/current", sessionController.GetCurrent)
	session.Post("/complete", sessionController.CompleteSessionStep)
	session.Post("/skip", sessionController.SkipSessionStep)
	session.Post("/abort", sessionController.AbortSession)
	session.Get("/summary", sessionController.GetSummary)

	// WebSocket route for session progress
	api.Get("/session/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, sessionController.ProgressSocket())

	// Scraper routes
	scraper := api.Group("/scraper")
	scraper.Post("/jobs", middleware.ImportRateLimiter(), scrapeController.CreateScrapeJob)
	scraper.Get("/jobs", scrapeController.GetScrapeJobs)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)
	dashboard.Get("/recent-strategies", dashboardController.GetRecentStrategies)
	dashboard.Get("/activity", dashboardController.GetActivityFeed)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize Stripe
	controller.InitStripe()
	controller.InitGoogleOAuth()

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
