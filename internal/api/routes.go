package api

import (
	"database/sql"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, db *sql.DB) {
	api := app.Group("/api")

	// Check if registration is disabled
	disableRegistration := strings.ToLower(os.Getenv("DISABLE_REGISTRATION")) == "true"

	// Configuration endpoint (public)
	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": disableRegistration,
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	if !disableRegistration {
		auth.Post("/register", RegisterHandler(db))
	}
	auth.Post("/login", LoginHandler(db))
	auth.Post("/refresh", RefreshTokenHandler(db))
	auth.Post("/logout", LogoutHandler(db))

	// VAPID public key endpoint (public - must be before protected routes for proper routing)
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler())

	// Protected routes
	protected := api.Group("/", AuthMiddleware())

	// Category routes
	categories := protected.Group("/categories")
	categories.Post("/", CreateCategoryHandler(db))
	categories.Get("/", ListCategoriesHandler(db))
	categories.Put("/:id", UpdateCategoryHandler(db))
	categories.Delete("/:id", DeleteCategoryHandler(db))

	// Goal routes
	goals := protected.Group("/goals")
	goals.Post("/", CreateGoalHandler(db))
	goals.Get("/", ListGoalsHandler(db))
	goals.Get("/:id", GetGoalHandler(db))
	goals.Put("/:id", UpdateGoalHandler(db))
	goals.Put("/:id/complete", CompleteGoalHandler(db))
	goals.Put("/:id/milestones/:milestoneId", UpdateMilestoneHandler(db))
	goals.Delete("/:id", DeleteGoalHandler(db))

	// Mission routes
	missions := protected.Group("/missions")
	missions.Post("/", CreateMissionHandler(db))
	missions.Get("/", ListMissionsHandler(db))
	missions.Post("/suggest-highlight", SuggestHighlightHandler(db))
	missions.Put("/:id/complete", CompleteMissionHandler(db))

	// Long-term plan routes
	plans := protected.Group("/long-terms")
	plans.Post("/", CreatePlanHandler(db))
	plans.Get("/", ListPlansHandler(db))
	plans.Get("/:id/cycles", ListCyclesHandler(db))
	plans.Put("/:id/archive", ArchivePlanHandler(db))
	protected.Get("/cycles/:id/goals", ListCycleGoalsHandler(db))

	// Backlog task routes
	tasks := protected.Group("/tasks")
	tasks.Post("/", CreateTaskHandler(db))
	tasks.Get("/", ListBacklogTasksHandler(db))
	tasks.Put("/:id/status", UpdateTaskStatusHandler(db))

	// Progress routes
	progress := protected.Group("/progress")
	progress.Get("/", GetStatsHandler(db))
	progress.Get("/ledger", GetLedgerHandler(db))
	progress.Get("/level", GetLevelHandler(db))

	// Settings routes
	protected.Get("/settings", GetSettingsHandler(db))
	protected.Put("/settings", SaveSettingsHandler(db))

	// Push subscription routes
	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(db))
	push.Delete("/unsubscribe", UnsubscribePushHandler(db))
	push.Post("/test", SendTestPushHandler(db))

	// User profile routes
	user := protected.Group("/user")
	user.Get("/profile", GetUserProfileHandler(db))
	user.Put("/profile", UpdateUserProfileHandler(db))
	user.Put("/email", UpdateUserEmailHandler(db))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
