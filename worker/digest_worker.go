package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	controller "leadpilot/controllers"
	"leadpilot/models"
	"leadpilot/utils"
)

// DigestWorker emails each user a morning summary of their due tasks. It
// goes through the task controller so the digest always agrees with what
// the dashboard shows.
type DigestWorker struct {
	db     *gorm.DB
	logger *log.Logger
	mailer *utils.Mailer
	tasks  *controller.TaskController
}

func NewDigestWorker(db *gorm.DB, logger *log.Logger, mailer *utils.Mailer, tasks *controller.TaskController) *DigestWorker {
	return &DigestWorker{
		db:     db,
		logger: logger,
		mailer: mailer,
		tasks:  tasks,
	}
}

func (dw *DigestWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	dw.logger.Println("Digest worker started")

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	dw.sendDigests()
	for {
		select {
		case <-ctx.Done():
			dw.logger.Println("Digest worker shutting down...")
			return
		case <-ticker.C:
			dw.sendDigests()
		}
	}
}

func (dw *DigestWorker) sendDigests() {
	dw.logger.Println("Building task digests for all users...")

	var users []models.User
	if err := dw.db.Where("is_active = ?", true).Find(&users).Error; err != nil {
		dw.logger.Printf("Failed to fetch users: %v", err)
		return
	}

	// Minimal Fiber app to get a proper context for the controller call
	app := fiber.New()

	for i := range users {
		user := &users[i]

		fctx := app.AcquireCtx(&fasthttp.RequestCtx{})
		fctx.Locals("user", user)

		err := dw.tasks.GetTaskCounts(fctx)
		body := make([]byte, len(fctx.Response().Body()))
		copy(body, fctx.Response().Body())
		app.ReleaseCtx(fctx)

		if err != nil {
			dw.logger.Printf("Failed to count tasks for user %d: %v", user.ID, err)
			continue
		}

		var payload struct {
			Success bool           `json:"success"`
			Data    map[string]int `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || !payload.Success {
			dw.logger.Printf("Unexpected task count payload for user %d: %v", user.ID, err)
			continue
		}

		overdue := payload.Data["overdue"]
		dueToday := payload.Data["due_today"]
		if overdue+dueToday == 0 {
			continue
		}

		utils.LogEvent("task_digest", map[string]interface{}{
			"user_id":   user.ID,
			"overdue":   overdue,
			"due_today": dueToday,
		})

		if err := dw.mailer.SendDigest(user, overdue, dueToday); err != nil {
			dw.logger.Printf("Failed to send digest to user %d: %v", user.ID, err)
		}
	}
}
