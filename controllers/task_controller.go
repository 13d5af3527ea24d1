package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/utils"
)

type TaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Clock  engine.Clock
	Mailer *utils.Mailer
}

func NewTaskController(db *gorm.DB, logger *log.Logger, mailer *utils.Mailer) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
		Clock:  engine.SystemClock,
		Mailer: mailer,
	}
}

// loadLeadsAndStrategies fetches the user's leads together with a strategy
// lookup table, the shape the classifier works over.
func loadLeadsAndStrategies(db *gorm.DB, userID uint) ([]models.Lead, map[uint]*models.Strategy, error) {
	var leads []models.Lead
	if err := db.Where("user_id = ?", userID).Find(&leads).Error; err != nil {
		return nil, nil, err
	}

	var strategies []models.Strategy
	if err := db.Where("user_id = ?", userID).
		Preload("Steps", preloadSteps).
		Find(&strategies).Error; err != nil {
		return nil, nil, err
	}
	lookup := make(map[uint]*models.Strategy, len(strategies))
	for i := range strategies {
		lookup[strategies[i].ID] = &strategies[i]
	}
	return leads, lookup, nil
}

// GetTaskBuckets classifies every lead into its urgency bucket
func (tc *TaskController) GetTaskBuckets(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	leads, strategies, err := loadLeadsAndStrategies(tc.DB, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	now := tc.Clock.Now()
	buckets := map[engine.TaskBucket][]models.Lead{
		engine.BucketOverdue:  {},
		engine.BucketDueToday: {},
		engine.BucketUpcoming: {},
	}
	for i := range leads {
		lead := leads[i]
		var strategy *models.Strategy
		if lead.StrategyID != nil {
			strategy = strategies[*lead.StrategyID]
		}
		bucket := engine.Classify(now, &lead, strategy)
		switch bucket {
		case engine.BucketOverdue, engine.BucketDueToday, engine.BucketUpcoming:
			buckets[bucket] = append(buckets[bucket], lead)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"overdue":   buckets[engine.BucketOverdue],
		"due_today": buckets[engine.BucketDueToday],
		"upcoming":  buckets[engine.BucketUpcoming],
	}))
}

// GetTaskCounts returns per-bucket totals for the dashboard badges
func (tc *TaskController) GetTaskCounts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	leads, strategies, err := loadLeadsAndStrategies(tc.DB, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	counts := engine.BucketCounts(tc.Clock.Now(), leads, strategies)
	return c.JSON(utils.SuccessResponse(counts))
}

// CompleteTask completes the lead's current step outside of a session
// (single mode) and advances the sequence cursor.
func (tc *TaskController) CompleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("leadID")

	var input struct {
		Note string `json:"note" validate:"omitempty,max=5000"`
	}
	// Body is optional in single mode
	_ = c.BodyParser(&input)
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := tc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	// Single mode opens exactly one card; the runner is back to idle once
	// the action resolves, whatever the outcome.
	runner := engine.NewRunner(nil)
	runner.OpenSingle()
	result, err := tc.completeStep(user, &lead, input.Note)
	runner.FinishSingle()
	if err != nil {
		switch err {
		case engine.ErrStepMismatch, engine.ErrStrategyMismatch:
			return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is not on this step anymore", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete task", err)
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead":          result.Lead,
		"activity":      result.Activity,
		"sequence_done": result.SequenceDone,
		"state":         runner.State(),
	}))
}

// SkipTask closes a single-mode look at the lead without completing its
// step. The lead, its cursor and its next task date are untouched; the
// task stays in whatever bucket it was in.
func (tc *TaskController) SkipTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("leadID")

	var lead models.Lead
	if err := tc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	runner := engine.NewRunner(nil)
	runner.OpenSingle()
	runner.FinishSingle()

	utils.LogEvent("task_skipped", map[string]interface{}{
		"user_id": user.ID,
		"lead_id": lead.ID,
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"lead":  lead,
		"state": runner.State(),
	}))
}

// completeStep runs advancement for the lead's current step and persists
// the resulting lead state and activity atomically. send_email steps also
// go out over SMTP when a mailer is configured; a delivery failure is
// logged but never blocks the cursor move.
func (tc *TaskController) completeStep(user *models.User, lead *models.Lead, note string) (*engine.StepResult, error) {
	if lead.StrategyID == nil {
		return nil, engine.ErrStrategyMismatch
	}

	var strategy models.Strategy
	if err := tc.DB.Where("id = ?", *lead.StrategyID).
		Preload("Steps", preloadSteps).
		First(&strategy).Error; err != nil {
		return nil, engine.ErrStrategyMismatch
	}

	completedIndex := lead.CurrentStepIndex
	result, err := engine.Advance(tc.Clock, *lead, strategy, completedIndex)
	if err != nil {
		return nil, err
	}
	if note != "" {
		result.Activity.Note = note
	}

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&result.Lead).Error; err != nil {
			return err
		}
		// A cursor already past the step list (the strategy shrank under
		// the lead) finishes the sequence with no step run, so there is
		// no activity to record.
		if result.Activity.Action != "" {
			activity := models.LeadActivity{
				LeadID:          result.Activity.LeadID,
				UserID:          user.ID,
				Action:          result.Activity.Action,
				Platform:        result.Activity.Platform,
				Note:            result.Activity.Note,
				IsFirstOutreach: result.Activity.IsFirstOutreach,
				ActivityAt:      result.Activity.ActivityAt,
			}
			if err := tx.Create(&activity).Error; err != nil {
				return err
			}
		}
		if result.SequenceDone {
			if err := tx.Model(&strategy).
				Update("completed_count", gorm.Expr("completed_count + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedIndex < len(strategy.Steps) {
		step := strategy.Steps[completedIndex]
		if step.Action == models.ActionSendEmail && tc.Mailer != nil {
			if err := tc.Mailer.SendOutreachEmail(user, lead, step.Template); err != nil {
				utils.LogEvent("outreach_email_failed", map[string]interface{}{
					"lead_id": lead.ID,
					"user_id": user.ID,
					"error":   err.Error(),
				})
			}
		}
	}

	*lead = result.Lead
	return &result, nil
}
