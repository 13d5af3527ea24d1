package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/utils"
)

type StrategyController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewStrategyController(db *gorm.DB, logger *log.Logger) *StrategyController {
	return &StrategyController{
		DB:     db,
		Logger: logger,
	}
}

type strategyStepInput struct {
	DayOffset int    `json:"day_offset" validate:"gte=0"`
	Action    string `json:"action" validate:"required,oneof=send_dm send_email call fb_message linkedin_dm manual walk_in"`
	Template  string `json:"template"`
}

type strategyInput struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Description string              `json:"description" validate:"omitempty,max=2000"`
	Color       string              `json:"color" validate:"omitempty,max=20"`
	Steps       []strategyStepInput `json:"steps" validate:"required,min=1,dive"`
}

// preloadSteps loads steps in authoring order; position is the tie-break
// key for same-day steps everywhere downstream.
func preloadSteps(db *gorm.DB) *gorm.DB {
	return db.Order("strategy_steps.position ASC")
}

// CreateStrategy creates a strategy with its ordered steps
func (sc *StrategyController) CreateStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input strategyInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	strategy := models.Strategy{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
	}
	if input.Color != "" {
		strategy.Color = input.Color
	}
	for i, step := range input.Steps {
		strategy.Steps = append(strategy.Steps, models.StrategyStep{
			Position:  i,
			DayOffset: step.DayOffset,
			Action:    step.Action,
			Template:  step.Template,
		})
	}

	if err := sc.DB.Create(&strategy).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create strategy", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(strategy))
}

// GetStrategies returns all strategies for the current user
func (sc *StrategyController) GetStrategies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var strategies []models.Strategy
	if err := sc.DB.Where("user_id = ?", user.ID).
		Preload("Steps", preloadSteps).
		Order("created_at DESC").
		Find(&strategies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategies", err)
	}

	return c.JSON(utils.SuccessResponse(strategies))
}

// GetStrategy returns a single strategy with its steps
func (sc *StrategyController) GetStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	strategyID := c.Params("id")

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", strategyID, user.ID).
		Preload("Steps", preloadSteps).
		First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Strategy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategy", err)
	}

	return c.JSON(utils.SuccessResponse(strategy))
}

// GetStrategyTimeline returns the strategy's steps grouped by day offset,
// used for both the read-only preview and the step editor.
func (sc *StrategyController) GetStrategyTimeline(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	strategyID := c.Params("id")

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", strategyID, user.ID).
		Preload("Steps", preloadSteps).
		First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Strategy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategy", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"strategy_id": strategy.ID,
		"name":        strategy.Name,
		"color":       strategy.Color,
		"days":        engine.GroupByDay(strategy.Steps),
	}))
}

// UpdateStrategy replaces the strategy's fields and step list
func (sc *StrategyController) UpdateStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	strategyID := c.Params("id")

	var input strategyInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", strategyID, user.ID).First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Strategy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategy", err)
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		strategy.Name = input.Name
		strategy.Description = input.Description
		if input.Color != "" {
			strategy.Color = input.Color
		}
		if err := tx.Save(&strategy).Error; err != nil {
			return err
		}

		// Replace the step list wholesale; leads keep their cursor index
		// into the new list.
		if err := tx.Where("strategy_id = ?", strategy.ID).Delete(&models.StrategyStep{}).Error; err != nil {
			return err
		}
		for i, step := range input.Steps {
			newStep := models.StrategyStep{
				StrategyID: strategy.ID,
				Position:   i,
				DayOffset:  step.DayOffset,
				Action:     step.Action,
				Template:   step.Template,
			}
			if err := tx.Create(&newStep).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update strategy", err)
	}

	if err := sc.DB.Preload("Steps", preloadSteps).First(&strategy, strategy.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reload strategy", err)
	}
	return c.JSON(utils.SuccessResponse(strategy))
}

// DeleteStrategy removes a strategy and resets the progress of every lead
// that was enrolled in it.
func (sc *StrategyController) DeleteStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	strategyID := c.Params("id")

	var strategy models.Strategy
	if err := sc.DB.Where("id = ? AND user_id = ?", strategyID, user.ID).First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Strategy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategy", err)
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lead{}).
			Where("strategy_id = ?", strategy.ID).
			Updates(map[string]interface{}{
				"strategy_id":        nil,
				"current_step_index": 0,
				"next_task_date":     nil,
				"status":             models.StatusNotContacted,
				"sequence_completed": false,
			}).Error; err != nil {
			return err
		}
		if err := tx.Where("strategy_id = ?", strategy.ID).Delete(&models.StrategyStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&strategy).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete strategy", err)
	}

	return c.JSON(fiber.Map{"message": "Strategy deleted successfully"})
}
