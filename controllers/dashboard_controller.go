package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Clock  engine.Clock
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
		Clock:  engine.SystemClock,
	}
}

type DashboardStats struct {
	TotalLeads     int64   `json:"total_leads"`
	ActiveLeads    int64   `json:"active_leads"`
	TotalTouches   int64   `json:"total_touches"`
	FirstOutreach  int64   `json:"first_outreach"`
	ReplyRate      float64 `json:"reply_rate"`
	CompletionRate float64 `json:"completion_rate"`
}

type StrategySummary struct {
	Name      string `json:"name"`
	Enrolled  int    `json:"enrolled"`
	Completed int    `json:"completed"`
	Color     string `json:"color"`
}

// GetDashboardStats returns the summary cards: task bucket counts plus
// outreach volume and outcome rates for the selected window.
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	timeFrame := c.Query("time_frame", "week") // day, week, month

	now := dc.Clock.Now()
	var startTime time.Time
	switch timeFrame {
	case "day":
		startTime = now.Add(-24 * time.Hour)
	case "month":
		startTime = now.Add(-30 * 24 * time.Hour)
	default:
		startTime = now.Add(-7 * 24 * time.Hour)
	}

	leads, strategies, err := loadLeadsAndStrategies(dc.DB, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}
	counts := engine.BucketCounts(now, leads, strategies)

	var stats DashboardStats
	stats.TotalLeads = int64(len(leads))

	if err := dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND status = ?", user.ID, models.StatusInProgress).
		Count(&stats.ActiveLeads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get lead stats", err)
	}

	if err := dc.DB.Model(&models.LeadActivity{}).
		Where("user_id = ? AND activity_at BETWEEN ? AND ?", user.ID, startTime, now).
		Count(&stats.TotalTouches).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get activity stats", err)
	}

	dc.DB.Model(&models.LeadActivity{}).
		Where("user_id = ? AND is_first_outreach = ? AND activity_at BETWEEN ? AND ?", user.ID, true, startTime, now).
		Count(&stats.FirstOutreach)

	// Genuine replies only; sequence exhaustion also sets status replied
	// but flags sequence_completed.
	var replied int64
	dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND status = ? AND sequence_completed = ?", user.ID, models.StatusReplied, false).
		Count(&replied)

	var contacted int64
	dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND status NOT IN ?", user.ID, []string{models.StatusNotContacted}).
		Count(&contacted)

	if contacted > 0 {
		stats.ReplyRate = float64(replied) / float64(contacted) * 100
	}

	var completed int64
	dc.DB.Model(&models.Lead{}).
		Where("user_id = ? AND sequence_completed = ?", user.ID, true).
		Count(&completed)
	if contacted > 0 {
		stats.CompletionRate = float64(completed) / float64(contacted) * 100
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"stats":   stats,
		"buckets": counts,
	}))
}

// GetRecentStrategies returns data for the strategies table
func (dc *DashboardController) GetRecentStrategies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	limit := c.QueryInt("limit", 5)

	var strategies []models.Strategy
	if err := dc.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&strategies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get strategies", err)
	}

	summaries := make([]StrategySummary, 0, len(strategies))
	for _, strategy := range strategies {
		summaries = append(summaries, StrategySummary{
			Name:      strategy.Name,
			Enrolled:  strategy.EnrolledCount,
			Completed: strategy.CompletedCount,
			Color:     strategy.Color,
		})
	}

	return c.JSON(utils.SuccessResponse(summaries))
}

// GetActivityFeed returns the most recent outreach touches
func (dc *DashboardController) GetActivityFeed(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var activities []models.LeadActivity
	if err := dc.DB.Where("user_id = ?", user.ID).
		Order("activity_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get activity feed", err)
	}

	return c.JSON(utils.SuccessResponse(activities))
}
