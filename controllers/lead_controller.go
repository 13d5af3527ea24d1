package controller

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/utils"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Clock  engine.Clock
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
		Clock:  engine.SystemClock,
	}
}

type leadInput struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	ContactName string `json:"contact_name" validate:"omitempty,max=200"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=50"`
	Website     string `json:"website" validate:"omitempty,max=500"`
	City        string `json:"city" validate:"omitempty,max=200"`
	Notes       string `json:"notes" validate:"omitempty,max=5000"`
}

// checkLeadCapacity enforces the plan's active lead ceiling before adding
// more leads.
func (lc *LeadController) checkLeadCapacity(user *models.User, adding int) error {
	var plan models.Plan
	if err := lc.DB.Where("name = ?", user.PlanName).First(&plan).Error; err != nil {
		return fmt.Errorf("plan %q not found", user.PlanName)
	}
	if plan.MaxActiveLeads <= 0 {
		return nil // unlimited
	}

	var count int64
	if err := lc.DB.Model(&models.Lead{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return err
	}
	if int(count)+adding > plan.MaxActiveLeads {
		return fmt.Errorf("plan limit of %d leads reached", plan.MaxActiveLeads)
	}
	return nil
}

// CreateLead creates a single lead
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Email != "" {
		if err := utils.ValidateLeadEmail(input.Email, false); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
		}
	}
	if err := lc.checkLeadCapacity(user, 1); err != nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Lead limit reached", err)
	}

	lead := models.Lead{
		UserID:      user.ID,
		CompanyName: input.CompanyName,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Website:     input.Website,
		City:        input.City,
		Notes:       input.Notes,
		Source:      "manual",
		Status:      models.StatusNotContacted,
	}
	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads returns a paginated, filterable list of the user's leads
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := lc.DB.Model(&models.Lead{}).Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		if !models.IsValidStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status filter", nil)
		}
		query = query.Where("status = ?", status)
	}
	if strategyID := c.Query("strategy_id"); strategyID != "" {
		query = query.Where("strategy_id = ?", utils.ParseUint(strategyID))
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("company_name ILIKE ? OR contact_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var leads []models.Lead
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLead returns a single lead with its strategy and activity history
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).
		Preload("Strategy.Steps", preloadSteps).
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_at DESC")
		}).
		First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// UpdateLead updates contact fields and, when provided, the status
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		leadInput
		Status string `json:"status" validate:"omitempty"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input.leadInput); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Status != "" && !models.IsValidStatus(input.Status) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown lead status", nil)
	}

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	lead.CompanyName = input.CompanyName
	lead.ContactName = input.ContactName
	lead.Email = input.Email
	lead.Phone = input.Phone
	lead.Website = input.Website
	lead.City = input.City
	lead.Notes = input.Notes
	if input.Status != "" {
		lead.Status = input.Status
		// Marking a lead replied by hand means a real reply came in, not
		// sequence exhaustion.
		if input.Status == models.StatusReplied {
			lead.SequenceCompleted = false
		}
		if models.IsTerminalStatus(input.Status) {
			lead.NextTaskDate = nil
		}
	}

	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

// DeleteLead removes a lead and its activity history
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", lead.ID).Delete(&models.LeadActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&lead).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", err)
	}

	return c.JSON(fiber.Map{"message": "Lead deleted successfully"})
}

// AssignStrategy enrolls a lead into a strategy: cursor to step 0, status
// in_progress, first task due now.
func (lc *LeadController) AssignStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		StrategyID uint `json:"strategy_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	var strategy models.Strategy
	if err := lc.DB.Where("id = ? AND user_id = ?", input.StrategyID, user.ID).
		Preload("Steps", preloadSteps).
		First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Strategy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch strategy", err)
	}
	if len(strategy.Steps) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Strategy has no steps", nil)
	}

	now := lc.Clock.Now()
	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		lead.StrategyID = &strategy.ID
		lead.CurrentStepIndex = 0
		lead.NextTaskDate = &now
		lead.Status = models.StatusInProgress
		lead.SequenceCompleted = false
		if err := tx.Save(&lead).Error; err != nil {
			return err
		}
		return tx.Model(&strategy).
			Update("enrolled_count", gorm.Expr("enrolled_count + 1")).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assign strategy", err)
	}

	utils.LogEvent("strategy_assigned", map[string]interface{}{
		"user_id":     user.ID,
		"lead_id":     lead.ID,
		"strategy_id": strategy.ID,
	})
	return c.JSON(utils.SuccessResponse(lead))
}

// UnassignStrategy clears the lead's sequence progress
func (lc *LeadController) UnassignStrategy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	lead.StrategyID = nil
	lead.CurrentStepIndex = 0
	lead.NextTaskDate = nil
	lead.Status = models.StatusNotContacted
	lead.SequenceCompleted = false
	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to unassign strategy", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// ImportLeads ingests a CSV upload. Unknown columns are ignored, rows
// without a company name are skipped and reported.
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Missing CSV file upload", err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read CSV header", err)
	}
	columns := make([]string, len(header))
	for i, cell := range header {
		columns[i] = utils.NormalizeCSVHeader(cell)
	}

	var leads []models.Lead
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Malformed CSV row", err)
		}

		lead := models.Lead{
			UserID: user.ID,
			Source: "csv",
			Status: models.StatusNotContacted,
		}
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			switch columns[i] {
			case "company_name":
				lead.CompanyName = cell
			case "contact_name":
				lead.ContactName = cell
			case "email":
				lead.Email = cell
			case "phone":
				lead.Phone = cell
			case "website":
				lead.Website = cell
			case "city":
				lead.City = cell
			case "notes":
				lead.Notes = cell
			}
		}
		if lead.CompanyName == "" {
			skipped++
			continue
		}
		if lead.Email != "" {
			if err := utils.ValidateLeadEmail(lead.Email, false); err != nil {
				lead.Email = ""
			}
		}
		leads = append(leads, lead)
	}

	if len(leads) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No importable rows found", nil)
	}
	if err := lc.checkLeadCapacity(user, len(leads)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Lead limit reached", err)
	}

	if err := lc.DB.CreateInBatches(&leads, 200).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import leads", err)
	}

	utils.LogEvent("leads_imported", map[string]interface{}{
		"user_id":  user.ID,
		"imported": len(leads),
		"skipped":  skipped,
	})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"imported": len(leads),
		"skipped":  skipped,
	}))
}

// ExportLeads streams the user's leads as a CSV download
func (lc *LeadController) ExportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var leads []models.Lead
	if err := lc.DB.Where("user_id = ?", user.ID).Order("created_at ASC").Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"company_name", "contact_name", "email", "phone", "website", "city", "status", "notes"})
	for _, lead := range leads {
		_ = writer.Write([]string{
			lead.CompanyName,
			lead.ContactName,
			lead.Email,
			lead.Phone,
			lead.Website,
			lead.City,
			lead.Status,
			lead.Notes,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to write CSV", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=leads-%s.csv", time.Now().Format("2006-01-02")))
	return c.Send(buf.Bytes())
}

// AddActivity records a manual outreach touch against a lead. It does not
// move the sequence cursor; step completion goes through the task endpoints.
func (lc *LeadController) AddActivity(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input struct {
		Action string `json:"action" validate:"required"`
		Note   string `json:"note" validate:"omitempty,max=5000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if !models.IsValidAction(input.Action) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown action", nil)
	}

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	activity := models.LeadActivity{
		LeadID:     lead.ID,
		UserID:     user.ID,
		Action:     input.Action,
		Platform:   models.PlatformForAction(input.Action),
		Note:       input.Note,
		ActivityAt: lc.Clock.Now(),
	}
	if err := lc.DB.Create(&activity).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record activity", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(activity))
}

// GetActivities returns a lead's activity history, newest first
func (lc *LeadController) GetActivities(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", leadID, user.ID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	var activities []models.LeadActivity
	if err := lc.DB.Where("lead_id = ?", lead.ID).
		Order("activity_at DESC").
		Find(&activities).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch activities", err)
	}

	return c.JSON(utils.SuccessResponse(activities))
}
