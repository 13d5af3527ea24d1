package controller

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"leadpilot/config"
	"leadpilot/models"
	"leadpilot/utils"
)

type ScrapeController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewScrapeController(db *gorm.DB, logger *log.Logger) *ScrapeController {
	return &ScrapeController{
		DB:     db,
		Logger: logger,
	}
}

type scrapeJobInput struct {
	Niche          string `json:"niche" validate:"required,max=200"`
	Location       string `json:"location" validate:"required,max=200"`
	Limit          int    `json:"limit" validate:"gte=1,lte=500"`
	IncreaseRadius bool   `json:"increase_radius"`
}

// scrapeCallbackPayload is the shape the external scraper posts back.
type scrapeCallbackPayload struct {
	JobID  uint   `json:"job_id" validate:"required"`
	UserID uint   `json:"user_id" validate:"required"`
	Secret string `json:"secret" validate:"required"`
	Status string `json:"status" validate:"required,oneof=running success failed"`
	Error  string `json:"error"`
	Leads  []struct {
		CompanyName string `json:"company_name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Website     string `json:"website"`
		City        string `json:"city"`
	} `json:"leads"`
}

func newCallbackSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateScrapeJob records a scrape job and dispatches it to the external
// scraper service. Lead credits are reserved up front by the limit; the
// callback settles the actual usage.
func (sc *ScrapeController) CreateScrapeJob(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input scrapeJobInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var plan models.Plan
	if err := sc.DB.Where("name = ?", user.PlanName).First(&plan).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Plan lookup failed", err)
	}
	if !plan.ScraperEnabled {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Scraping is not available on your plan", nil)
	}
	if user.LeadCredits < input.Limit {
		return utils.ErrorResponse(c, fiber.StatusPaymentRequired, "Not enough lead credits", nil)
	}

	secret, err := newCallbackSecret()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create job", err)
	}

	job := models.ScrapeJob{
		UserID:         user.ID,
		Niche:          input.Niche,
		Location:       input.Location,
		Limit:          input.Limit,
		IncreaseRadius: input.IncreaseRadius,
		Status:         "pending",
		CallbackSecret: secret,
	}
	if err := sc.DB.Create(&job).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create job", err)
	}

	if err := sc.dispatchJob(&job); err != nil {
		job.Status = "failed"
		job.LastError = err.Error()
		sc.DB.Save(&job)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to dispatch scrape job", err)
	}

	utils.LogEvent("scrape_job_created", map[string]interface{}{
		"user_id": user.ID,
		"job_id":  job.ID,
		"niche":   job.Niche,
		"limit":   job.Limit,
	})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(job))
}

// dispatchJob posts the job to the configured scraper service. Without a
// configured URL the job stays pending for manual pickup.
func (sc *ScrapeController) dispatchJob(job *models.ScrapeJob) error {
	url := config.AppConfig.ScraperWebhookURL
	if url == "" {
		sc.Logger.Printf("no scraper URL configured, job %d left pending", job.ID)
		return nil
	}

	agent := fiber.Post(url)
	agent.Timeout(15 * time.Second)
	agent.JSON(fiber.Map{
		"job_id":          job.ID,
		"user_id":         job.UserID,
		"secret":          job.CallbackSecret,
		"niche":           job.Niche,
		"location":        job.Location,
		"limit":           job.Limit,
		"increase_radius": job.IncreaseRadius,
	})

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status >= 300 {
		return fiber.NewError(status, "scraper service rejected the job")
	}

	job.Status = "running"
	return sc.DB.Save(job).Error
}

// GetScrapeJobs lists the user's scrape jobs, newest first
func (sc *ScrapeController) GetScrapeJobs(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var jobs []models.ScrapeJob
	if err := sc.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(100).
		Find(&jobs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch jobs", err)
	}

	return c.JSON(utils.SuccessResponse(jobs))
}

// HandleScraperCallback ingests results from the external scraper. It is a
// public endpoint; the per-job secret is the only credential.
func (sc *ScrapeController) HandleScraperCallback(c *fiber.Ctx) error {
	var payload scrapeCallbackPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid callback payload", err)
	}
	if err := utils.ValidateStruct(payload); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var job models.ScrapeJob
	if err := sc.DB.Where("id = ? AND user_id = ?", payload.JobID, payload.UserID).First(&job).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Job not found", nil)
	}
	if job.CallbackSecret != payload.Secret {
		utils.LogEvent("scrape_callback_bad_secret", map[string]interface{}{
			"job_id": job.ID,
			"ip":     c.IP(),
		})
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid callback secret", nil)
	}

	switch payload.Status {
	case "running":
		job.Status = "running"
		if err := sc.DB.Save(&job).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update job", err)
		}
		return c.SendStatus(fiber.StatusOK)

	case "failed":
		now := time.Now()
		job.Status = "failed"
		job.LastError = payload.Error
		job.CompletedAt = &now
		if err := sc.DB.Save(&job).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update job", err)
		}
		return c.SendStatus(fiber.StatusOK)
	}

	// success: insert leads and settle credit usage
	leads := make([]models.Lead, 0, len(payload.Leads))
	for _, scraped := range payload.Leads {
		if scraped.CompanyName == "" {
			continue
		}
		email := scraped.Email
		if email != "" {
			if err := utils.ValidateLeadEmail(email, false); err != nil {
				email = ""
			}
		}
		leads = append(leads, models.Lead{
			UserID:      job.UserID,
			CompanyName: scraped.CompanyName,
			Email:       email,
			Phone:       scraped.Phone,
			Website:     scraped.Website,
			City:        scraped.City,
			Source:      "scraper",
			Status:      models.StatusNotContacted,
		})
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if len(leads) > 0 {
			if err := tx.CreateInBatches(&leads, 200).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).
				Where("id = ?", job.UserID).
				Update("lead_credits", gorm.Expr("GREATEST(lead_credits - ?, 0)", len(leads))).Error; err != nil {
				return err
			}
			usage := models.CreditTransaction{
				UserID:        job.UserID,
				LeadCredits:   -len(leads),
				PaymentStatus: "succeeded",
				Description:   "Scrape job usage",
			}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		job.Status = "success"
		job.LeadCount = len(leads)
		job.CompletedAt = &now
		return tx.Save(&job).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to ingest scraped leads", err)
	}

	utils.LogEvent("scrape_job_completed", map[string]interface{}{
		"job_id":     job.ID,
		"user_id":    job.UserID,
		"lead_count": len(leads),
	})
	return c.SendStatus(fiber.StatusOK)
}
