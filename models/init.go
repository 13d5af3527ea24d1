package models

import "gorm.io/gorm"

// Initialize default plans in your database migration
func CreateDefaultPlans(db *gorm.DB) error {
	defaultPlans := []Plan{
		{
			Name:           "free",
			Description:    "Free starter plan with 100 lead credits",
			LeadCredits:    100,
			Price:          0,
			MaxStrategies:  2,
			MaxActiveLeads: 100,
		},
		{
			Name:            "starter",
			Description:     "Starter plan with 1,000 lead credits and scraper access",
			LeadCredits:     1000,
			Price:           2000, // $20
			MaxStrategies:   5,
			MaxActiveLeads:  1000,
			ScraperEnabled:  true,
			DisplayPrice:    "$20",
			BillingInterval: "monthly",
		},
		{
			Name:            "grow",
			Description:     "Growth plan with 5,000 lead credits",
			LeadCredits:     5000,
			Price:           6000, // $60
			MaxStrategies:   20,
			MaxActiveLeads:  5000,
			ScraperEnabled:  true,
			DisplayPrice:    "$60",
			IsPopular:       true,
			Recommended:     true,
			BillingInterval: "monthly",
		},
		{
			Name:            "enterprise",
			Description:     "Custom plan for high-volume teams",
			LeadCredits:     25000,
			Price:           20000, // $200
			MaxStrategies:   100,
			MaxActiveLeads:  50000,
			ScraperEnabled:  true,
			DisplayPrice:    "$200",
			BillingInterval: "monthly",
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "name = ?", plan.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
