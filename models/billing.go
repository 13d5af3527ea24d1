package models

import "gorm.io/gorm"

// Plan represents available lead credit packages
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex" json:"name"` // free, starter, grow, enterprise
	Description string `json:"description"`

	// Lead credits (scraper + import allowance)
	LeadCredits int `gorm:"not null" json:"lead_credits"`
	Price       int `gorm:"not null" json:"price"` // in cents

	// Features
	MaxStrategies   int  `gorm:"default:3" json:"max_strategies"`
	MaxActiveLeads  int  `gorm:"default:500" json:"max_active_leads"`
	ScraperEnabled  bool `gorm:"default:false" json:"scraper_enabled"`
	SessionsEnabled bool `gorm:"default:true" json:"sessions_enabled"`

	// For display purposes
	DisplayPrice string `gorm:"-" json:"display_price"` // e.g. "$20"
	IsPopular    bool   `gorm:"default:false" json:"is_popular"`
	Recommended  bool   `gorm:"default:false" json:"recommended"`

	StripePriceID   string `json:"stripe_price_id"`
	BillingInterval string `json:"billing_interval" gorm:"default:'one_time'"` // one_time, monthly, yearly
}

// CreditTransaction records credit purchases and usage
type CreditTransaction struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	PlanID *uint `json:"plan_id,omitempty"`

	// Positive for purchases, negative for usage
	LeadCredits int `gorm:"not null" json:"lead_credits"`

	Amount        int    `json:"amount"` // in cents
	Currency      string `gorm:"default:'USD'" json:"currency"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `gorm:"default:'pending'" json:"payment_status"` // pending, succeeded, failed, refunded

	Description           string `json:"description"`
	StripePaymentIntentID string `json:"stripe_payment_intent_id"`
	StripeChargeID        string `json:"stripe_charge_id"`
	ReceiptURL            string `json:"receipt_url,omitempty"`

	// Relations
	User User  `json:"-"`
	Plan *Plan `json:"plan,omitempty"`
}
