package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns leads, strategies and sessions
type User struct {
	gorm.Model
	Email        string  `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Name         *string `json:"name"`
	GoogleID     *string `gorm:"index" json:"-"`

	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Billing
	PlanName         string  `gorm:"default:'free'" json:"plan_name"`
	LeadCredits      int     `gorm:"default:0" json:"lead_credits"`
	StripeCustomerID *string `json:"-"`

	// Reply mailbox (IMAP) used to detect genuine replies from leads
	IMAPHost     string `json:"imap_host"`
	IMAPPort     int    `gorm:"default:993" json:"imap_port"`
	IMAPUsername string `json:"imap_username"`
	IMAPPassword string `json:"-"`

	// Outbound SMTP used for send_email steps
	SMTPFromEmail string `json:"smtp_from_email"`
	SMTPFromName  string `json:"smtp_from_name"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// Relations
	Strategies []Strategy `gorm:"foreignKey:UserID" json:"strategies,omitempty"`
	Leads      []Lead     `gorm:"foreignKey:UserID" json:"leads,omitempty"`
}
