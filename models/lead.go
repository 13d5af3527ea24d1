package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead lifecycle statuses
const (
	StatusNotContacted = "not_contacted"
	StatusInProgress   = "in_progress"
	StatusReplied      = "replied"
	StatusQualified    = "qualified"
	StatusDisqualified = "disqualified"
	StatusClosedWon    = "closed_won"
	StatusClosedLost   = "closed_lost"
)

var terminalStatuses = map[string]bool{
	StatusReplied:    true,
	StatusClosedWon:  true,
	StatusClosedLost: true,
}

// IsTerminalStatus reports whether a lead in this status is out of the
// scheduling queue regardless of its next task date.
func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// IsValidStatus reports whether status is a known lead status.
func IsValidStatus(status string) bool {
	switch status {
	case StatusNotContacted, StatusInProgress, StatusReplied, StatusQualified,
		StatusDisqualified, StatusClosedWon, StatusClosedLost:
		return true
	}
	return false
}

// Lead represents a single prospect and its progress through an assigned
// outreach strategy.
type Lead struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	CompanyName string `gorm:"not null;index" json:"company_name"`
	ContactName string `json:"contact_name"`
	Email       string `gorm:"index" json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	City        string `json:"city"`
	Source      string `json:"source"` // manual, csv, scraper, api

	// Sequence progress cursor. CurrentStepIndex >= len(strategy.Steps)
	// means the sequence is complete even if Status is not yet terminal.
	StrategyID       *uint      `gorm:"index" json:"strategy_id,omitempty"`
	CurrentStepIndex int        `gorm:"default:0" json:"current_step_index"`
	NextTaskDate     *time.Time `gorm:"index" json:"next_task_date,omitempty"`
	Status           string     `gorm:"default:'not_contacted';index" json:"status"`

	// SequenceCompleted distinguishes "sequence exhausted" from a genuine
	// reply; both set Status to replied for store compatibility.
	SequenceCompleted bool `gorm:"default:false" json:"sequence_completed"`

	Notes string `gorm:"type:text" json:"notes"`

	// Relations
	Strategy   *Strategy      `json:"strategy,omitempty"`
	Activities []LeadActivity `gorm:"foreignKey:LeadID" json:"activities,omitempty"`
}

// LeadActivity records one outreach touch against a lead
type LeadActivity struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Action          string    `gorm:"not null" json:"action"`
	Platform        string    `json:"platform"`
	Note            string    `gorm:"type:text" json:"note"`
	IsFirstOutreach bool      `gorm:"default:false" json:"is_first_outreach"`
	ActivityAt      time.Time `gorm:"not null;index" json:"activity_at"`

	// Relations
	Lead Lead `json:"-"`
}

// ScrapeJob tracks a webhook-driven lead scraping run executed by the
// external scraper service.
type ScrapeJob struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Niche          string `gorm:"not null" json:"niche"`
	Location       string `gorm:"not null" json:"location"`
	Limit          int    `gorm:"default:50" json:"limit"`
	IncreaseRadius bool   `gorm:"default:false" json:"increase_radius"`

	Status         string `gorm:"default:'pending'" json:"status"` // pending, running, success, failed
	CallbackSecret string `gorm:"not null" json:"-"`
	LeadCount      int    `gorm:"default:0" json:"lead_count"`
	LastError      string `json:"last_error,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
