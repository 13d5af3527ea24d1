package models

import "gorm.io/gorm"

// Step channel actions. A step is one scheduled touch on a specific day
// offset via a specific channel.
const (
	ActionSendDM     = "send_dm"
	ActionSendEmail  = "send_email"
	ActionCall       = "call"
	ActionFBMessage  = "fb_message"
	ActionLinkedInDM = "linkedin_dm"
	ActionManual     = "manual"
	ActionWalkIn     = "walk_in"
)

var stepActions = map[string]bool{
	ActionSendDM:     true,
	ActionSendEmail:  true,
	ActionCall:       true,
	ActionFBMessage:  true,
	ActionLinkedInDM: true,
	ActionManual:     true,
	ActionWalkIn:     true,
}

// IsValidAction reports whether action is a known step channel.
func IsValidAction(action string) bool {
	return stepActions[action]
}

// PlatformForAction maps a step channel to the outreach platform recorded
// on activities.
func PlatformForAction(action string) string {
	switch action {
	case ActionSendDM:
		return "instagram"
	case ActionSendEmail:
		return "email"
	case ActionCall:
		return "phone"
	case ActionFBMessage:
		return "facebook"
	case ActionLinkedInDM:
		return "linkedin"
	case ActionWalkIn:
		return "in_person"
	default:
		return "other"
	}
}

// Strategy represents a named, ordered outreach sequence template
type Strategy struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Color       string `gorm:"default:'#3B82F6'" json:"color"`

	// Statistics (denormalized for performance)
	EnrolledCount  int `gorm:"default:0" json:"enrolled_count"`
	CompletedCount int `gorm:"default:0" json:"completed_count"`

	// Relations. Steps are loaded in authoring order (position), which is
	// the tie-break key for same-day steps in all derived views.
	Steps []StrategyStep `gorm:"foreignKey:StrategyID" json:"steps,omitempty"`
}

// StrategyStep represents one step in an outreach strategy
type StrategyStep struct {
	gorm.Model
	StrategyID uint `gorm:"not null;index" json:"strategy_id"`

	Position  int    `gorm:"not null" json:"position"`   // authoring order within the strategy
	DayOffset int    `gorm:"not null" json:"day_offset"` // days after sequence start (step 0)
	Action    string `gorm:"not null" json:"action"`
	Template  string `gorm:"type:text" json:"template"`
}
