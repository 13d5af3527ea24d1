package worker

import (
	"context"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"leadpilot/models"
	"leadpilot/utils"
)

// ReplyWorker polls each user's IMAP inbox for unseen replies and marks
// the matching leads replied, pulling them out of the scheduling queue.
type ReplyWorker struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewReplyWorker(db *gorm.DB, logger *log.Logger) *ReplyWorker {
	return &ReplyWorker{
		db:     db,
		logger: logger,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	rw.logger.Println("Starting reply worker...")
	ticker := time.NewTicker(5 * time.Minute)

	for {
		select {
		case <-ticker.C:
			rw.fetchAllReplies()
		case <-ctx.Done():
			rw.logger.Println("Stopping reply worker...")
			ticker.Stop()
			return
		}
	}
}

func (rw *ReplyWorker) fetchAllReplies() {
	rw.logger.Println("Checking inboxes for replies...")

	var users []models.User
	if err := rw.db.Where("is_active = ? AND imap_host IS NOT NULL AND imap_host != ''", true).
		Find(&users).Error; err != nil {
		rw.logger.Printf("Failed to fetch users: %v", err)
		return
	}

	for i := range users {
		user := &users[i]
		replies, err := utils.FetchUnseenReplies(user)
		if err != nil {
			rw.logger.Printf("Failed to fetch replies for user %d: %v", user.ID, err)
			continue
		}
		for _, reply := range replies {
			rw.matchReply(user, reply)
		}
	}
}

// matchReply looks up an in-sequence lead by sender address and marks it
// replied. A genuine reply keeps SequenceCompleted false so it is
// distinguishable from sequence exhaustion.
func (rw *ReplyWorker) matchReply(user *models.User, reply utils.ReplyMessage) {
	address := strings.ToLower(strings.TrimSpace(reply.FromAddress))
	if address == "" {
		return
	}

	var lead models.Lead
	err := rw.db.Where("user_id = ? AND LOWER(email) = ? AND status NOT IN ?",
		user.ID, address, []string{models.StatusReplied, models.StatusClosedWon, models.StatusClosedLost}).
		First(&lead).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			rw.logger.Printf("Lead lookup failed for %s: %v", address, err)
		}
		return
	}

	err = rw.db.Transaction(func(tx *gorm.DB) error {
		lead.Status = models.StatusReplied
		lead.SequenceCompleted = false
		lead.NextTaskDate = nil
		if err := tx.Save(&lead).Error; err != nil {
			return err
		}

		activity := models.LeadActivity{
			LeadID:     lead.ID,
			UserID:     user.ID,
			Action:     "reply_received",
			Platform:   "email",
			Note:       reply.Subject + "\n" + reply.Snippet,
			ActivityAt: reply.ReceivedAt,
		}
		return tx.Create(&activity).Error
	})
	if err != nil {
		rw.logger.Printf("Failed to record reply for lead %d: %v", lead.ID, err)
		return
	}

	utils.LogEvent("reply_matched", map[string]interface{}{
		"user_id": user.ID,
		"lead_id": lead.ID,
		"from":    address,
	})
}
