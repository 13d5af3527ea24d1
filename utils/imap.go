package utils

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"leadpilot/models"
)

// ReplyMessage is an inbound mailbox message matched against leads.
type ReplyMessage struct {
	FromAddress string
	Subject     string
	Snippet     string
	ReceivedAt  time.Time
}

// FetchUnseenReplies connects to the user's reply mailbox and returns every
// unseen message. Messages are left marked as seen so they are not
// re-processed on the next poll.
func FetchUnseenReplies(user *models.User) ([]ReplyMessage, error) {
	if user.IMAPHost == "" || user.IMAPUsername == "" {
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", user.IMAPHost, user.IMAPPort)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial failed: %w", err)
	}
	defer c.Logout()

	if err := c.Login(user.IMAPUsername, user.IMAPPassword); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("imap select failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var replies []ReplyMessage
	for msg := range messages {
		if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
			continue
		}
		from := msg.Envelope.From[0]
		reply := ReplyMessage{
			FromAddress: strings.ToLower(from.MailboxName + "@" + from.HostName),
			Subject:     msg.Envelope.Subject,
			ReceivedAt:  msg.Envelope.Date,
		}
		if body := msg.GetBody(section); body != nil {
			reply.Snippet = extractSnippet(body)
		}
		replies = append(replies, reply)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	return replies, nil
}

// extractSnippet pulls the first text part of a message, truncated for use
// as an activity note.
func extractSnippet(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			buf, err := io.ReadAll(io.LimitReader(part.Body, 500))
			if err != nil {
				return ""
			}
			return strings.TrimSpace(string(buf))
		}
	}
}
