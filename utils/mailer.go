package utils

import (
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"gopkg.in/gomail.v2"

	"leadpilot/config"
	"leadpilot/models"
)

// Mailer sends outreach emails for send_email steps over the configured
// SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
}

func NewMailer() *Mailer {
	port := 587
	if p := ParseUint(config.AppConfig.SMTPPort); p > 0 {
		port = int(p)
	}
	return &Mailer{
		dialer: gomail.NewDialer(
			config.AppConfig.SMTPHost,
			port,
			config.AppConfig.SMTPUsername,
			config.AppConfig.SMTPPassword,
		),
	}
}

// ValidateLeadEmail checks syntax and, when strict, the domain's MX records.
func ValidateLeadEmail(email string, strict bool) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strict {
		if err := checkmail.ValidateHost(email); err != nil {
			return fmt.Errorf("email domain not deliverable: %w", err)
		}
	}
	return nil
}

// SendDigest emails the user their due-task summary.
func (m *Mailer) SendDigest(user *models.User, overdue, dueToday int) error {
	if user.Email == "" {
		return fmt.Errorf("user %d has no email address", user.ID)
	}

	body := fmt.Sprintf(
		"Good morning!\n\nYou have %d overdue task(s) and %d task(s) due today.\n\nStart a session to work through them.\n",
		overdue, dueToday,
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.AppConfig.FromEmail)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", "Your outreach tasks for today")
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

// RenderTemplate substitutes lead placeholders into a step template.
// Supported placeholders: {{company_name}}, {{contact_name}}, {{city}}.
func RenderTemplate(template string, lead *models.Lead) string {
	r := strings.NewReplacer(
		"{{company_name}}", lead.CompanyName,
		"{{contact_name}}", lead.ContactName,
		"{{city}}", lead.City,
	)
	return r.Replace(template)
}

// SendOutreachEmail delivers a rendered step template to the lead. The
// subject is the first line of the template; the rest is the body.
func (m *Mailer) SendOutreachEmail(user *models.User, lead *models.Lead, template string) error {
	if lead.Email == "" {
		return fmt.Errorf("lead %d has no email address", lead.ID)
	}
	if err := ValidateLeadEmail(lead.Email, false); err != nil {
		return err
	}

	rendered := RenderTemplate(template, lead)
	subject := rendered
	body := rendered
	if idx := strings.Index(rendered, "\n"); idx >= 0 {
		subject = strings.TrimSpace(rendered[:idx])
		body = strings.TrimSpace(rendered[idx+1:])
	}
	if subject == "" {
		subject = "Quick question about " + lead.CompanyName
	}

	fromEmail := user.SMTPFromEmail
	if fromEmail == "" {
		fromEmail = config.AppConfig.FromEmail
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", fromEmail, user.SMTPFromName)
	msg.SetHeader("To", lead.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send outreach email: %w", err)
	}

	LogEvent("outreach_email_sent", map[string]interface{}{
		"lead_id": lead.ID,
		"user_id": user.ID,
		"to":      lead.Email,
	})
	return nil
}
