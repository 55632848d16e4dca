package email

import (
	"context"
	"net/url"

	"github.com/labstack/gommon/log"
)

// Links holds the front-end pages action tokens are delivered to.
type Links struct {
	VerifyEmail        string
	ResetPassword      string
	ConfirmEmailChange string
}

// Mailer renders templates and sends them. Delivery is best-effort: failures
// are logged and never returned to the caller.
type Mailer struct {
	sender Sender
	links  Links
	logger *log.Logger
}

// NewMailer creates a Mailer.
func NewMailer(sender Sender, links Links) *Mailer {
	return &Mailer{sender: sender, links: links, logger: log.New("mailer")}
}

// SendVerification e-mails a confirmation link.
func (m *Mailer) SendVerification(ctx context.Context, to, token string) {
	if m == nil {
		return
	}
	m.send(ctx, verificationTemplate, to, linkData{Link: withToken(m.links.VerifyEmail, token, to)})
}

// SendPasswordReset e-mails a reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) {
	if m == nil {
		return
	}
	m.send(ctx, passwordResetTemplate, to, linkData{Link: withToken(m.links.ResetPassword, token, to)})
}

// SendEmailChange e-mails a confirmation link to the new address.
func (m *Mailer) SendEmailChange(ctx context.Context, newEmail, token string) {
	if m == nil {
		return
	}
	m.send(ctx, emailChangeTemplate, newEmail, linkData{Link: withToken(m.links.ConfirmEmailChange, token, newEmail)})
}

// SendAccountDeleted confirms a deletion.
func (m *Mailer) SendAccountDeleted(ctx context.Context, to string) {
	m.send(ctx, accountDeletedTemplate, to, nil)
}

// SendApplicationStatus tells an applicant the recruiter changed their status.
func (m *Mailer) SendApplicationStatus(ctx context.Context, to, companyName, position, status, feedback string) {
	m.send(ctx, statusUpdateTemplate, to, statusData{
		CompanyName: companyName,
		Position:    position,
		Status:      status,
		Feedback:    feedback,
	})
}

func (m *Mailer) send(ctx context.Context, t template, to string, data interface{}) {
	if m == nil || to == "" {
		return
	}
	msg, err := t.render(to, data)
	if err != nil {
		m.logger.Errorf("render %q: %v", t.subject, err)
		return
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.Warnf("send %q to %s: %v", msg.Subject, to, err)
	}
}

// withToken appends token and email query parameters to base.
func withToken(base, token, email string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}
