package email

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/queue"
)

type captureSender struct {
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

type capturePublisher struct {
	queue string
	msg   interface{}
}

func (c *capturePublisher) Publish(_ context.Context, q string, v interface{}) error {
	c.queue, c.msg = q, v
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestMailer_LinksCarryTokenAndEmail(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, Links{
		VerifyEmail:   "https://app.example.com/verify-email",
		ResetPassword: "https://app.example.com/reset-password?src=mail",
	})

	m.SendVerification(context.Background(), "a+b@example.com", "tok/en")
	m.SendPasswordReset(context.Background(), "a@example.com", "reset")
	require.Len(t, sender.sent, 2)

	verify := sender.sent[0]
	assert.Equal(t, "a+b@example.com", verify.To)
	assert.Equal(t, "Verify Your Email Address", verify.Subject)
	assert.Contains(t, verify.Text, "https://app.example.com/verify-email?")
	assert.Contains(t, verify.Text, "token="+url.QueryEscape("tok/en"))
	assert.Contains(t, verify.Text, "email="+url.QueryEscape("a+b@example.com"))

	reset := sender.sent[1]
	assert.Contains(t, reset.Text, "src=mail")
	assert.Contains(t, reset.HTML, "30 minutes")
}

func TestMailer_StatusUpdateEscapesHTML(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, Links{})

	m.SendApplicationStatus(context.Background(), "b@example.com", "Acme", "Engineer", "InterviewRequested", "<b>great</b>")
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "Update on your application to Acme", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;b&gt;great&lt;/b&gt;")
	assert.Contains(t, msg.Text, "Feedback: <b>great</b>")
}

func TestMailer_FailuresAreSwallowed(t *testing.T) {
	sender := &captureSender{err: errors.New("provider down")}
	m := NewMailer(sender, Links{})

	assert.NotPanics(t, func() { m.SendAccountDeleted(context.Background(), "a@example.com") })
	assert.Len(t, sender.sent, 1)

	var nilMailer *Mailer
	assert.NotPanics(t, func() { nilMailer.SendAccountDeleted(context.Background(), "a@example.com") })
}

func TestQueueSender(t *testing.T) {
	p := &capturePublisher{}
	s := NewQueueSender(p)

	msg := Message{To: "a@example.com", Subject: "hi"}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, queue.EmailQueue, p.queue)
	assert.Equal(t, msg, p.msg)
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"to":"a@example.com","subject":"s","html":"<p>x</p>","text":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", msg.To)

	_, err = DecodeMessage([]byte(`{"subject":"s"}`))
	assert.Error(t, err)
	_, err = DecodeMessage([]byte(`{`))
	assert.Error(t, err)
}
