// Package email renders and delivers transactional e-mail.
package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"jobtracker/internal/queue"
)

// Message is a rendered e-mail.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridSender creates a SendGrid sender.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// QueueSender hands messages to the notifier through the broker.
type QueueSender struct {
	publisher queue.Publisher
}

// NewQueueSender creates a sender that publishes to queue.EmailQueue.
func NewQueueSender(p queue.Publisher) *QueueSender {
	return &QueueSender{publisher: p}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	return s.publisher.Publish(ctx, queue.EmailQueue, msg)
}

// LogSender logs messages instead of delivering them.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender() *LogSender {
	return &LogSender{logger: log.New("email")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Infof("no e-mail provider configured, dropping %q to %s", msg.Subject, msg.To)
	return nil
}

// DecodeMessage parses a queued message body.
func DecodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal: %w", err)
	}
	if msg.To == "" {
		return msg, fmt.Errorf("message has no recipient")
	}
	return msg, nil
}
