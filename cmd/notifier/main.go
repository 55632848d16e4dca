package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"jobtracker/internal/config"
	"jobtracker/internal/email"
	"jobtracker/internal/metrics"
	"jobtracker/internal/queue"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9091", "address the /metrics endpoint listens on")
	flag.Parse()

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		stdlog.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sender email.Sender = email.NewLogSender()
	if cfg.SendGridAPIKey != "" {
		sender = email.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	} else {
		stdlog.Println("No SENDGRID_API_KEY configured, queued e-mail will only be logged")
	}

	m := metrics.New()
	logger := log.New("notifier")

	e := echo.New()
	e.HideBanner = true
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	go func() {
		if err := e.Start(*metricsAddr); err != nil && err != http.ErrServerClosed {
			stdlog.Fatalf("metrics server: %v", err)
		}
	}()

	var wg sync.WaitGroup
	consume := func(name string, h queue.Handler) {
		defer wg.Done()
		if err := queue.Consume(ctx, cfg.AMQPURL, name, h); err != nil && !errors.Is(err, context.Canceled) {
			stdlog.Printf("consumer %s stopped: %v", name, err)
		}
	}
	wg.Add(2)
	go consume(queue.EmailQueue, emailHandler(sender, m, logger))
	go consume(queue.EventsQueue, eventHandler(logger))

	stdlog.Printf("Notifier consuming %s and %s", queue.EmailQueue, queue.EventsQueue)
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		stdlog.Printf("shutdown: %v", err)
	}
}

// emailHandler delivers queued e-mail. Malformed messages and delivery
// failures are rejected without requeueing.
func emailHandler(sender email.Sender, m *metrics.Metrics, logger *log.Logger) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		msg, err := email.DecodeMessage(body)
		if err != nil {
			m.EmailProcessed(false)
			return err
		}
		if err := sender.Send(ctx, msg); err != nil {
			m.EmailProcessed(false)
			return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
		}
		m.EmailProcessed(true)
		logger.Infof("sent %q to %s", msg.Subject, msg.To)
		return nil
	}
}

func eventHandler(logger *log.Logger) queue.Handler {
	return func(_ context.Context, body []byte) error {
		var ev queue.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal event: %w", err)
		}
		if ev.Type == "" {
			return errors.New("event has no type")
		}
		logger.Infoj(log.JSON{
			"event":                    ev.Type,
			"occurred_at":              ev.OccurredAt,
			"user_id":                  ev.UserID,
			"actor_id":                 ev.ActorID,
			"job_application_id":       ev.JobApplicationID,
			"job_posting_id":           ev.JobPostingID,
			"recruiter_application_id": ev.RecruiterApplicationID,
			"status":                   ev.Status,
			"reason":                   ev.Reason,
		})
		return nil
	}
}
