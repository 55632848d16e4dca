package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one message body. A returned error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, body []byte) error

const maxBackoff = 30 * time.Second

// Consume connects to the broker and feeds every message on queue to h. It
// reconnects with exponential backoff and returns only when ctx is done.
func Consume(ctx context.Context, url, queue string, h Handler) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("consumer %s: failed to dial broker: %v; retrying in %s", queue, err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("consumer %s: consume loop ended: %v; reconnecting", queue, err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("consumer %s: set QoS failed: %v", queue, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if handle(ctx, queue, d.Body, h) {
				_ = d.Ack(false)
			} else {
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
			}
		}
	}
}

// handle runs h and reports whether the message should be acked.
func handle(ctx context.Context, queue string, body []byte, h Handler) (ack bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("consumer %s: handler panic: %v", queue, r)
			ack = false
		}
	}()
	if err := h(ctx, body); err != nil {
		log.Printf("consumer %s: handle message failed: %v", queue, err)
		return false
	}
	return true
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
