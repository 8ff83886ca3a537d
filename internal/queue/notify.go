package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationConsumer drains the reservation event queue and appends one
// line per event to <dir>/notifications.log, standing in for the mail or
// SMS gateway that would message the guest.
type NotificationConsumer struct {
	url   string
	queue string
	dir   string

	// wait before a message that failed on I/O goes back to the queue
	requeueDelay time.Duration

	mu sync.Mutex
}

// ErrMalformedEvent marks messages that can never be handled. They are
// dropped; any other failure is requeued.
var ErrMalformedEvent = errors.New("malformed event")

// settler is the acknowledgement half of amqp.Delivery.
type settler interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func NewNotificationConsumer(url, queue, dir string) *NotificationConsumer {
	return &NotificationConsumer{url: url, queue: queue, dir: dir, requeueDelay: time.Second}
}

// Run connects, consumes and reconnects with backoff (1s doubling to 30s)
// until ctx is done.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			slog.Warn("notification consumer: dial failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("notification consumer: consume loop ended, reconnecting", slog.Any("err", err))
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *NotificationConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("notification consumer: set QoS failed", slog.Any("err", err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
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
			c.settle(ctx, d, d.MessageId, c.Handle(d.Body))
		}
	}
}

// settle acks handled messages, drops malformed ones and requeues the rest
// after requeueDelay.
func (c *NotificationConsumer) settle(ctx context.Context, d settler, messageID string, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformedEvent):
		slog.Error("notification consumer: dropping malformed message", slog.String("message_id", messageID), slog.Any("err", err))
		_ = d.Nack(false, false)
	default:
		slog.Warn("notification consumer: handle failed, requeueing", slog.String("message_id", messageID), slog.Any("err", err))
		sleepCtx(ctx, c.requeueDelay)
		_ = d.Nack(false, true)
	}
}

// Handle decodes one message body and appends its notification line.
func (c *NotificationConsumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Name == "" || ev.ReservationID == 0 {
		return fmt.Errorf("%w: no name or reservation id", ErrMalformedEvent)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(RenderNotification(ev) + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// RenderNotification formats ev as a single human-readable line.
func RenderNotification(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | reservation_id=%d | code=%s | location_id=%d | %s %s-%s | guests=%d | status=%s",
		ev.OccurredAt.UTC().Format(time.RFC3339), headline(ev), ev.ReservationID, ev.Code, ev.LocationID,
		ev.Date, ev.StartTime, ev.EndTime, ev.Guests, ev.Status)
	if ev.PreviousStatus != "" {
		fmt.Fprintf(&b, " | from=%s", ev.PreviousStatus)
	}
	if ev.Actor != "" {
		fmt.Fprintf(&b, " | by=%s", ev.Actor)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, " | reason=%q", ev.Reason)
	}
	fmt.Fprintf(&b, " | customer=%q phone=%s", ev.Customer.Name, ev.Customer.Phone)
	if ev.Customer.Email != "" {
		fmt.Fprintf(&b, " email=%s", ev.Customer.Email)
	}
	ids := make([]string, len(ev.TableIDs))
	for i, id := range ev.TableIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	fmt.Fprintf(&b, " | tables=[%s]", strings.Join(ids, ","))
	return b.String()
}

func headline(ev Event) string {
	switch ev.Name {
	case EventReservationCreated:
		return "Reservation received"
	case EventReservationUpdated:
		return "Reservation updated"
	case EventReservationStatusChanged:
		switch ev.Status {
		case "confirmed":
			return "Reservation confirmed"
		case "cancelled":
			return "Reservation cancelled"
		case "completed":
			return "Reservation completed"
		}
		return "Reservation status changed"
	}
	return ev.Name
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
