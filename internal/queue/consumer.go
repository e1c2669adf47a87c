package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// BookingLog appends one structured line per booking event to a file.
type BookingLog struct {
    logger *logrus.Logger
    closer io.Closer
}

// OpenBookingLog opens (creating when missing) the log file at path.
func OpenBookingLog(path string) (*BookingLog, error) {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return nil, fmt.Errorf("open log file: %w", err)
    }
    bl := NewBookingLog(f)
    bl.closer = f
    return bl, nil
}

// NewBookingLog writes JSON lines to w.
func NewBookingLog(w io.Writer) *BookingLog {
    l := logrus.New()
    l.SetOutput(w)
    l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
    return &BookingLog{logger: l}
}

// Close closes the underlying file, if any.
func (b *BookingLog) Close() error {
    if b.closer == nil {
        return nil
    }
    return b.closer.Close()
}

// Handle decodes one message body and writes it to the log.
func (b *BookingLog) Handle(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.BookingID == 0 {
        return errors.New("event without type or booking id")
    }
    b.logger.WithFields(logrus.Fields{
        "event":          ev.Type,
        "booking_id":     ev.BookingID,
        "reference":      ev.Reference,
        "customer_id":    ev.CustomerID,
        "item_id":        ev.ItemID,
        "item":           ev.ItemName,
        "quantity":       ev.Quantity,
        "amount":         ev.Amount.StringFixed(2),
        "currency":       ev.Currency,
        "state":          ev.State,
        "overbooked":     ev.Overbooked,
        "correlation_id": ev.CorrelationID,
        "occurred_at":    ev.OccurredAt.UTC().Format(time.RFC3339),
    }).Info("booking event")
    return nil
}

// Consumer reads booking events from RabbitMQ and hands them to a
// BookingLog.  It reconnects with exponential back-off until its context
// is cancelled.
type Consumer struct {
    url string
    log *BookingLog
}

// NewConsumer builds a consumer for the broker at url.
func NewConsumer(url string, bl *BookingLog) *Consumer {
    if url == "" {
        url = DefaultURL
    }
    return &Consumer{url: url, log: bl}
}

// Run blocks until ctx is done.  Broker failures are logged and retried.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return nil
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            logrus.WithError(err).Warnf("booking-consumer: failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
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
        logrus.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logrus.WithError(err).Warn("booking-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingQueueName, "", false, false, false, false, nil)
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
            if err := c.log.Handle(d.Body); err != nil {
                logrus.WithError(err).WithField("message_id", d.MessageId).Error("booking-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
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
