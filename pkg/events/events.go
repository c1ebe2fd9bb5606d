package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/playdaycuts/booking-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopBus stands in when no broker is configured. Publishes are logged at
// debug level and dropped.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event bus not configured, dropping event", "subject", subject)
	return nil
}

func (NoopBus) Subscribe(string, func(msg *Message)) error { return nil }
func (NoopBus) Close() error                               { return nil }

var (
	_ EventBus = (*NATSEventBus)(nil)
	_ EventBus = NoopBus{}
)

// Event subjects
const (
	AppointmentCreated = "appointment.created"
	AppointmentStaged  = "appointment.staged"
	AppointmentsPruned = "appointment.pruned"
	NotifyFailed       = "notify.failed"
)

// Event payloads
type AppointmentCreatedEvent struct {
	AppointmentID    int64     `json:"appointment_id"`
	CustomerName     string    `json:"customer_name"`
	Cut              string    `json:"cut"`
	Day              string    `json:"day"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Location         string    `json:"location"`
	ConfirmationCode string    `json:"confirmation_code"`
	CreatedAt        time.Time `json:"created_at"`
}

type AppointmentStagedEvent struct {
	StagingKey   string    `json:"staging_key"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	StagedAt     time.Time `json:"staged_at"`
}

type AppointmentsPrunedEvent struct {
	Deleted  int64     `json:"deleted"`
	Cutoff   time.Time `json:"cutoff"`
	PrunedAt time.Time `json:"pruned_at"`
}

type NotifyFailedEvent struct {
	Channel       string    `json:"channel"` // "sms" or "email"
	AppointmentID int64     `json:"appointment_id,omitempty"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failed_at"`
}
