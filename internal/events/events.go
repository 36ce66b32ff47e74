// Package events publishes poll outcomes and work-order assignments to an AMQP
// topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/store"
)

// Routing keys.
const (
	KeyPollCompleted   = "poll.completed"
	KeyPollFailed      = "poll.failed"
	KeyAssignedPrefix  = "workorder.assigned."
	KeyTechnicianMoved = "technician.moved"
)

// Publisher delivers a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Message is an encoded event ready to publish.
type Message struct {
	Key  string
	Body []byte
}

func encode(key, typ string, at time.Time, data any) (Message, error) {
	body, err := json.Marshal(Envelope{Type: typ, At: at.UTC(), Data: data})
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	return Message{Key: key, Body: body}, nil
}

// PollMessage encodes a poll run. Failed runs go to KeyPollFailed.
func PollMessage(run model.PollRun) (Message, error) {
	key := KeyPollCompleted
	if run.Error != "" {
		key = KeyPollFailed
	}
	return encode(key, key, run.FinishedAt, run)
}

// AssignmentMessage encodes a new assignment. The technician name becomes the
// last routing key segment so consumers can bind per technician.
func AssignmentMessage(at time.Time, a store.Assignment) (Message, error) {
	return encode(KeyAssignedPrefix+RoutingSegment(a.Technician), "workorder.assigned", at, a)
}

// MovedMessage encodes the IDs of technicians whose position changed.
func MovedMessage(at time.Time, ids []string) (Message, error) {
	return encode(KeyTechnicianMoved, KeyTechnicianMoved, at, map[string]any{"technicians": ids})
}

// RoutingSegment turns a free-form name into a single topic word: lower case,
// runs of anything but letters and digits collapsed to '_'.
func RoutingSegment(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	s := strings.TrimSuffix(b.String(), "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// Send publishes msgs in order and joins the errors.
func Send(ctx context.Context, p Publisher, msgs ...Message) error {
	var errs []error
	for _, m := range msgs {
		if err := p.Publish(ctx, m.Key, m.Body); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", m.Key, err))
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// AMQPPublisher publishes persistent JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	logger := logging.Component("events")
	logger.Info().Str("exchange", exchange).Msg("connected to broker")
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends body under key.
func (p *AMQPPublisher) Publish(ctx context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
