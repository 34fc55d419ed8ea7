package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPSender publishes messages to a durable topic exchange with the routing
// key "notify.<event>". A mail worker consumes them.
type AMQPSender struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  amqpChannel
	reopen   func() (amqpChannel, error)
	exchange string
	declared bool
}

func normalizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func DialAMQPSender(rawURL, exchange string) (*AMQPSender, error) {
	cleanURL, err := normalizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sender := newAMQPSender(ch, exchange, func() (amqpChannel, error) {
		return conn.Channel()
	})
	sender.conn = conn
	return sender, nil
}

func newAMQPSender(ch amqpChannel, exchange string, reopen func() (amqpChannel, error)) *AMQPSender {
	return &AMQPSender{channel: ch, exchange: exchange, reopen: reopen}
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	routingKey := "notify." + string(msg.Event)

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.publish(ctx, routingKey, publishing)
	if err == nil || s.reopen == nil {
		return err
	}
	// one retry on a fresh channel
	ch, chErr := s.reopen()
	if chErr != nil {
		return err
	}
	_ = s.channel.Close()
	s.channel = ch
	s.declared = false
	return s.publish(ctx, routingKey, publishing)
}

func (s *AMQPSender) publish(ctx context.Context, routingKey string, publishing amqp091.Publishing) error {
	if !s.declared {
		if err := s.channel.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		s.declared = true
	}
	return s.channel.PublishWithContext(ctx, s.exchange, routingKey, false, false, publishing)
}

func (s *AMQPSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
