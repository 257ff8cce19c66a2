package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the part of *amqp091.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(amqpURL string) (amqpChannel, io.Closer, error)

// AMQPPublisher publishes JSON events to a durable RabbitMQ topic exchange.
// A closed channel is replaced by redialing on the next Publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     dialFunc

	mu       sync.Mutex
	conn     io.Closer
	channel  amqpChannel
	declared bool
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

func dialAMQP(amqpURL string) (amqpChannel, io.Closer, error) {
	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return channel, conn, nil
}

// NewAMQPPublisher dials the broker and opens a channel.
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	return newAMQPPublisher(cleanURL, exchange, dialAMQP)
}

func newAMQPPublisher(amqpURL, exchange string, dial dialFunc) (*AMQPPublisher, error) {
	if strings.TrimSpace(exchange) == "" {
		exchange = DefaultExchange
	}

	p := &AMQPPublisher{url: amqpURL, exchange: exchange, dial: dial}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// connectLocked replaces the connection and channel. Callers hold p.mu or own p exclusively.
func (p *AMQPPublisher) connectLocked() error {
	p.closeLocked()

	channel, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	p.channel = channel
	p.conn = conn
	p.declared = false
	return nil
}

// Publish marshals body to JSON and sends it with the given routing key.
// amqp091 channels are not safe for concurrent publishing, so calls are serialized.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.connectLocked(); err != nil {
			return fmt.Errorf("redial broker: %w", err)
		}
	}

	if !p.declared {
		err := p.channel.ExchangeDeclare(
			p.exchange, // name
			"topic",    // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return err
		}
		p.declared = true
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         jsonBody,
		})
}

func (p *AMQPPublisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close gracefully closes the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}
