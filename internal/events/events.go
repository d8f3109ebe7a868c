package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	Exchange = "ride_topic"

	RideStarted   = "ride.started"
	RideCompleted = "ride.completed"
)

// RideEvent is the message body for both routing keys.
type RideEvent struct {
	RideID      string    `json:"ride_id"`
	BikeID      string    `json:"bike_id"`
	RiderID     string    `json:"rider_id"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
	DistanceM   float64   `json:"distance_m,omitempty"`
	AvgSpeedKmh float64   `json:"avg_speed_kmh,omitempty"`
	MaxSpeedKmh float64   `json:"max_speed_kmh,omitempty"`
	Fare        float64   `json:"fare,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// amqpChannel is the part of *amqp091.Channel the publisher needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	conn *amqp091.Connection
	ch   amqpChannel
	mu   sync.Mutex
}

// Dial connects to the broker and declares the ride exchange.
func Dial(url string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p, err := newPublisher(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	log.Println("Connected to RabbitMQ")
	return p, nil
}

func newPublisher(ch amqpChannel) (*AMQPPublisher, error) {
	err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
