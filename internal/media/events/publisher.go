// Package events publishes recording-availability notifications to the
// message broker so downstream consumers (transcription, archival) learn
// about a finished recording without polling the media engine.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the durable topic exchange every recording event is
	// published to.
	ExchangeName = "sentiric_events"
	// RecordingAvailableRoutingKey is the routing key for a finished and
	// uploaded call recording.
	RecordingAvailableRoutingKey = "call.recording.available"
)

// RecordingAvailable is the event payload published once a recording has
// been durably written to its storage destination.
type RecordingAvailable struct {
	EventType    string    `json:"eventType"`
	TraceID      string    `json:"traceId"`
	CallID       string    `json:"callId"`
	RecordingURI string    `json:"recordingUri"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher publishes recording lifecycle events.
type Publisher interface {
	PublishRecordingAvailable(ctx context.Context, evt RecordingAvailable) error
	Close() error
}

// AMQPPublisher publishes over a RabbitMQ topic exchange with persistent
// delivery, so events survive a broker restart while waiting for a
// consumer.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker and declares the durable topic exchange,
// retrying a fixed number of times with a fixed backoff — the same
// resilience shape as a service coming up before its broker is ready.
func Dial(url string) (*AMQPPublisher, error) {
	const (
		maxAttempts = 10
		retryDelay  = 5 * time.Second
	)

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		if attempt == maxAttempts {
			return nil, fmt.Errorf("events: dial broker after %d attempts: %w", maxAttempts, err)
		}
		time.Sleep(retryDelay)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

// PublishRecordingAvailable publishes evt with persistent delivery mode.
func (p *AMQPPublisher) PublishRecordingAvailable(ctx context.Context, evt RecordingAvailable) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, ExchangeName, RecordingAvailableRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.Timestamp,
		Body:         body,
	})
}

// Close tears down the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher discards events; used when no broker URL is configured so
// recording still finalizes correctly in a minimal deployment.
type NoopPublisher struct{}

func (NoopPublisher) PublishRecordingAvailable(context.Context, RecordingAvailable) error { return nil }
func (NoopPublisher) Close() error                                                        { return nil }
