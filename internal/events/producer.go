package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hireline/hireline/internal/metrics"
	"github.com/segmentio/kafka-go"
)

const (
	// queueSize bounds events waiting to be written.
	queueSize = 1000
	// writeTimeout bounds a single Kafka write.
	writeTimeout = 10 * time.Second
)

var jsonMarshal = json.Marshal

// Writer is the subset of *kafka.Writer used by Producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events to Kafka from a background goroutine.
// Publish never blocks; events are dropped when the queue is full.
type Producer struct {
	writer  Writer
	events  chan Event
	logger  *slog.Logger
	metrics metrics.Recorder

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewProducer dials the brokers, ensures the topic exists and starts the
// write loop.
func NewProducer(brokers []string, topic string, logger *slog.Logger, recorder metrics.Recorder) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", "topic", topic, "error", err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	p := newProducer(writer, logger, recorder)
	go p.run()
	return p, nil
}

func newProducer(writer Writer, logger *slog.Logger, recorder metrics.Recorder) *Producer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Producer{
		writer:  writer,
		events:  make(chan Event, queueSize),
		logger:  logger.With("component", "event_producer"),
		metrics: recorder,
		done:    make(chan struct{}),
	}
}

// Publish queues an event for delivery.
func (p *Producer) Publish(eventType Type, key string, data any) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.IncDomainEventPublished("dropped")
		return
	}

	select {
	case p.events <- NewEvent(eventType, key, data):
	default:
		p.metrics.IncDomainEventPublished("dropped")
		p.logger.Warn("event queue full, dropping event",
			"event_type", eventType,
			"key", key,
		)
	}
}

func (p *Producer) run() {
	defer close(p.done)
	for event := range p.events {
		p.send(event)
	}
}

func (p *Producer) send(event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.metrics.IncDomainEventPublished("failed")
		p.logger.Error("failed to serialize event", "event_type", event.Type, "key", event.Key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		p.metrics.IncDomainEventPublished("failed")
		p.logger.Error("failed to produce event", "event_type", event.Type, "key", event.Key, "error", err)
		return
	}
	p.metrics.IncDomainEventPublished("success")
}

// Shutdown stops accepting events, drains the queue and closes the writer.
func (p *Producer) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		p.logger.Warn("event queue not drained before shutdown", "remaining", len(p.events))
	}

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
