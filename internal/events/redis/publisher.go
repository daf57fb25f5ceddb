// Package redis publishes synthesis events on a Redis Pub/Sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

const (
	defaultPublishTimeout = 500 * time.Millisecond
	defaultBufferSize     = 256
)

// Envelope is the JSON message written to the channel.
type Envelope struct {
	Type        string                 `json:"type"`
	RequestID   string                 `json:"request_id,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
	Data        map[string]interface{} `json:"data"`
}

type message struct {
	eventType string
	payload   []byte
	logger    *zap.Logger
}

// Publisher implements domain.EventPublisher over Redis Pub/Sub. Events are
// encoded on the caller's goroutine and written by a background worker, so
// Publish never waits on Redis. Every event is also handed to the local
// publisher, if any.
type Publisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	local   domain.EventPublisher

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}
}

// NewClient creates a Redis client for the configured address.
func NewClient(config Config) (*redis.Client, error) {
	if !config.Enabled() {
		return nil, errors.New("redis address is required")
	}

	return redis.NewClient(&redis.Options{
		Addr:                  config.Addr,
		Password:              config.Password,
		DB:                    config.DB,
		ContextTimeoutEnabled: true,
	}), nil
}

// NewPublisher creates a publisher on the given client and starts its worker.
func NewPublisher(client *redis.Client, config Config, local domain.EventPublisher) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if config.Channel == "" {
		return nil, errors.New("redis channel cannot be empty")
	}

	timeout := config.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	p := &Publisher{
		client:  client,
		channel: config.Channel,
		timeout: timeout,
		local:   local,
		queue:   make(chan message, bufferSize),
		done:    make(chan struct{}),
	}
	go p.run()

	return p, nil
}

// Publish queues the event for the channel. A full queue drops the event.
// Failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.local != nil {
		p.local.Publish(ctx, eventType, data)
	}

	logger := observability.FromContext(ctx)

	payload, err := json.Marshal(Envelope{
		Type:        eventType,
		RequestID:   observability.GetRequestID(ctx),
		PublishedAt: time.Now().UTC(),
		Data:        data,
	})
	if err != nil {
		logger.Warn("failed to encode event",
			observability.String("event", eventType),
			observability.Error(err))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logger.Warn("event dropped, publisher closed",
			observability.String("event", eventType))
		return
	}

	select {
	case p.queue <- message{eventType: eventType, payload: payload, logger: logger}:
	default:
		logger.Warn("event dropped, queue full",
			observability.String("event", eventType),
			observability.Int("capacity", cap(p.queue)))
	}
}

func (p *Publisher) run() {
	defer close(p.done)

	for msg := range p.queue {
		p.send(msg)
	}
}

func (p *Publisher) send(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, msg.payload).Err(); err != nil {
		msg.logger.Warn("failed to publish event",
			observability.String("event", msg.eventType),
			observability.String("channel", p.channel),
			observability.Error(err))
		return
	}

	msg.logger.Debug("event sent to redis",
		observability.String("event", msg.eventType),
		observability.String("channel", p.channel))
}

// Ping checks connectivity to the Redis server.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close stops accepting events, flushes the queue and releases the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.client.Close()
}
