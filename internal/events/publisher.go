// Package events delivers commit notifications to the message bus without
// blocking the request that produced them.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/logging"
	"github.com/efs-sdk/accessmanager/internal/metrics"
)

// ErrQueueFull is logged when a message is dropped because the queue is saturated.
var ErrQueueFull = errors.New("publisher queue is full")

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 30 * time.Second

// Message is a single payload for a topic.
type Message struct {
	Topic         string
	Value         []byte
	CorrelationID string
}

// Sink is a message bus adapter.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
	Close() error
}

var _ core.Publisher = (*AsyncPublisher)(nil)

// AsyncPublisher hands messages to a pool of workers. Delivery is at most once:
// results are only logged and nothing is retried.
type AsyncPublisher struct {
	sink        Sink
	queue       chan Message
	logger      logging.InternalLogger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*AsyncPublisher)

func WithSendTimeout(d time.Duration) Option {
	return func(p *AsyncPublisher) {
		if d > 0 {
			p.sendTimeout = d
		}
	}
}

func WithLogger(l logging.InternalLogger) Option {
	return func(p *AsyncPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewAsyncPublisher starts workers reading from a queue of queueSize messages.
func NewAsyncPublisher(sink Sink, workers, queueSize int, opts ...Option) *AsyncPublisher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &AsyncPublisher{
		sink:        sink,
		queue:       make(chan Message, queueSize),
		logger:      logging.NewZLogger(log.With().Str("sink", sink.Name()).Logger()),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Publish enqueues the payload and returns immediately. If the queue is full
// or the publisher is closed the message is dropped and logged.
func (p *AsyncPublisher) Publish(ctx context.Context, topic string, payload []byte) {
	msg := Message{
		Topic:         topic,
		Value:         payload,
		CorrelationID: core.CorrelationID(ctx),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("dropping message for topic %s: publisher is closed", topic)
		metrics.CommitsPublished.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case p.queue <- msg:
	default:
		p.logger.Error("dropping message for topic %s: %v", topic, ErrQueueFull)
		metrics.CommitsPublished.WithLabelValues("dropped").Inc()
	}
}

// Close stops accepting messages, drains the queue and closes the sink.
// Pending messages are abandoned when ctx ends first.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("publisher did not drain before shutdown: %v", ctx.Err())
	}
	return p.sink.Close()
}

func (p *AsyncPublisher) worker() {
	defer p.wg.Done()
	for msg := range p.queue {
		p.deliver(msg)
	}
}

func (p *AsyncPublisher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	defer cancel()

	if err := p.sink.Send(ctx, msg); err != nil {
		metrics.CommitsPublished.WithLabelValues("failed").Inc()
		p.logger.Error("unable to send message to topic %s (correlation_id=%s): %v",
			msg.Topic, msg.CorrelationID, err)
		return
	}
	metrics.CommitsPublished.WithLabelValues("sent").Inc()
	p.logger.Info("sent message to topic %s (correlation_id=%s)", msg.Topic, msg.CorrelationID)
}
