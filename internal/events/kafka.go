package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	defaultBufferSize   = 256
	defaultWriteTimeout = 5 * time.Second
)

// ErrBufferFull is returned when the publisher cannot accept more events.
var ErrBufferFull = errors.New("event buffer full")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher buffers events in memory and writes them from a single
// goroutine. Close flushes whatever is still buffered.
type KafkaPublisher struct {
	w     messageWriter
	logg  *logger.Logger
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, buf int, logg *logger.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, buf, logg), nil
}

func newKafkaPublisher(w messageWriter, buf int, logg *logger.Logger) *KafkaPublisher {
	if buf <= 0 {
		buf = defaultBufferSize
	}
	p := &KafkaPublisher{
		w:     w,
		logg:  logg,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		err := p.w.WriteMessages(ctx, m)
		cancel()
		if err != nil && p.logg != nil {
			logCtx := p.logg.WithField(context.Background(), "session_key", string(m.Key))
			p.logg.Error(logCtx, "publish cart event", err)
		}
	}
}

// Publish enqueues the event keyed by session so a session's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	env, err := NewEnvelope(evt)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.SessionID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Type)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes the buffer and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}
