package mq

import (
	"context"
	"time"
)

// MessageQueue is a broker connection that both publishes and consumes.
type MessageQueue interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
	Close() error
}

// Producer publishes messages.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
}

// Consumer registers handlers and drives consumption.
type Consumer interface {
	// SubscribeWithOptions registers handler for topic. Subscriptions made
	// before Start begin consuming when Start is called.
	SubscribeWithOptions(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error

	Start() error

	// Stop cancels consumers and waits for in-flight handlers.
	Stop() error
}

// Message is a broker-neutral message.
type Message struct {
	ID         string            `json:"id"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers"`
	Timestamp  time.Time         `json:"timestamp"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// HandlerFunc processes one message. A non-nil error triggers a retry.
type HandlerFunc func(ctx context.Context, message *Message) error

// FetchLimiter bounds the number of messages being handled at once.
type FetchLimiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// SubscribeOptions tunes a subscription.
type SubscribeOptions struct {
	// ConsumerGroup defaults to "algojudge-<topic>".
	ConsumerGroup string

	// Concurrency is the number of handler goroutines. Default 1.
	Concurrency int

	// MaxRetries is how often a failing message is retried. Default 3.
	MaxRetries int

	// RetryDelay is the pause between retries. Default 1s.
	RetryDelay time.Duration

	// DeadLetterTopic receives messages that exhausted their retries.
	DeadLetterTopic string

	// MessageTTL drops messages older than this without handling them.
	MessageTTL time.Duration

	// Limiter, when set, is held from fetch until the handler returns.
	Limiter FetchLimiter
}

// SetDefaults fills zero options.
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// NewMessage creates a message stamped with the current time.
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

func (m *Message) GetHeader(key string) (string, bool) {
	val, ok := m.Headers[key]
	return val, ok
}

// Expired reports whether the message is older than ttl.
func (m *Message) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !m.Timestamp.IsZero() && now.Sub(m.Timestamp) > ttl
}
