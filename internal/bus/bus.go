// Package bus abstracts the message transport between pipeline stages.
//
// Delivery guarantees, consumer groups and publish retries belong to the
// transport; stages and runners only publish and poll.
package bus

import (
	"context"
	"time"
)

// Message is one consumed record.
type Message struct {
	Topic string
	Key   string
	Value []byte
	Time  time.Time
}

// OutMessage is one record a stage wants published.
type OutMessage struct {
	Topic string
	Key   string
	Value []byte
}

// Bus publishes and polls typed records on named topics.
type Bus interface {
	// Publish enqueues a record. It may block under backpressure until
	// ctx is done.
	Publish(ctx context.Context, topic, key string, value []byte) error
	// Poll waits up to timeout for the next record on topic. A nil
	// message with nil error means the poll interval elapsed idle.
	Poll(ctx context.Context, topic string, timeout time.Duration) (*Message, error)
	// Flush blocks until outstanding publishes are delivered.
	Flush(ctx context.Context) error
	Close() error
}
