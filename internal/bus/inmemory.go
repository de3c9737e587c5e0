package bus

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Publish and Poll after Close.
var ErrClosed = errors.New("bus is closed")

// InMemory is a single-process Bus backed by one buffered channel per
// topic. Per-topic FIFO order matches the single-partition ordering of
// the production transport.
type InMemory struct {
	mu     sync.Mutex
	buffer int
	topics map[string]chan Message
	closed bool
}

// NewInMemory creates a bus whose topics buffer up to buffer records
// before Publish blocks.
func NewInMemory(buffer int) *InMemory {
	if buffer <= 0 {
		buffer = 1024
	}
	return &InMemory{
		buffer: buffer,
		topics: make(map[string]chan Message),
	}
}

func (b *InMemory) topic(name string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	ch, ok := b.topics[name]
	if !ok {
		ch = make(chan Message, b.buffer)
		b.topics[name] = ch
	}
	return ch, nil
}

func (b *InMemory) Publish(ctx context.Context, topic, key string, value []byte) error {
	ch, err := b.topic(topic)
	if err != nil {
		return err
	}
	msg := Message{Topic: topic, Key: key, Value: value, Time: time.Now()}
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemory) Poll(ctx context.Context, topic string, timeout time.Duration) (*Message, error) {
	ch, err := b.topic(topic)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-ch:
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Flush is a no-op: Publish delivers synchronously.
func (b *InMemory) Flush(ctx context.Context) error {
	return nil
}

func (b *InMemory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Depth reports the number of buffered records on a topic.
func (b *InMemory) Depth(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[topic]
	if !ok {
		return 0
	}
	return len(ch)
}
