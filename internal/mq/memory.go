package mq

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// DefaultMemoryLimit is the per-channel buffer size of NewMemory.
const DefaultMemoryLimit = 1024

// Memory is an in-process backend. Messages published before a subscriber
// attaches are buffered per channel and delivered once it does. A full
// buffer drops its oldest message to make room.
type Memory struct {
	mu      sync.Mutex
	closed  bool
	seq     int
	limit   int
	queues  map[string][]Message
	waiters map[string]chan struct{}
}

func NewMemory() *Memory {
	return NewMemoryWithLimit(DefaultMemoryLimit)
}

// NewMemoryWithLimit buffers at most limit messages per channel.
func NewMemoryWithLimit(limit int) *Memory {
	if limit < 1 {
		limit = DefaultMemoryLimit
	}
	return &Memory{
		limit:   limit,
		queues:  make(map[string][]Message),
		waiters: make(map[string]chan struct{}),
	}
}

func (m *Memory) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errors.New("memory backend closed")
	}

	m.seq++
	id := strconv.Itoa(m.seq)
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	queue := m.queues[channel]
	if len(queue) >= m.limit {
		queue = queue[len(queue)-m.limit+1:]
	}
	m.queues[channel] = append(queue, Message{
		ID:         id,
		Data:       append([]byte(nil), data...),
		Attributes: copied,
	})
	m.signalLocked(channel)
	return id, nil
}

// Subscribe delivers messages in publish order. A handler error stops the
// subscription and leaves the message at the head of the queue.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return errors.New("memory backend closed")
		}
		pending := m.queues[channel]
		var wait chan struct{}
		if len(pending) == 0 {
			wait = m.waiterLocked(channel)
		} else {
			m.queues[channel] = pending[1:]
		}
		m.mu.Unlock()

		if wait != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wait:
			}
			continue
		}

		msg := pending[0]
		if err := handler(ctx, msg); err != nil {
			m.mu.Lock()
			m.queues[channel] = append([]Message{msg}, m.queues[channel]...)
			m.mu.Unlock()
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Pending returns the number of undelivered messages on channel.
func (m *Memory) Pending(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[channel])
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for channel := range m.waiters {
		m.signalLocked(channel)
	}
	return nil
}

func (m *Memory) waiterLocked(channel string) chan struct{} {
	ch, ok := m.waiters[channel]
	if !ok {
		ch = make(chan struct{})
		m.waiters[channel] = ch
	}
	return ch
}

func (m *Memory) signalLocked(channel string) {
	if ch, ok := m.waiters[channel]; ok {
		close(ch)
		delete(m.waiters, channel)
	}
}
