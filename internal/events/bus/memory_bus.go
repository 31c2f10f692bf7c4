package bus

import (
	"context"
	"sync"
)

// MemoryBus delivers synchronously to in-process forwarders and records
// every message. Fail, when set, is returned by Send before delivery.
type MemoryBus struct {
	mu       sync.Mutex
	sent     []Message
	handlers []func(Message)
	Fail     func(Message) error
}

var _ Bus = (*MemoryBus)(nil)

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	fail := b.Fail
	b.mu.Unlock()
	if fail != nil {
		if err := fail(msg); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.sent = append(b.sent, msg)
	handlers := append(([]func(Message))(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *MemoryBus) StartForwarder(ctx context.Context, onMsg func(m Message)) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Sent() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.sent...)
}

func (b *MemoryBus) Close() error { return nil }
