// Package bus moves serialized domain events to external subscribers.
package bus

import (
	"context"
)

// Message is one serialized event. Key is the aggregate id, so a partitioned
// transport keeps per-aggregate order.
type Message struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

type Bus interface {
	Send(ctx context.Context, msg Message) error
	StartForwarder(ctx context.Context, onMsg func(m Message)) error
	Close() error
}
