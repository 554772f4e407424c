// Package bus defines the capability surface the Ingester consumes from a
// message bus. Concrete drivers (Alibaba MNS, Azure Service Bus) are
// deliberately out of scope; this package specifies only the interface
// and ships an in-memory implementation at infrastructure/bus/memory.
package bus

import (
	"context"
	"errors"
	"time"
)

// ErrLockLost is returned by Complete/Abandon/DeadLetter when the broker
// has already re-released the message. Callers must treat it as "the
// message will be redelivered", not as a fatal error.
var ErrLockLost = errors.New("bus: message lock lost")

// Message is one delivery from a bus queue or topic subscription.
type Message struct {
	MessageID        string
	Body             string
	BodyBytes        []byte
	EnqueuedTime     time.Time
	ReceiptHandle    string
	DeliveryCount    int
	Properties       map[string]string
	SubscriptionName string
}

// Bus is a queue or topic subscription with at-least-once delivery and
// per-message locking.
type Bus interface {
	// ReceiveMessages returns up to maxMessages, waiting at most
	// maxWaitTime for the first one to arrive. Respects ctx cancellation.
	ReceiveMessages(ctx context.Context, maxMessages int, maxWaitTime time.Duration) ([]*Message, error)

	// Complete acknowledges successful processing, permanently removing
	// the message.
	Complete(ctx context.Context, msg *Message) error

	// Abandon releases the lock so the message is redelivered.
	Abandon(ctx context.Context, msg *Message) error

	// DeadLetter moves the message to a poison store with the given
	// reason.
	DeadLetter(ctx context.Context, msg *Message, reason string) error
}
