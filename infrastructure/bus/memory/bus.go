// Package memory provides an in-memory bus.Bus implementation, useful
// both for unit tests and as a single-node substitute for a real broker.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mizzle-Technology/task-manager/domain/bus"
)

// Bus implements bus.Bus over an in-process FIFO list with condition-
// variable blocking receive.
type Bus struct {
	mu         sync.Mutex
	cond       *sync.Cond
	pending    *list.List // of *bus.Message
	leased     map[string]*bus.Message
	deadLetter []deadLettered
	closed     bool
}

type deadLettered struct {
	Message *bus.Message
	Reason  string
}

// New creates an empty in-memory bus.
func New() *Bus {
	b := &Bus{
		pending: list.New(),
		leased:  make(map[string]*bus.Message),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish enqueues a message as if freshly delivered from a broker.
// Not part of bus.Bus; it is the memory bus's producer-side API.
func (b *Bus) Publish(msg *bus.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.EnqueuedTime.IsZero() {
		msg.EnqueuedTime = time.Now().UTC()
	}
	b.pending.PushBack(msg)
	b.cond.Signal()
}

// ReceiveMessages waits up to maxWaitTime for at least one message, then
// drains up to maxMessages without further waiting.
func (b *Bus) ReceiveMessages(ctx context.Context, maxMessages int, maxWaitTime time.Duration) ([]*bus.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline := time.Now().Add(maxWaitTime)
	for b.pending.Len() == 0 && !b.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-time.After(remaining):
				b.mu.Lock()
				b.cond.Broadcast()
				b.mu.Unlock()
			case <-done:
			}
		}()
		b.cond.Wait()
		close(done)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var out []*bus.Message
	for b.pending.Len() > 0 && len(out) < maxMessages {
		front := b.pending.Front()
		msg := b.pending.Remove(front).(*bus.Message)
		msg.ReceiptHandle = uuid.NewString()
		msg.DeliveryCount++
		b.leased[msg.ReceiptHandle] = msg
		out = append(out, msg)
	}

	return out, nil
}

// Complete permanently removes a leased message.
func (b *Bus) Complete(ctx context.Context, msg *bus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.leased[msg.ReceiptHandle]; !ok {
		return bus.ErrLockLost
	}
	delete(b.leased, msg.ReceiptHandle)
	return nil
}

// Abandon releases the lease and re-enqueues the message for redelivery.
func (b *Bus) Abandon(ctx context.Context, msg *bus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.leased[msg.ReceiptHandle]; !ok {
		return bus.ErrLockLost
	}
	delete(b.leased, msg.ReceiptHandle)
	msg.ReceiptHandle = ""
	b.pending.PushBack(msg)
	b.cond.Signal()
	return nil
}

// DeadLetter removes a leased message from circulation and records it in
// the poison store for inspection (PeekDeadLetters).
func (b *Bus) DeadLetter(ctx context.Context, msg *bus.Message, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.leased[msg.ReceiptHandle]; !ok {
		return bus.ErrLockLost
	}
	delete(b.leased, msg.ReceiptHandle)
	b.deadLetter = append(b.deadLetter, deadLettered{Message: msg, Reason: reason})
	return nil
}

// PeekDeadLetters returns a snapshot of every message sent to DeadLetter,
// for test assertions.
func (b *Bus) PeekDeadLetters() []*bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*bus.Message, len(b.deadLetter))
	for i, d := range b.deadLetter {
		out[i] = d.Message
	}
	return out
}

// Close unblocks any pending ReceiveMessages calls.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

var _ bus.Bus = (*Bus)(nil)
