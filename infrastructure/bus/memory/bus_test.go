package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Mizzle-Technology/task-manager/domain/bus"
)

func TestPublishThenReceive(t *testing.T) {
	t.Parallel()
	b := New()
	b.Publish(&bus.Message{Body: "hello"})

	msgs, err := b.ReceiveMessages(context.Background(), 10, time.Second)
	if err != nil {
		t.Fatalf("ReceiveMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Body != "hello" {
		t.Errorf("body = %q, want hello", msgs[0].Body)
	}
	if msgs[0].ReceiptHandle == "" {
		t.Error("expected a receipt handle to be assigned")
	}
	if msgs[0].DeliveryCount != 1 {
		t.Errorf("deliveryCount = %d, want 1", msgs[0].DeliveryCount)
	}
}

func TestReceiveMessagesRespectsMaxWait(t *testing.T) {
	t.Parallel()
	b := New()

	start := time.Now()
	msgs, err := b.ReceiveMessages(context.Background(), 10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("ReceiveMessages: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, want >= 50ms", elapsed)
	}
}

func TestReceiveMessagesRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	b := New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := b.ReceiveMessages(ctx, 10, time.Minute)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestAbandonRedelivers(t *testing.T) {
	t.Parallel()
	b := New()
	b.Publish(&bus.Message{Body: "retry-me"})

	msgs, err := b.ReceiveMessages(context.Background(), 1, time.Second)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ReceiveMessages: msgs=%v err=%v", msgs, err)
	}

	if err := b.Abandon(context.Background(), msgs[0]); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	redelivered, err := b.ReceiveMessages(context.Background(), 1, time.Second)
	if err != nil || len(redelivered) != 1 {
		t.Fatalf("ReceiveMessages after abandon: msgs=%v err=%v", redelivered, err)
	}
	if redelivered[0].DeliveryCount != 2 {
		t.Errorf("deliveryCount = %d, want 2", redelivered[0].DeliveryCount)
	}
}

func TestCompleteRejectsUnknownHandle(t *testing.T) {
	t.Parallel()
	b := New()
	err := b.Complete(context.Background(), &bus.Message{ReceiptHandle: "bogus"})
	if err != bus.ErrLockLost {
		t.Fatalf("err = %v, want ErrLockLost", err)
	}
}

func TestDeadLetterRecordsReason(t *testing.T) {
	t.Parallel()
	b := New()
	b.Publish(&bus.Message{Body: "poison"})

	msgs, err := b.ReceiveMessages(context.Background(), 1, time.Second)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ReceiveMessages: msgs=%v err=%v", msgs, err)
	}

	if err := b.DeadLetter(context.Background(), msgs[0], "unmarshal failed"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}

	dead := b.PeekDeadLetters()
	if len(dead) != 1 {
		t.Fatalf("len(dead) = %d, want 1", len(dead))
	}
	if dead[0].Body != "poison" {
		t.Errorf("body = %q, want poison", dead[0].Body)
	}
}
