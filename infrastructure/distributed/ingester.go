package distributed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mizzle-Technology/task-manager/domain/bus"
	"github.com/Mizzle-Technology/task-manager/domain/config"
	"github.com/Mizzle-Technology/task-manager/domain/ledger"
	"github.com/Mizzle-Technology/task-manager/domain/task"
	"github.com/Mizzle-Technology/task-manager/infrastructure/logging"
	"github.com/Mizzle-Technology/task-manager/infrastructure/retry"
	"github.com/Mizzle-Technology/task-manager/infrastructure/telemetry"
)

// MessageHandler runs the user-supplied per-message logic after the
// task is persisted. A nil handler is a valid store-and-forward
// configuration: the ingester only persists the task and lets the
// worker loop pick it up.
type MessageHandler func(ctx context.Context, t *task.Task) error

// Ingester is the pull loop that receives messages from a bus and
// persists each as a task before acknowledging it back to the broker
// (persist-before-ack), so a crash never loses a message.
type Ingester struct {
	repository   ledger.Repository
	source       bus.Bus
	handler      MessageHandler
	metrics      *telemetry.Metrics
	cfg          config.IngesterConfig
	handlerRetry *retry.Policy[struct{}]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithIngesterMetrics attaches a telemetry.Metrics instance.
func WithIngesterMetrics(m *telemetry.Metrics) IngesterOption {
	return func(i *Ingester) { i.metrics = m }
}

// WithHandlerRetryDelay overrides the initial backoff delay of the
// per-message handler retry envelope. Mainly useful in tests that
// exercise the failure path without waiting out real backoff.
func WithHandlerRetryDelay(d time.Duration) IngesterOption {
	return func(i *Ingester) {
		i.handlerRetry = retry.NewPolicyWithInitialDelay[struct{}](3, d)
	}
}

// NewIngester constructs an Ingester. handler may be nil for
// store-and-forward deployments.
func NewIngester(repository ledger.Repository, source bus.Bus, handler MessageHandler, cfg config.IngesterConfig, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		repository:   repository,
		source:       source,
		handler:      handler,
		cfg:          cfg,
		handlerRetry: retry.NewPolicy[struct{}](3),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start begins the pull loop in a background goroutine.
func (i *Ingester) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = true
	ctx, i.cancel = context.WithCancel(ctx)
	i.mu.Unlock()

	i.wg.Add(1)
	go i.loop(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to drain.
func (i *Ingester) Stop() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	cancel := i.cancel
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	i.wg.Wait()
}

func (i *Ingester) loop(ctx context.Context) {
	defer i.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		i.ExecuteOnce(ctx)
	}
}

// ExecuteOnce runs a single tick: receive, persist, handle, settle. It
// is the entrypoint cron-style hosts invoke directly; Start wraps it in
// a loop.
func (i *Ingester) ExecuteOnce(ctx context.Context) {
	start := time.Now()

	waitTime := time.Duration(i.cfg.PollingWaitSeconds) * time.Second
	policy := retry.NewPolicy[[]*bus.Message](3)
	messages, err := policy.Do(ctx, func(ctx context.Context) ([]*bus.Message, error) {
		return i.source.ReceiveMessages(ctx, i.cfg.BatchSize, waitTime)
	})
	if err != nil {
		logging.Error().Add(logging.ErrorField(err)).Msg("receive failed after retries")
		return
	}
	if len(messages) == 0 {
		return
	}

	succeeded := 0
	failed := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, msg := range messages {
		wg.Add(1)
		go func(msg *bus.Message) {
			defer wg.Done()
			ok := i.processMessage(ctx, msg)
			mu.Lock()
			if ok {
				succeeded++
			} else {
				failed++
			}
			mu.Unlock()
		}(msg)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if i.metrics != nil {
		i.metrics.RecordTick(ctx, len(messages), succeeded, failed, elapsed)
	}
	logging.Info().
		Add(logging.Count("total", len(messages))).
		Add(logging.Count("succeeded", succeeded)).
		Add(logging.Count("failed", failed)).
		Add(logging.Count("success_rate_pct", succeeded*100/len(messages))).
		Add(logging.Count("avg_ms", int(elapsed.Milliseconds())/len(messages))).
		Add(logging.Duration(elapsed)).
		Msg("ingester tick complete")
}

// processMessage persists one message as a task, runs the handler, and
// settles the message with the broker, all under a hard wall-clock cap.
func (i *Ingester) processMessage(ctx context.Context, msg *bus.Message) bool {
	ctx, cancel := context.WithTimeout(ctx, config.MessageProcessingTimeout)
	defer cancel()

	t := i.buildTask(msg)

	if err := i.repository.UpsertTask(ctx, t); err != nil && !errors.Is(err, ledger.ErrDuplicateKey) {
		logging.Error().Add(logging.TaskID(t.TaskID)).Add(logging.ErrorField(err)).Msg("persist-before-ack failed")
		i.settle(ctx, msg, false, "ledger upsert failed")
		return false
	}

	var handlerErr error
	if i.handler != nil {
		// Handler failures retry within the same delivery rather than
		// re-receiving the message: the task is already persisted, so a
		// redelivery would be a duplicate upsert, not a fresh attempt.
		_, handlerErr = i.handlerRetry.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, i.handler(ctx, t)
		})
	}

	if handlerErr != nil {
		if _, err := i.repository.TryUpdateTaskStatus(ctx, t.TaskID, task.StatusFailed); err != nil {
			logging.Error().Add(logging.TaskID(t.TaskID)).Add(logging.ErrorField(err)).Msg("failed to mark ingested task failed")
		}
		i.settle(ctx, msg, false, handlerErr.Error())
		return false
	}

	if _, err := i.repository.TryUpdateTaskStatus(ctx, t.TaskID, task.StatusCompleted); err != nil {
		logging.Error().Add(logging.TaskID(t.TaskID)).Add(logging.ErrorField(err)).Msg("failed to mark ingested task completed")
	}
	i.settle(ctx, msg, true, "")
	return true
}

func (i *Ingester) settle(ctx context.Context, msg *bus.Message, success bool, reason string) {
	var err error
	switch {
	case success:
		err = i.source.Complete(ctx, msg)
	case i.cfg.DeadLetterFailedMessages:
		err = i.source.DeadLetter(ctx, msg, reason)
	default:
		err = i.source.Abandon(ctx, msg)
	}

	if err != nil && err != bus.ErrLockLost {
		logging.Warn().Add(logging.ErrorField(err)).Msg("bus settlement failed")
	}
}

func (i *Ingester) buildTask(msg *bus.Message) *task.Task {
	taskID := msg.MessageID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	metadata := make(map[string]string, len(msg.Properties)+3)
	for k, v := range msg.Properties {
		metadata[k] = v
	}
	if i.cfg.Source != "" {
		metadata["Source"] = i.cfg.Source
	}
	if i.cfg.TopicName != "" {
		metadata["TopicName"] = i.cfg.TopicName
	}
	subscriptionName := msg.SubscriptionName
	if subscriptionName == "" {
		subscriptionName = i.cfg.SubscriptionName
	}
	if subscriptionName != "" {
		metadata["SubscriptionName"] = subscriptionName
	}

	return &task.Task{
		TaskID:     taskID,
		Body:       msg.Body,
		Status:     task.StatusProcessing,
		Version:    1,
		RetryCount: 0,
		Metadata:   metadata,
	}
}
