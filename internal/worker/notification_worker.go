package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
)

// NotificationWorker drains queued outbound notifications so ticket
// operations never block on a provider call. The queue is bounded; when it
// fills, new jobs are dropped and logged rather than applying backpressure
// to the request path.
type NotificationWorker struct {
	jobs    chan dispatch.OutboundMessage
	send    SendFn
	logger  *zap.Logger
	workers int

	mu      sync.RWMutex
	stopped bool

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// SendFn delivers one outbound message.
type SendFn func(ctx context.Context, out dispatch.OutboundMessage) error

// NewNotificationWorker constructs the worker pool.
func NewNotificationWorker(send SendFn, logger *zap.Logger, queueSize, workers int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &NotificationWorker{
		jobs:    make(chan dispatch.OutboundMessage, queueSize),
		send:    send,
		logger:  logger,
		workers: workers,
	}
}

// Start launches the worker goroutines.
func (w *NotificationWorker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
}

// Enqueue hands a job to the pool without blocking. Returns false when the
// job was dropped because the queue is full or the pool already stopped.
// The read lock pairs with Stop's write lock so a send can never overlap
// the queue closing.
func (w *NotificationWorker) Enqueue(out dispatch.OutboundMessage) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		w.logger.Warn("notification pool stopped, dropping job",
			zap.String("channel_id", out.ChannelID),
			zap.String("recipient", out.Recipient))
		return false
	}
	select {
	case w.jobs <- out:
		return true
	default:
		w.logger.Warn("notification queue full, dropping job",
			zap.String("channel_id", out.ChannelID),
			zap.String("recipient", out.Recipient))
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.jobs)
	})
	w.wg.Wait()
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for out := range w.jobs {
		if err := w.send(context.Background(), out); err != nil {
			w.logger.Error("notification delivery error",
				zap.String("channel_id", out.ChannelID),
				zap.Error(err))
		}
	}
}
