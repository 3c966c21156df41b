package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
)

func TestWorkerDeliversQueuedJobs(t *testing.T) {
	var mu sync.Mutex
	var delivered []string

	pool := NewNotificationWorker(func(_ context.Context, out dispatch.OutboundMessage) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, out.Recipient)
		return nil
	}, zap.NewNop(), 8, 2)
	pool.Start()

	require.True(t, pool.Enqueue(dispatch.OutboundMessage{ChannelID: "chan-sms", Recipient: "+226A"}))
	require.True(t, pool.Enqueue(dispatch.OutboundMessage{ChannelID: "chan-sms", Recipient: "+226B"}))
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"+226A", "+226B"}, delivered)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	// Pool never started, so nothing drains the queue of size 1.
	pool := NewNotificationWorker(func(context.Context, dispatch.OutboundMessage) error {
		return nil
	}, zap.NewNop(), 1, 1)

	assert.True(t, pool.Enqueue(dispatch.OutboundMessage{Recipient: "first"}))
	assert.False(t, pool.Enqueue(dispatch.OutboundMessage{Recipient: "dropped"}))
}

func TestStopIsIdempotent(t *testing.T) {
	pool := NewNotificationWorker(func(context.Context, dispatch.OutboundMessage) error {
		return nil
	}, zap.NewNop(), 1, 1)
	pool.Start()
	pool.Stop()
	pool.Stop()
}

func TestEnqueueAfterStopDropsWithoutPanic(t *testing.T) {
	pool := NewNotificationWorker(func(context.Context, dispatch.OutboundMessage) error {
		return nil
	}, zap.NewNop(), 1, 1)
	pool.Start()
	pool.Stop()

	assert.False(t, pool.Enqueue(dispatch.OutboundMessage{Recipient: "late"}))
}
