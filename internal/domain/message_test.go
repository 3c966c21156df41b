package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLifecycle(t *testing.T) {
	now := time.Now().UTC()

	m := &Message{ID: "m1", Status: MessageStatusPending}

	require.True(t, m.MarkSent("SM123", now))
	assert.Equal(t, MessageStatusSent, m.Status)
	assert.Equal(t, "SM123", m.ExternalID)
	require.NotNil(t, m.SentAt)

	require.True(t, m.MarkDelivered(now.Add(time.Second)))
	assert.Equal(t, MessageStatusDelivered, m.Status)
	require.NotNil(t, m.DeliveredAt)

	require.True(t, m.MarkRead(now.Add(2*time.Second)))
	assert.Equal(t, MessageStatusRead, m.Status)
	require.NotNil(t, m.ReadAt)
}

func TestMessageTransitionsAreMonotonic(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		from    MessageStatus
		apply   MessageStatus
		allowed bool
	}{
		{"pending to sent", MessageStatusPending, MessageStatusSent, true},
		{"pending to failed", MessageStatusPending, MessageStatusFailed, true},
		{"pending to delivered skips sent", MessageStatusPending, MessageStatusDelivered, false},
		{"sent to delivered", MessageStatusSent, MessageStatusDelivered, true},
		{"sent to failed", MessageStatusSent, MessageStatusFailed, true},
		{"delivered back to sent", MessageStatusDelivered, MessageStatusSent, false},
		{"delivered to read", MessageStatusDelivered, MessageStatusRead, true},
		{"failed is terminal", MessageStatusFailed, MessageStatusSent, false},
		{"read is terminal", MessageStatusRead, MessageStatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{Status: tt.from}
			assert.Equal(t, tt.allowed, m.ApplyStatus(tt.apply, "", now))
			if !tt.allowed {
				assert.Equal(t, tt.from, m.Status)
			}
		})
	}
}

func TestMessageDuplicateWebhookIsNoOp(t *testing.T) {
	now := time.Now().UTC()

	m := &Message{Status: MessageStatusPending}
	require.True(t, m.MarkSent("SM1", now))
	require.True(t, m.MarkDelivered(now))
	firstDelivered := m.DeliveredAt

	// late duplicate of the delivered report
	assert.False(t, m.ApplyStatus(MessageStatusDelivered, "", now.Add(time.Minute)))
	assert.Equal(t, firstDelivered, m.DeliveredAt)

	// out of order sent report after delivery
	assert.False(t, m.ApplyStatus(MessageStatusSent, "", now.Add(time.Minute)))
	assert.Equal(t, MessageStatusDelivered, m.Status)
}

func TestMessageMarkFailedKeepsError(t *testing.T) {
	m := &Message{Status: MessageStatusSent}
	require.True(t, m.MarkFailed("undeliverable"))
	assert.Equal(t, MessageStatusFailed, m.Status)
	assert.Equal(t, "undeliverable", m.ErrorMessage)

	assert.False(t, m.MarkSent("SM2", time.Now()))
}
