package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cfrm-service/internal/config"
	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

func twilioTestConfig(baseURL string) config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:  "AC123",
		AuthToken:   "secret",
		PhoneNumber: "+15550001111",
		BaseURL:     baseURL,
	}
}

func TestNewSMSProviderRequiresCredentials(t *testing.T) {
	_, err := NewSMSProvider(config.TwilioConfig{AccountSID: "AC123"}, nil)
	assert.Error(t, err)
}

func TestSMSSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+22670000001", r.PostFormValue("To"))
		assert.Equal(t, "+15550001111", r.PostFormValue("From"))
		assert.Equal(t, "Bonjour", r.PostFormValue("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer server.Close()

	provider, err := NewSMSProvider(twilioTestConfig(server.URL), server.Client())
	require.NoError(t, err)

	result, err := provider.Send(context.Background(), SendRequest{Recipient: "+22670000001", Content: "Bonjour"})
	require.NoError(t, err)
	assert.Equal(t, "SM42", result.ExternalID)
}

func TestSMSSendErrorWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authenticate"}`))
	}))
	defer server.Close()

	provider, err := NewSMSProvider(twilioTestConfig(server.URL), server.Client())
	require.NoError(t, err)

	_, err = provider.Send(context.Background(), SendRequest{Recipient: "+226", Content: "x"})
	require.Error(t, err)
	assert.True(t, util.IsProviderDelivery(err))
}

func TestSMSParseWebhookStatusCallback(t *testing.T) {
	provider := &SMSProvider{}

	tests := []struct {
		name      string
		rawStatus string
		want      domain.MessageStatus
		mapped    bool
	}{
		{"delivered", "delivered", domain.MessageStatusDelivered, true},
		{"undelivered maps to failed", "undelivered", domain.MessageStatusFailed, true},
		{"read", "read", domain.MessageStatusRead, true},
		{"queued is intermediate", "queued", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := provider.ParseWebhook(map[string]any{
				"MessageSid":    "SM42",
				"MessageStatus": tt.rawStatus,
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.WebhookDeliveryStatus, result.EventType)
			if tt.mapped {
				require.Len(t, result.Statuses, 1)
				assert.Equal(t, "SM42", result.Statuses[0].ExternalID)
				assert.Equal(t, tt.want, result.Statuses[0].Status)
			} else {
				assert.Empty(t, result.Statuses)
			}
		})
	}
}

func TestSMSParseWebhookInbound(t *testing.T) {
	provider := &SMSProvider{}

	result, err := provider.ParseWebhook(map[string]any{
		"From": "+22670000001",
		"Body": "Le forage est en panne",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.WebhookSMSReceived, result.EventType)
	require.Len(t, result.Inbound, 1)
	assert.Equal(t, "+22670000001", result.Inbound[0].From)
	assert.Equal(t, "Le forage est en panne", result.Inbound[0].Body)
}

func TestSMSParseWebhookFailureCarriesError(t *testing.T) {
	provider := &SMSProvider{}

	result, err := provider.ParseWebhook(map[string]any{
		"MessageSid":    "SM42",
		"MessageStatus": "failed",
		"ErrorMessage":  "Unreachable destination",
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, "Unreachable destination", result.Statuses[0].ErrorMessage)
}
