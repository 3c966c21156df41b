package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/cfrm-service/internal/domain"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

func newTemplateFixture() *TemplateService {
	templates := &fakeTemplateRepo{templates: []domain.MessageTemplate{
		{
			ID:        "tpl-confirm-sms",
			Name:      "confirmation-sms",
			ChannelID: "sms",
			Purpose:   domain.TemplateConfirmation,
			Content:   "Votre plainte {ticket_id} ({category}) a été reçue.",
			Language:  "fr",
			IsActive:  true,
		},
		{
			ID:        "tpl-response-sms",
			Name:      "response-sms",
			ChannelID: "sms",
			Purpose:   domain.TemplateResponse,
			Content:   "Réponse de {responder}: {response_content}",
			Language:  "fr",
			IsActive:  true,
		},
		{
			ID:        "tpl-inactive",
			Name:      "old-closure",
			ChannelID: "sms",
			Purpose:   domain.TemplateClosure,
			Content:   "obsolete",
			Language:  "fr",
			IsActive:  false,
		},
	}}
	channels := &fakeChannelRepo{channels: []domain.Channel{
		{ID: channelSMSID, Name: "SMS", Type: domain.ChannelTypeSMS, IsActive: true},
	}}
	return NewTemplateService(templates, channels)
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	svc := newTemplateFixture()

	rendered, err := svc.Render(context.Background(), domain.ChannelTypeSMS, domain.TemplateConfirmation, "fr", map[string]string{
		"ticket_id": "T-42",
		"category":  "Complaint",
	})
	require.NoError(t, err)

	assert.Equal(t, "Votre plainte T-42 (Complaint) a été reçue.", rendered.Content)
	assert.Empty(t, rendered.Unresolved)
}

func TestRenderLeavesUnresolvedPlaceholdersLiteral(t *testing.T) {
	svc := newTemplateFixture()

	rendered, err := svc.Render(context.Background(), domain.ChannelTypeSMS, domain.TemplateResponse, "fr", map[string]string{
		"response_content": "Nous avons envoyé une équipe.",
	})
	require.NoError(t, err)

	assert.Contains(t, rendered.Content, "{responder}")
	assert.Contains(t, rendered.Content, "Nous avons envoyé une équipe.")
	assert.Equal(t, []string{"responder"}, rendered.Unresolved)
}

func TestResolveMissingTemplate(t *testing.T) {
	svc := newTemplateFixture()

	// closure template exists but is inactive
	_, err := svc.Resolve(context.Background(), domain.ChannelTypeSMS, domain.TemplateClosure, "fr")
	require.Error(t, err)
	assert.True(t, util.IsTemplateNotFound(err))

	_, err = svc.Resolve(context.Background(), domain.ChannelTypeWhatsApp, domain.TemplateConfirmation, "fr")
	require.Error(t, err)
	assert.True(t, util.IsTemplateNotFound(err))
}

func TestTemplateCreateValidation(t *testing.T) {
	svc := newTemplateFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, TemplateCreateInput{ChannelID: channelSMSID, Purpose: domain.TemplateWelcome, Content: "x"})
	assert.Error(t, err, "missing name")

	_, err = svc.Create(ctx, TemplateCreateInput{Name: "n", ChannelID: "ghost", Purpose: domain.TemplateWelcome, Content: "x"})
	assert.Error(t, err, "unknown channel")

	template, err := svc.Create(ctx, TemplateCreateInput{Name: "welcome-sms", ChannelID: channelSMSID, Purpose: domain.TemplateWelcome, Content: "Bienvenue {title}"})
	require.NoError(t, err)
	assert.Equal(t, "fr", template.Language, "defaults to french")
	assert.True(t, template.IsActive)
}

func TestSubstituteEdgeCases(t *testing.T) {
	out, missing := substitute("no placeholders", map[string]string{"a": "b"})
	assert.Equal(t, "no placeholders", out)
	assert.Empty(t, missing)

	out, missing = substitute("dangling {brace", map[string]string{})
	assert.Equal(t, "dangling {brace", out)
	assert.Empty(t, missing)

	out, missing = substitute("{a}{a}{b}", map[string]string{"a": "x"})
	assert.Equal(t, "xx{b}", out)
	assert.Equal(t, []string{"b"}, missing)
}
