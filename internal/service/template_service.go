package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/repository"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

// TemplateService resolves and renders message templates.
type TemplateService struct {
	templates repository.TemplateRepository
	channels  repository.ChannelRepository
}

// NewTemplateService constructs the service.
func NewTemplateService(templates repository.TemplateRepository, channels repository.ChannelRepository) *TemplateService {
	return &TemplateService{templates: templates, channels: channels}
}

// RenderedTemplate is the outcome of rendering: the substituted texts plus
// the placeholder names no value was supplied for. Unresolved placeholders
// stay literal in the output so the gap is visible to the recipient's agent.
type RenderedTemplate struct {
	Template   *domain.MessageTemplate
	Subject    string
	Content    string
	Unresolved []string
}

// TemplateCreateInput describes template creation payload.
type TemplateCreateInput struct {
	Name      string
	ChannelID string
	Purpose   domain.TemplatePurpose
	Subject   string
	Content   string
	Language  string
	Variables []string
}

// Resolve finds the active template for a channel type, purpose and
// language. Missing templates surface as TEMPLATE_NOT_FOUND so callers can
// decide between failing and falling back to raw content.
func (s *TemplateService) Resolve(ctx context.Context, channelType domain.ChannelType, purpose domain.TemplatePurpose, language string) (*domain.MessageTemplate, error) {
	template, err := s.templates.FindActive(ctx, channelType, purpose, language)
	if err != nil {
		if util.IsNotFound(err) {
			return nil, util.NewTemplateNotFound(map[string]any{
				"channel_type": string(channelType),
				"purpose":      string(purpose),
				"language":     language,
			})
		}
		return nil, err
	}
	return template, nil
}

// Render resolves a template and substitutes the given values into its
// subject and content.
func (s *TemplateService) Render(ctx context.Context, channelType domain.ChannelType, purpose domain.TemplatePurpose, language string, values map[string]string) (*RenderedTemplate, error) {
	template, err := s.Resolve(ctx, channelType, purpose, language)
	if err != nil {
		return nil, err
	}
	subject, subjectMissing := substitute(template.Subject, values)
	content, contentMissing := substitute(template.Content, values)
	return &RenderedTemplate{
		Template:   template,
		Subject:    subject,
		Content:    content,
		Unresolved: mergeMissing(subjectMissing, contentMissing),
	}, nil
}

// Create registers a new template after validating its channel.
func (s *TemplateService) Create(ctx context.Context, input TemplateCreateInput) (*domain.MessageTemplate, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, util.NewValidationError("template name is required", nil)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, util.NewValidationError("template content is required", nil)
	}
	if _, err := s.channels.GetByID(ctx, input.ChannelID); err != nil {
		return nil, err
	}
	language := input.Language
	if language == "" {
		language = "fr"
	}
	template := &domain.MessageTemplate{
		ID:        uuid.New().String(),
		Name:      input.Name,
		ChannelID: input.ChannelID,
		Purpose:   input.Purpose,
		Subject:   input.Subject,
		Content:   input.Content,
		Language:  language,
		Variables: input.Variables,
		IsActive:  true,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

// Update persists template changes.
func (s *TemplateService) Update(ctx context.Context, template *domain.MessageTemplate) error {
	return s.templates.Update(ctx, template)
}

// Get fetches one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

// ListByChannel lists a channel's templates.
func (s *TemplateService) ListByChannel(ctx context.Context, channelID string) ([]domain.MessageTemplate, error) {
	return s.templates.ListByChannel(ctx, channelID)
}

// substitute replaces {name} tokens with their values and reports the names
// of tokens present in the text but absent from values. Tokens without a
// value are left literal.
func substitute(text string, values map[string]string) (string, []string) {
	var missing []string
	var out strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			out.WriteString(rest)
			break
		}
		close := strings.Index(rest[open:], "}")
		if close < 0 {
			out.WriteString(rest)
			break
		}
		name := rest[open+1 : open+close]
		out.WriteString(rest[:open])
		if value, ok := values[name]; ok {
			out.WriteString(value)
		} else {
			out.WriteString(rest[open : open+close+1])
			missing = append(missing, name)
		}
		rest = rest[open+close+1:]
	}
	return out.String(), missing
}

func mergeMissing(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, group := range groups {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged
}
