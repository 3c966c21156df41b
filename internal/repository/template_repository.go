package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// TemplateRepository encapsulates message template persistence.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.MessageTemplate) error
	Update(ctx context.Context, tmpl *domain.MessageTemplate) error
	GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error)
	// FindActive resolves the first active template for a channel type,
	// purpose and language.
	FindActive(ctx context.Context, channelType domain.ChannelType, purpose domain.TemplatePurpose, language string) (*domain.MessageTemplate, error)
	ListByChannel(ctx context.Context, channelID string) ([]domain.MessageTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, name, channel_id, purpose, subject, content, language, variables, is_active, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tmpl *domain.MessageTemplate) error {
	const query = `
        INSERT INTO message_templates (name, channel_id, purpose, subject, content, language, variables, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tmpl.Name,
		tmpl.ChannelID,
		tmpl.Purpose,
		tmpl.Subject,
		tmpl.Content,
		tmpl.Language,
		tmpl.Variables,
		tmpl.IsActive,
	).Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
}

func (r *templateRepository) Update(ctx context.Context, tmpl *domain.MessageTemplate) error {
	const query = `
        UPDATE message_templates SET name=$1, purpose=$2, subject=$3, content=$4, language=$5, variables=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8 RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		tmpl.Name,
		tmpl.Purpose,
		tmpl.Subject,
		tmpl.Content,
		tmpl.Language,
		tmpl.Variables,
		tmpl.IsActive,
		tmpl.ID,
	).Scan(&tmpl.UpdatedAt)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	return r.fetch(ctx, `SELECT `+templateColumns+` FROM message_templates WHERE id=$1`, id)
}

func (r *templateRepository) FindActive(ctx context.Context, channelType domain.ChannelType, purpose domain.TemplatePurpose, language string) (*domain.MessageTemplate, error) {
	const query = `
        SELECT t.id, t.name, t.channel_id, t.purpose, t.subject, t.content, t.language, t.variables, t.is_active, t.created_at, t.updated_at
        FROM message_templates t
        JOIN channels c ON c.id = t.channel_id
        WHERE c.type=$1 AND t.purpose=$2 AND t.language=$3 AND t.is_active
        ORDER BY t.created_at
        LIMIT 1`
	var tmpl domain.MessageTemplate
	if err := r.pool.QueryRow(ctx, query, channelType, purpose, language).Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.ChannelID, &tmpl.Purpose, &tmpl.Subject,
		&tmpl.Content, &tmpl.Language, &tmpl.Variables, &tmpl.IsActive,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) fetch(ctx context.Context, query string, arg any) (*domain.MessageTemplate, error) {
	var tmpl domain.MessageTemplate
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.ChannelID, &tmpl.Purpose, &tmpl.Subject,
		&tmpl.Content, &tmpl.Language, &tmpl.Variables, &tmpl.IsActive,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) ListByChannel(ctx context.Context, channelID string) ([]domain.MessageTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM message_templates WHERE channel_id=$1 ORDER BY name`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MessageTemplate
	for rows.Next() {
		var tmpl domain.MessageTemplate
		if err := rows.Scan(
			&tmpl.ID, &tmpl.Name, &tmpl.ChannelID, &tmpl.Purpose, &tmpl.Subject,
			&tmpl.Content, &tmpl.Language, &tmpl.Variables, &tmpl.IsActive,
			&tmpl.CreatedAt, &tmpl.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tmpl)
	}
	return result, rows.Err()
}
