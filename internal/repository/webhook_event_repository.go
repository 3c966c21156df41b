package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// WebhookEventFilter captures listing parameters.
type WebhookEventFilter struct {
	EventType *domain.WebhookEventType
	ChannelID *string
	Processed *bool
	Limit     int
	Offset    int
}

// WebhookEventRepository persists inbound provider callbacks.
type WebhookEventRepository interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
	Update(ctx context.Context, event *domain.WebhookEvent) error
	GetByID(ctx context.Context, id string) (*domain.WebhookEvent, error)
	ListWithFilter(ctx context.Context, filter WebhookEventFilter) ([]domain.WebhookEvent, error)
}

type webhookEventRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepository instantiates repository.
func NewWebhookEventRepository(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepository{pool: pool}
}

const webhookColumns = `id, event_type, channel_id, payload, headers, processed, processed_at,
    error_message, message_id, ticket_id, created_at, source_ip`

func (r *webhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	const query = `
        INSERT INTO webhook_events (id, event_type, channel_id, payload, headers, processed, processed_at,
            error_message, message_id, ticket_id, source_ip)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		event.ID,
		event.EventType,
		event.ChannelID,
		event.Payload,
		event.Headers,
		event.Processed,
		event.ProcessedAt,
		event.ErrorMessage,
		event.MessageID,
		event.TicketID,
		event.SourceIP,
	).Scan(&event.CreatedAt)
}

func (r *webhookEventRepository) Update(ctx context.Context, event *domain.WebhookEvent) error {
	const query = `
        UPDATE webhook_events SET processed=$1, processed_at=$2, error_message=$3, message_id=$4, ticket_id=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		event.Processed,
		event.ProcessedAt,
		event.ErrorMessage,
		event.MessageID,
		event.TicketID,
		event.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *webhookEventRepository) GetByID(ctx context.Context, id string) (*domain.WebhookEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM webhook_events WHERE id=$1`, webhookColumns)
	return scanWebhookEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *webhookEventRepository) ListWithFilter(ctx context.Context, filter WebhookEventFilter) ([]domain.WebhookEvent, error) {
	base := fmt.Sprintf(`SELECT %s FROM webhook_events`, webhookColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EventType != nil {
		args = append(args, *filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type=$%d", len(args)))
	}
	if filter.ChannelID != nil {
		args = append(args, *filter.ChannelID)
		clauses = append(clauses, fmt.Sprintf("channel_id=$%d", len(args)))
	}
	if filter.Processed != nil {
		args = append(args, *filter.Processed)
		clauses = append(clauses, fmt.Sprintf("processed=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	if err := row.Scan(
		&event.ID,
		&event.EventType,
		&event.ChannelID,
		&event.Payload,
		&event.Headers,
		&event.Processed,
		&event.ProcessedAt,
		&event.ErrorMessage,
		&event.MessageID,
		&event.TicketID,
		&event.CreatedAt,
		&event.SourceIP,
	); err != nil {
		return nil, err
	}
	return &event, nil
}
