package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// ResponseRepository encapsulates ticket response persistence.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.Response) error
	GetByID(ctx context.Context, id string) (*domain.Response, error)
	Update(ctx context.Context, response *domain.Response) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error)
}

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository instantiates repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

const responseColumns = `id, ticket_id, content, author_id, channel_id, is_internal, sent_at, created_at, delivery_status, external_message_id`

func (r *responseRepository) Create(ctx context.Context, response *domain.Response) error {
	const query = `
        INSERT INTO responses (ticket_id, content, author_id, channel_id, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		response.TicketID,
		response.Content,
		response.AuthorID,
		response.ChannelID,
		response.IsInternal,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	var resp domain.Response
	if err := r.pool.QueryRow(ctx, `SELECT `+responseColumns+` FROM responses WHERE id=$1`, id).Scan(
		&resp.ID, &resp.TicketID, &resp.Content, &resp.AuthorID, &resp.ChannelID,
		&resp.IsInternal, &resp.SentAt, &resp.CreatedAt, &resp.DeliveryStatus, &resp.ExternalMessageID,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *responseRepository) Update(ctx context.Context, response *domain.Response) error {
	const query = `
        UPDATE responses SET content=$1, is_internal=$2, sent_at=$3, delivery_status=$4, external_message_id=$5
        WHERE id=$6`
	_, err := r.pool.Exec(ctx, query,
		response.Content,
		response.IsInternal,
		response.SentAt,
		response.DeliveryStatus,
		response.ExternalMessageID,
		response.ID,
	)
	return err
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(
			&resp.ID, &resp.TicketID, &resp.Content, &resp.AuthorID, &resp.ChannelID,
			&resp.IsInternal, &resp.SentAt, &resp.CreatedAt, &resp.DeliveryStatus, &resp.ExternalMessageID,
		); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}
