package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// MessageFilter captures message listing parameters.
type MessageFilter struct {
	ChannelID   *string
	TicketID    *string
	Status      *domain.MessageStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// MessageRepository encapsulates outbound/inbound message persistence.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	Update(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Message, error)
	// MutateByExternalID locks the message matching the provider id, applies
	// fn and persists the result. Out-of-order webhook deliveries serialize
	// here so the delivery state machine stays monotonic.
	MutateByExternalID(ctx context.Context, externalID string, fn func(*domain.Message) error) (*domain.Message, error)
	ListWithFilter(ctx context.Context, filter MessageFilter) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, channel_id, recipient, subject, content, template_id, ticket_id, response_id,
    status, external_id, error_message, created_at, sent_at, delivered_at, read_at, metadata`

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (id, channel_id, recipient, subject, content, template_id, ticket_id, response_id,
            status, external_id, error_message, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		message.ID,
		message.ChannelID,
		message.Recipient,
		message.Subject,
		message.Content,
		message.TemplateID,
		message.TicketID,
		message.ResponseID,
		message.Status,
		message.ExternalID,
		message.ErrorMessage,
		message.Metadata,
	).Scan(&message.CreatedAt)
}

func (r *messageRepository) Update(ctx context.Context, message *domain.Message) error {
	const query = `
        UPDATE messages SET status=$1, external_id=$2, error_message=$3, sent_at=$4, delivered_at=$5, read_at=$6, metadata=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		message.Status,
		message.ExternalID,
		message.ErrorMessage,
		message.SentAt,
		message.DeliveredAt,
		message.ReadAt,
		message.Metadata,
		message.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id=$1`, messageColumns)
	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

func (r *messageRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE external_id=$1 ORDER BY created_at DESC LIMIT 1`, messageColumns)
	return scanMessage(r.pool.QueryRow(ctx, query, externalID))
}

func (r *messageRepository) MutateByExternalID(ctx context.Context, externalID string, fn func(*domain.Message) error) (*domain.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM messages WHERE external_id=$1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, messageColumns)
	message, err := scanMessage(tx.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, err
	}

	if err := fn(message); err != nil {
		return nil, err
	}

	const update = `
        UPDATE messages SET status=$1, external_id=$2, error_message=$3, sent_at=$4, delivered_at=$5, read_at=$6, metadata=$7
        WHERE id=$8`
	if _, err := tx.Exec(ctx, update,
		message.Status,
		message.ExternalID,
		message.ErrorMessage,
		message.SentAt,
		message.DeliveredAt,
		message.ReadAt,
		message.Metadata,
		message.ID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return message, nil
}

func (r *messageRepository) ListWithFilter(ctx context.Context, filter MessageFilter) ([]domain.Message, error) {
	base := fmt.Sprintf(`SELECT %s FROM messages`, messageColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ChannelID != nil {
		args = append(args, *filter.ChannelID)
		clauses = append(clauses, fmt.Sprintf("channel_id=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
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

	var result []domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *message)
	}
	return result, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var message domain.Message
	if err := row.Scan(
		&message.ID,
		&message.ChannelID,
		&message.Recipient,
		&message.Subject,
		&message.Content,
		&message.TemplateID,
		&message.TicketID,
		&message.ResponseID,
		&message.Status,
		&message.ExternalID,
		&message.ErrorMessage,
		&message.CreatedAt,
		&message.SentAt,
		&message.DeliveredAt,
		&message.ReadAt,
		&message.Metadata,
	); err != nil {
		return nil, err
	}
	return &message, nil
}
