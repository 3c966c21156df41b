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

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CategoryID  *string
	PriorityID  *string
	StatusID    *string
	ChannelID   *string
	AssignedTo  *string
	IsPSEA      *bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Mutate loads the ticket under a row lock, applies fn and persists the
	// result in the same transaction. Concurrent read-modify-write operations
	// serialize on the lock so audit entries are never lost to a race.
	Mutate(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, content, is_anonymous, category_id, priority_id, status_id, channel_id,
    external_id, submitter_name, submitter_phone, submitter_email, submitter_location,
    assigned_to, created_by, created_at, updated_at, closed_at,
    sla_deadline, escalated_at, escalated_to, is_psea, psea_contact, psea_escalated, tags, metadata`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, content, is_anonymous, category_id, priority_id, status_id, channel_id,
            external_id, submitter_name, submitter_phone, submitter_email, submitter_location,
            assigned_to, created_by, sla_deadline, is_psea, psea_contact, psea_escalated, tags, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Content,
		ticket.IsAnonymous,
		ticket.CategoryID,
		ticket.PriorityID,
		ticket.StatusID,
		ticket.ChannelID,
		ticket.ExternalID,
		ticket.SubmitterName,
		ticket.SubmitterPhone,
		ticket.SubmitterEmail,
		ticket.SubmitterLocation,
		ticket.AssignedTo,
		ticket.CreatedBy,
		ticket.SLADeadline,
		ticket.IsPSEA,
		ticket.PSEAContact,
		ticket.PSEAEscalated,
		ticket.Tags,
		ticket.Metadata,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := fn(ticket); err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET title=$1, content=$2, is_anonymous=$3, category_id=$4, priority_id=$5,
            status_id=$6, channel_id=$7, submitter_name=$8, submitter_phone=$9, submitter_email=$10,
            submitter_location=$11, assigned_to=$12, closed_at=$13, sla_deadline=$14,
            escalated_at=$15, escalated_to=$16, is_psea=$17, psea_contact=$18, psea_escalated=$19,
            tags=$20, metadata=$21, updated_at=NOW()
        WHERE id=$22
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		ticket.Title,
		ticket.Content,
		ticket.IsAnonymous,
		ticket.CategoryID,
		ticket.PriorityID,
		ticket.StatusID,
		ticket.ChannelID,
		ticket.SubmitterName,
		ticket.SubmitterPhone,
		ticket.SubmitterEmail,
		ticket.SubmitterLocation,
		ticket.AssignedTo,
		ticket.ClosedAt,
		ticket.SLADeadline,
		ticket.EscalatedAt,
		ticket.EscalatedTo,
		ticket.IsPSEA,
		ticket.PSEAContact,
		ticket.PSEAEscalated,
		ticket.Tags,
		ticket.Metadata,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.PriorityID != nil {
		args = append(args, *filter.PriorityID)
		clauses = append(clauses, fmt.Sprintf("priority_id=$%d", len(args)))
	}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		clauses = append(clauses, fmt.Sprintf("status_id=$%d", len(args)))
	}
	if filter.ChannelID != nil {
		args = append(args, *filter.ChannelID)
		clauses = append(clauses, fmt.Sprintf("channel_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.IsPSEA != nil {
		args = append(args, *filter.IsPSEA)
		clauses = append(clauses, fmt.Sprintf("is_psea=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(content) LIKE %s OR LOWER(submitter_name) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
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

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Content,
		&ticket.IsAnonymous,
		&ticket.CategoryID,
		&ticket.PriorityID,
		&ticket.StatusID,
		&ticket.ChannelID,
		&ticket.ExternalID,
		&ticket.SubmitterName,
		&ticket.SubmitterPhone,
		&ticket.SubmitterEmail,
		&ticket.SubmitterLocation,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
		&ticket.SLADeadline,
		&ticket.EscalatedAt,
		&ticket.EscalatedTo,
		&ticket.IsPSEA,
		&ticket.PSEAContact,
		&ticket.PSEAEscalated,
		&ticket.Tags,
		&ticket.Metadata,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
