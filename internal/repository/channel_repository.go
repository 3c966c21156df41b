package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// ChannelRepository encapsulates channel configuration persistence.
type ChannelRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	GetByName(ctx context.Context, name string) (*domain.Channel, error)
	// GetActiveByType returns the first active channel of the given type.
	GetActiveByType(ctx context.Context, channelType domain.ChannelType) (*domain.Channel, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Channel, error)
	Update(ctx context.Context, channel *domain.Channel) error
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository instantiates repository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

const channelColumns = `id, name, type, is_active, configuration, created_at, updated_at`

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	return r.fetch(ctx, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, id)
}

func (r *channelRepository) GetByName(ctx context.Context, name string) (*domain.Channel, error) {
	return r.fetch(ctx, `SELECT `+channelColumns+` FROM channels WHERE name=$1`, name)
}

func (r *channelRepository) GetActiveByType(ctx context.Context, channelType domain.ChannelType) (*domain.Channel, error) {
	return r.fetch(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE type=$1 AND is_active ORDER BY created_at LIMIT 1`,
		string(channelType))
}

func (r *channelRepository) fetch(ctx context.Context, query string, arg any) (*domain.Channel, error) {
	var ch domain.Channel
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ch.ID, &ch.Name, &ch.Type, &ch.IsActive, &ch.Configuration, &ch.CreatedAt, &ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *channelRepository) List(ctx context.Context, activeOnly bool) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Type, &ch.IsActive, &ch.Configuration, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (r *channelRepository) Update(ctx context.Context, channel *domain.Channel) error {
	const query = `
        UPDATE channels SET name=$1, type=$2, is_active=$3, configuration=$4, updated_at=NOW()
        WHERE id=$5 RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		channel.Name, channel.Type, channel.IsActive, channel.Configuration, channel.ID,
	).Scan(&channel.UpdatedAt)
}
