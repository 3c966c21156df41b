package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// NamedCount is one grouped aggregation row.
type NamedCount struct {
	Name  string
	Count int
}

// StatsRepository provides the read-only reporting contract over ticket and
// message data.
type StatsRepository interface {
	TicketCountsByStatus(ctx context.Context) ([]NamedCount, error)
	TicketCountsByCategory(ctx context.Context) ([]NamedCount, error)
	TicketCountsByChannel(ctx context.Context) ([]NamedCount, error)
	OverdueTicketCount(ctx context.Context, now time.Time) (int, error)
	TicketsCreatedSince(ctx context.Context, since time.Time) (int, error)
	ChannelStatsForDay(ctx context.Context, channelID string, day time.Time) (*domain.ChannelStats, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository instantiates repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) TicketCountsByStatus(ctx context.Context) ([]NamedCount, error) {
	const query = `
        SELECT s.name, COUNT(t.id) FROM tickets t
        JOIN statuses s ON s.id = t.status_id
        GROUP BY s.name ORDER BY s.name`
	return r.namedCounts(ctx, query)
}

func (r *statsRepository) TicketCountsByCategory(ctx context.Context) ([]NamedCount, error) {
	const query = `
        SELECT c.name, COUNT(t.id) FROM tickets t
        JOIN categories c ON c.id = t.category_id
        GROUP BY c.name ORDER BY c.name`
	return r.namedCounts(ctx, query)
}

func (r *statsRepository) TicketCountsByChannel(ctx context.Context) ([]NamedCount, error) {
	const query = `
        SELECT ch.name, COUNT(t.id) FROM tickets t
        JOIN channels ch ON ch.id = t.channel_id
        GROUP BY ch.name ORDER BY ch.name`
	return r.namedCounts(ctx, query)
}

func (r *statsRepository) namedCounts(ctx context.Context, query string) ([]NamedCount, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NamedCount
	for rows.Next() {
		var nc NamedCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		result = append(result, nc)
	}
	return result, rows.Err()
}

func (r *statsRepository) OverdueTicketCount(ctx context.Context, now time.Time) (int, error) {
	const query = `
        SELECT COUNT(t.id) FROM tickets t
        JOIN statuses s ON s.id = t.status_id
        WHERE t.sla_deadline < $1 AND NOT s.is_final`
	var count int
	err := r.pool.QueryRow(ctx, query, now).Scan(&count)
	return count, err
}

func (r *statsRepository) TicketsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(id) FROM tickets WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

func (r *statsRepository) ChannelStatsForDay(ctx context.Context, channelID string, day time.Time) (*domain.ChannelStats, error) {
	const query = `
        SELECT COUNT(id) FILTER (WHERE status IN ('sent','delivered','read')),
               COUNT(id) FILTER (WHERE status IN ('delivered','read')),
               COUNT(id) FILTER (WHERE status = 'failed'),
               COUNT(id) FILTER (WHERE status = 'read')
        FROM messages
        WHERE channel_id=$1 AND created_at >= $2 AND created_at < $3`
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	stats := &domain.ChannelStats{ChannelID: channelID, Date: dayStart}
	if err := r.pool.QueryRow(ctx, query, channelID, dayStart, dayStart.Add(24*time.Hour)).Scan(
		&stats.MessagesSent, &stats.MessagesDelivered, &stats.MessagesFailed, &stats.MessagesRead,
	); err != nil {
		return nil, err
	}
	stats.CalculateMetrics()
	return stats, nil
}
