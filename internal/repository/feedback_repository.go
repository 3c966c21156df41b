package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// FeedbackAggregate summarizes satisfaction surveys.
type FeedbackAggregate struct {
	AvgSatisfaction float64
	AvgResponseTime float64
	AvgQuality      float64
	TotalCount      int
	RecommendCount  int
}

// FeedbackRepository persists post-resolution satisfaction surveys.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *domain.Feedback) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error)
	Aggregate(ctx context.Context) (*FeedbackAggregate, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository instantiates repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, fb *domain.Feedback) error {
	const query = `
        INSERT INTO feedback (ticket_id, satisfaction_rating, response_time_rating, quality_rating, comments, would_recommend)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		fb.TicketID,
		fb.SatisfactionRating,
		fb.ResponseTimeRating,
		fb.QualityRating,
		fb.Comments,
		fb.WouldRecommend,
	).Scan(&fb.ID, &fb.CreatedAt)
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, satisfaction_rating, response_time_rating, quality_rating, comments, would_recommend, created_at
        FROM feedback WHERE ticket_id=$1`
	var fb domain.Feedback
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&fb.ID, &fb.TicketID, &fb.SatisfactionRating, &fb.ResponseTimeRating,
		&fb.QualityRating, &fb.Comments, &fb.WouldRecommend, &fb.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) Aggregate(ctx context.Context) (*FeedbackAggregate, error) {
	const query = `
        SELECT COALESCE(AVG(satisfaction_rating), 0),
               COALESCE(AVG(response_time_rating), 0),
               COALESCE(AVG(quality_rating), 0),
               COUNT(*),
               COUNT(*) FILTER (WHERE would_recommend)
        FROM feedback`
	var agg FeedbackAggregate
	if err := r.pool.QueryRow(ctx, query).Scan(
		&agg.AvgSatisfaction, &agg.AvgResponseTime, &agg.AvgQuality,
		&agg.TotalCount, &agg.RecommendCount,
	); err != nil {
		return nil, err
	}
	return &agg, nil
}
