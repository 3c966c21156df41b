package service

import (
	"context"
	"time"

	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/repository"
)

// StatsService assembles reporting views over tickets and channels.
type StatsService struct {
	stats    repository.StatsRepository
	feedback repository.FeedbackRepository
}

// NewStatsService constructs the service.
func NewStatsService(stats repository.StatsRepository, feedback repository.FeedbackRepository) *StatsService {
	return &StatsService{stats: stats, feedback: feedback}
}

// DashboardStats is the operational overview.
type DashboardStats struct {
	ByStatus   []repository.NamedCount `json:"by_status"`
	ByCategory []repository.NamedCount `json:"by_category"`
	ByChannel  []repository.NamedCount `json:"by_channel"`

	OverdueCount     int `json:"overdue_count"`
	CreatedLastWeek  int `json:"created_last_week"`
	CreatedLastMonth int `json:"created_last_month"`

	Feedback *repository.FeedbackAggregate `json:"feedback,omitempty"`
}

// Dashboard builds the full overview in one call.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now().UTC()

	byStatus, err := s.stats.TicketCountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.stats.TicketCountsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	byChannel, err := s.stats.TicketCountsByChannel(ctx)
	if err != nil {
		return nil, err
	}
	overdue, err := s.stats.OverdueTicketCount(ctx, now)
	if err != nil {
		return nil, err
	}
	lastWeek, err := s.stats.TicketsCreatedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	lastMonth, err := s.stats.TicketsCreatedSince(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		return nil, err
	}
	aggregate, err := s.feedback.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		ByStatus:         byStatus,
		ByCategory:       byCategory,
		ByChannel:        byChannel,
		OverdueCount:     overdue,
		CreatedLastWeek:  lastWeek,
		CreatedLastMonth: lastMonth,
		Feedback:         aggregate,
	}, nil
}

// ChannelDay returns one channel's delivery counters for a given day.
func (s *StatsService) ChannelDay(ctx context.Context, channelID string, day time.Time) (*domain.ChannelStats, error) {
	stats, err := s.stats.ChannelStatsForDay(ctx, channelID, day)
	if err != nil {
		return nil, err
	}
	stats.CalculateMetrics()
	return stats, nil
}
