package domain

import "time"

// ChannelStats aggregates per-channel delivery counters for one day.
type ChannelStats struct {
	ChannelID string
	Date      time.Time

	MessagesSent      int
	MessagesDelivered int
	MessagesFailed    int
	MessagesRead      int

	SuccessRate float64
}

// CalculateMetrics derives the success rate from the counters.
func (s *ChannelStats) CalculateMetrics() {
	if s.MessagesSent == 0 {
		s.SuccessRate = 0
		return
	}
	s.SuccessRate = float64(s.MessagesDelivered) / float64(s.MessagesSent) * 100
}
