package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeSLADeadline(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		slaHours int
		want     time.Time
	}{
		{"critical two hours", 2, created.Add(2 * time.Hour)},
		{"medium one day", 24, created.Add(24 * time.Hour)},
		{"informational one week", 168, created.Add(168 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSLADeadline(created, Priority{SLAHours: tt.slaHours})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTicketIsOverdue(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := Status{Name: "Ouvert", IsFinal: false}
	closed := Status{Name: "Fermé", IsFinal: true}

	tests := []struct {
		name     string
		deadline *time.Time
		status   Status
		want     bool
	}{
		{"past deadline open", &past, open, true},
		{"future deadline open", &future, open, false},
		{"past deadline but closed", &past, closed, false},
		{"no deadline", nil, open, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &Ticket{SLADeadline: tt.deadline}
			assert.Equal(t, tt.want, ticket.IsOverdue(tt.status, now))
		})
	}
}

func TestDaysSinceCreation(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := &Ticket{CreatedAt: created}

	assert.Equal(t, 0, ticket.DaysSinceCreation(created.Add(23*time.Hour)))
	assert.Equal(t, 1, ticket.DaysSinceCreation(created.Add(25*time.Hour)))
	assert.Equal(t, 7, ticket.DaysSinceCreation(created.Add(7*24*time.Hour)))
}

func TestTicketContactRecipient(t *testing.T) {
	assert.Equal(t, "+22670000001", (&Ticket{SubmitterPhone: "+22670000001", SubmitterEmail: "a@b.cd"}).ContactRecipient())
	assert.Equal(t, "a@b.cd", (&Ticket{SubmitterEmail: "a@b.cd"}).ContactRecipient())
	assert.Equal(t, "", (&Ticket{}).ContactRecipient())

	assert.True(t, (&Ticket{SubmitterEmail: "a@b.cd"}).HasContact())
	assert.False(t, (&Ticket{}).HasContact())
}

func TestValidRating(t *testing.T) {
	assert.False(t, ValidRating(0))
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.False(t, ValidRating(6))
}
