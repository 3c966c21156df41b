package importer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/service"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

type memTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *memTicketRepo) GetByID(context.Context, string) (*domain.Ticket, error) {
	return nil, util.NewNotFound("ticket", nil)
}

func (r *memTicketRepo) Mutate(context.Context, string, func(*domain.Ticket) error) (*domain.Ticket, error) {
	return nil, util.NewNotFound("ticket", nil)
}

func (r *memTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

type refCategoryRepo struct{ items []domain.Category }

func (r *refCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("category", nil)
}

func (r *refCategoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	for i := range r.items {
		if strings.EqualFold(r.items[i].Name, name) {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("category", nil)
}

func (r *refCategoryRepo) List(context.Context) ([]domain.Category, error) { return r.items, nil }

type refPriorityRepo struct{ items []domain.Priority }

func (r *refPriorityRepo) GetByID(_ context.Context, id string) (*domain.Priority, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *refPriorityRepo) GetByName(_ context.Context, name string) (*domain.Priority, error) {
	for i := range r.items {
		if strings.EqualFold(r.items[i].Name, name) {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *refPriorityRepo) GetByLevel(_ context.Context, level int) (*domain.Priority, error) {
	for i := range r.items {
		if r.items[i].Level == level {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *refPriorityRepo) List(context.Context) ([]domain.Priority, error) { return r.items, nil }

type refStatusRepo struct{ items []domain.Status }

func (r *refStatusRepo) GetByID(_ context.Context, id string) (*domain.Status, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("status", nil)
}

func (r *refStatusRepo) GetByName(_ context.Context, name string) (*domain.Status, error) {
	for i := range r.items {
		if strings.EqualFold(r.items[i].Name, name) {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("status", nil)
}

func (r *refStatusRepo) List(context.Context) ([]domain.Status, error) { return r.items, nil }

type refChannelRepo struct{ items []domain.Channel }

func (r *refChannelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *refChannelRepo) GetByName(_ context.Context, name string) (*domain.Channel, error) {
	for i := range r.items {
		if strings.EqualFold(r.items[i].Name, name) {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *refChannelRepo) GetActiveByType(_ context.Context, channelType domain.ChannelType) (*domain.Channel, error) {
	for i := range r.items {
		if r.items[i].Type == channelType && r.items[i].IsActive {
			return &r.items[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *refChannelRepo) List(context.Context, bool) ([]domain.Channel, error) { return r.items, nil }

func (r *refChannelRepo) Update(context.Context, *domain.Channel) error { return nil }

type noopLogRepo struct{}

func (noopLogRepo) Create(context.Context, *domain.TicketLog) error { return nil }

func (noopLogRepo) ListByTicket(context.Context, string, int, int) ([]domain.TicketLog, error) {
	return nil, nil
}

type noopBus struct{}

func (noopBus) Publish(context.Context, events.Event) error { return nil }

func (noopBus) Subscribe(events.EventType, events.EventHandler) {}

func newImportFixture() (*CSVImporter, *memTicketRepo) {
	categories := &refCategoryRepo{items: []domain.Category{
		{ID: "cat-plainte", Name: "Plainte"},
		{ID: "cat-psea", Name: "Protection", IsSensitive: true},
	}}
	priorities := &refPriorityRepo{items: []domain.Priority{
		{ID: "prio-crit", Name: "Critique", Level: 5, SLAHours: 2},
		{ID: "prio-med", Name: "Moyenne", Level: 3, SLAHours: 24},
	}}
	statuses := &refStatusRepo{items: []domain.Status{
		{ID: "status-open", Name: "Ouvert"},
	}}
	channels := &refChannelRepo{items: []domain.Channel{
		{ID: "chan-web", Name: "Portail Web", Type: domain.ChannelTypeWeb, IsActive: true},
		{ID: "chan-sms", Name: "SMS", Type: domain.ChannelTypeSMS, IsActive: true},
	}}

	tickets := &memTicketRepo{}
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   tickets,
		CategoryRepo: categories,
		PriorityRepo: priorities,
		StatusRepo:   statuses,
		ChannelRepo:  channels,
		LogRepo:      noopLogRepo{},
		Dispatcher:   noopBus{},
	})
	return NewCSVImporter(svc, categories, priorities, channels, zap.NewNop()), tickets
}

func TestImportAppliesDefaults(t *testing.T) {
	imp, tickets := newImportFixture()

	csv := "title,content,category,priority,channel,submitter_name\n" +
		"Pompe en panne,Le forage ne donne plus d'eau,Plainte,,,Awa Traoré\n"
	result, err := imp.Import(context.Background(), events.SystemActor(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedCount)
	assert.Empty(t, result.Errors)
	require.Len(t, tickets.tickets, 1)
	created := tickets.tickets[0]
	assert.Equal(t, "prio-med", created.PriorityID)
	assert.Equal(t, "chan-web", created.ChannelID)
	assert.Equal(t, "Awa Traoré", created.SubmitterName)
	require.NotNil(t, created.SLADeadline)
}

func TestImportCollectsRowErrors(t *testing.T) {
	imp, tickets := newImportFixture()

	csv := "title,content,category,priority\n" +
		"Valide,Contenu,Plainte,Critique\n" +
		"Sans catégorie,Contenu,,\n" +
		"Mauvaise priorité,Contenu,Plainte,Urgentissime\n" +
		",Titre vide,Plainte,\n"
	result, err := imp.Import(context.Background(), events.SystemActor(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedCount)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "row 2:")
	assert.Contains(t, result.Errors[0], "category is required")
	assert.Contains(t, result.Errors[1], "row 3:")
	assert.Contains(t, result.Errors[1], "Urgentissime")
	assert.Contains(t, result.Errors[2], "row 4:")
	require.Len(t, tickets.tickets, 1)
	assert.Equal(t, "prio-crit", tickets.tickets[0].PriorityID)
}

func TestImportRejectsMissingTitleColumn(t *testing.T) {
	imp, _ := newImportFixture()

	_, err := imp.Import(context.Background(), events.SystemActor(), strings.NewReader("content,category\nx,Plainte\n"))
	require.Error(t, err)
}

func TestImportParsesAnonymousFlag(t *testing.T) {
	imp, tickets := newImportFixture()

	csv := "title,content,category,is_anonymous\n" +
		"Signalement,Contenu sensible,Protection,oui\n"
	result, err := imp.Import(context.Background(), events.SystemActor(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedCount)
	require.Len(t, tickets.tickets, 1)
	assert.True(t, tickets.tickets[0].IsAnonymous)
	assert.True(t, tickets.tickets[0].IsPSEA)
}
