package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/cfrm-service/internal/dispatch"
	"github.com/spec-kit/cfrm-service/internal/domain"
	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

func inboundFixture(from, body string) dispatch.InboundMessage {
	return dispatch.InboundMessage{From: from, Body: body}
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", nil)
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) Mutate(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", nil)
	}
	clone := *ticket
	if err := fn(&clone); err != nil {
		return nil, err
	}
	clone.UpdatedAt = time.Now().UTC()
	r.tickets[id] = &clone
	result := clone
	return &result, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeCategoryRepo struct{ categories []domain.Category }

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	for i := range r.categories {
		if r.categories[i].ID == id {
			return &r.categories[i], nil
		}
	}
	return nil, util.NewNotFound("category", nil)
}

func (r *fakeCategoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	for i := range r.categories {
		if strings.EqualFold(r.categories[i].Name, name) {
			return &r.categories[i], nil
		}
	}
	return nil, util.NewNotFound("category", nil)
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	return r.categories, nil
}

type fakePriorityRepo struct{ priorities []domain.Priority }

func (r *fakePriorityRepo) GetByID(_ context.Context, id string) (*domain.Priority, error) {
	for i := range r.priorities {
		if r.priorities[i].ID == id {
			return &r.priorities[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *fakePriorityRepo) GetByName(_ context.Context, name string) (*domain.Priority, error) {
	for i := range r.priorities {
		if strings.EqualFold(r.priorities[i].Name, name) {
			return &r.priorities[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *fakePriorityRepo) GetByLevel(_ context.Context, level int) (*domain.Priority, error) {
	for i := range r.priorities {
		if r.priorities[i].Level == level {
			return &r.priorities[i], nil
		}
	}
	return nil, util.NewNotFound("priority", nil)
}

func (r *fakePriorityRepo) List(_ context.Context) ([]domain.Priority, error) {
	return r.priorities, nil
}

type fakeStatusRepo struct{ statuses []domain.Status }

func (r *fakeStatusRepo) GetByID(_ context.Context, id string) (*domain.Status, error) {
	for i := range r.statuses {
		if r.statuses[i].ID == id {
			return &r.statuses[i], nil
		}
	}
	return nil, util.NewNotFound("status", nil)
}

func (r *fakeStatusRepo) GetByName(_ context.Context, name string) (*domain.Status, error) {
	for i := range r.statuses {
		if strings.EqualFold(r.statuses[i].Name, name) {
			return &r.statuses[i], nil
		}
	}
	return nil, util.NewNotFound("status", nil)
}

func (r *fakeStatusRepo) List(_ context.Context) ([]domain.Status, error) {
	return r.statuses, nil
}

type fakeChannelRepo struct{ channels []domain.Channel }

func (r *fakeChannelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	for i := range r.channels {
		if r.channels[i].ID == id {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *fakeChannelRepo) GetByName(_ context.Context, name string) (*domain.Channel, error) {
	for i := range r.channels {
		if strings.EqualFold(r.channels[i].Name, name) {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *fakeChannelRepo) GetActiveByType(_ context.Context, channelType domain.ChannelType) (*domain.Channel, error) {
	for i := range r.channels {
		if r.channels[i].Type == channelType && r.channels[i].IsActive {
			return &r.channels[i], nil
		}
	}
	return nil, util.NewNotFound("channel", nil)
}

func (r *fakeChannelRepo) List(_ context.Context, activeOnly bool) ([]domain.Channel, error) {
	if !activeOnly {
		return r.channels, nil
	}
	var out []domain.Channel
	for _, ch := range r.channels {
		if ch.IsActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) Update(_ context.Context, channel *domain.Channel) error {
	for i := range r.channels {
		if r.channels[i].ID == channel.ID {
			r.channels[i] = *channel
			return nil
		}
	}
	return util.NewNotFound("channel", nil)
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []domain.TicketLog
}

func (r *fakeLogRepo) Create(_ context.Context, entry *domain.TicketLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketLog
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) byAction(action domain.LogAction) []domain.TicketLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketLog
	for _, entry := range r.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*domain.Response
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{responses: map[string]*domain.Response{}}
}

func (r *fakeResponseRepo) Create(_ context.Context, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	response.CreatedAt = time.Now().UTC()
	clone := *response
	r.responses[response.ID] = &clone
	return nil
}

func (r *fakeResponseRepo) GetByID(_ context.Context, id string) (*domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	response, ok := r.responses[id]
	if !ok {
		return nil, util.NewNotFound("response", nil)
	}
	clone := *response
	return &clone, nil
}

func (r *fakeResponseRepo) Update(_ context.Context, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *response
	r.responses[response.ID] = &clone
	return nil
}

func (r *fakeResponseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Response
	for _, response := range r.responses {
		if response.TicketID == ticketID {
			out = append(out, *response)
		}
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	mu       sync.Mutex
	byTicket map[string]*domain.Feedback
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{byTicket: map[string]*domain.Feedback{}}
}

func (r *fakeFeedbackRepo) Create(_ context.Context, fb *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb.CreatedAt = time.Now().UTC()
	clone := *fb
	r.byTicket[fb.TicketID] = &clone
	return nil
}

func (r *fakeFeedbackRepo) GetByTicket(_ context.Context, ticketID string) (*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb, ok := r.byTicket[ticketID]
	if !ok {
		return nil, util.NewNotFound("feedback", nil)
	}
	clone := *fb
	return &clone, nil
}

func (r *fakeFeedbackRepo) Aggregate(_ context.Context) (*repository.FeedbackAggregate, error) {
	return &repository.FeedbackAggregate{}, nil
}

type fakeUserRepo struct{ users []domain.User }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i], nil
		}
	}
	return nil, util.NewNotFound("user", nil)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			return &r.users[i], nil
		}
	}
	return nil, util.NewNotFound("user", nil)
}

type fakeTemplateRepo struct{ templates []domain.MessageTemplate }

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.MessageTemplate) error {
	r.templates = append(r.templates, *template)
	return nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *domain.MessageTemplate) error {
	for i := range r.templates {
		if r.templates[i].ID == template.ID {
			r.templates[i] = *template
			return nil
		}
	}
	return util.NewNotFound("template", nil)
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id string) (*domain.MessageTemplate, error) {
	for i := range r.templates {
		if r.templates[i].ID == id {
			return &r.templates[i], nil
		}
	}
	return nil, util.NewNotFound("template", nil)
}

func (r *fakeTemplateRepo) FindActive(_ context.Context, channelType domain.ChannelType, purpose domain.TemplatePurpose, language string) (*domain.MessageTemplate, error) {
	for i := range r.templates {
		tpl := &r.templates[i]
		if tpl.IsActive && tpl.Purpose == purpose && tpl.Language == language && tpl.ChannelID == string(channelType) {
			return tpl, nil
		}
	}
	return nil, util.NewNotFound("template", nil)
}

func (r *fakeTemplateRepo) ListByChannel(_ context.Context, channelID string) ([]domain.MessageTemplate, error) {
	var out []domain.MessageTemplate
	for _, tpl := range r.templates {
		if tpl.ChannelID == channelID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (b *recordingBus) ofType(eventType events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, event := range b.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// fixture identifiers shared across service tests.
const (
	catComplaintID = "cat-complaint"
	catPSEAID      = "cat-psea"
	prioCritID     = "prio-critical"
	prioMedID      = "prio-medium"
	statusOpenID   = "status-open"
	statusProgID   = "status-progress"
	statusClosedID = "status-closed"
	channelWebID   = "chan-web"
	channelSMSID   = "chan-sms"
	agentID        = "user-agent"
)

func newFixtureService() (*TicketService, *fakeTicketRepo, *fakeLogRepo, *recordingBus) {
	tickets := newFakeTicketRepo()
	logs := &fakeLogRepo{}
	bus := &recordingBus{}

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		CategoryRepo: &fakeCategoryRepo{categories: []domain.Category{
			{ID: catComplaintID, Name: "Complaint"},
			{ID: catPSEAID, Name: "PSEA", IsSensitive: true, RequiresEscalation: true, EscalationContact: "psea-focal@example.org"},
			{ID: "cat-feedback", Name: "Feedback"},
		}},
		PriorityRepo: &fakePriorityRepo{priorities: []domain.Priority{
			{ID: prioCritID, Name: "Critique", Level: 5, SLAHours: 2},
			{ID: prioMedID, Name: "Moyenne", Level: 3, SLAHours: 24},
		}},
		StatusRepo: &fakeStatusRepo{statuses: []domain.Status{
			{ID: statusOpenID, Name: "Ouvert"},
			{ID: statusProgID, Name: "En cours"},
			{ID: statusClosedID, Name: "Fermé", IsFinal: true},
		}},
		ChannelRepo: &fakeChannelRepo{channels: []domain.Channel{
			{ID: channelWebID, Name: "Portail Web", Type: domain.ChannelTypeWeb, IsActive: true},
			{ID: channelSMSID, Name: "SMS", Type: domain.ChannelTypeSMS, IsActive: true},
		}},
		LogRepo:      logs,
		ResponseRepo: newFakeResponseRepo(),
		FeedbackRepo: newFakeFeedbackRepo(),
		UserRepo: &fakeUserRepo{users: []domain.User{
			{ID: agentID, Email: "agent@example.org", FullName: "Awa Traoré", Role: domain.RoleAgent, IsActive: true},
		}},
		Dispatcher: bus,
	})
	return svc, tickets, logs, bus
}
