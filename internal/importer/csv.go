package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cfrm-service/internal/events"
	"github.com/spec-kit/cfrm-service/internal/repository"
	"github.com/spec-kit/cfrm-service/internal/service"
	util "github.com/spec-kit/cfrm-service/pkg/util"
)

const (
	defaultPriorityName = "Moyenne"
	defaultChannelName  = "Portail Web"
)

// Result summarizes one bulk import: how many rows became tickets, and one
// message per rejected row. A bad row never aborts the rest of the file.
type Result struct {
	ImportedCount int      `json:"imported_count"`
	Errors        []string `json:"errors"`
}

// CSVImporter creates tickets in bulk from a CSV export.
type CSVImporter struct {
	tickets    *service.TicketService
	categories repository.CategoryRepository
	priorities repository.PriorityRepository
	channels   repository.ChannelRepository
	logger     *zap.Logger
}

// NewCSVImporter constructs the importer.
func NewCSVImporter(
	tickets *service.TicketService,
	categories repository.CategoryRepository,
	priorities repository.PriorityRepository,
	channels repository.ChannelRepository,
	logger *zap.Logger,
) *CSVImporter {
	return &CSVImporter{
		tickets:    tickets,
		categories: categories,
		priorities: priorities,
		channels:   channels,
		logger:     logger,
	}
}

// Import reads a header-keyed CSV and creates one ticket per row. Category
// is required per row; priority and channel fall back to defaults when the
// column is empty. Row numbering in error messages counts data rows from 1.
func (imp *CSVImporter) Import(ctx context.Context, actor events.Actor, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, util.NewValidationError("csv file is empty or unreadable", nil)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["title"]; !ok {
		return nil, util.NewValidationError("csv is missing the title column", nil)
	}

	result := &Result{}
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		input, err := imp.rowToInput(ctx, field)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if _, err := imp.tickets.CreateTicket(ctx, actor, *input); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.ImportedCount++
	}

	imp.logger.Info("csv import finished",
		zap.Int("imported", result.ImportedCount),
		zap.Int("rejected", len(result.Errors)))
	return result, nil
}

func (imp *CSVImporter) rowToInput(ctx context.Context, field func(string) string) (*service.TicketCreateInput, error) {
	categoryName := field("category")
	if categoryName == "" {
		return nil, fmt.Errorf("category is required")
	}
	category, err := imp.categories.GetByName(ctx, categoryName)
	if err != nil {
		return nil, fmt.Errorf("unknown category %q", categoryName)
	}

	priorityName := field("priority")
	if priorityName == "" {
		priorityName = defaultPriorityName
	}
	priority, err := imp.priorities.GetByName(ctx, priorityName)
	if err != nil {
		return nil, fmt.Errorf("unknown priority %q", priorityName)
	}

	channelName := field("channel")
	if channelName == "" {
		channelName = defaultChannelName
	}
	channel, err := imp.channels.GetByName(ctx, channelName)
	if err != nil {
		return nil, fmt.Errorf("unknown channel %q", channelName)
	}

	return &service.TicketCreateInput{
		Title:             field("title"),
		Content:           field("content"),
		IsAnonymous:       parseBool(field("is_anonymous")),
		CategoryID:        category.ID,
		PriorityID:        priority.ID,
		ChannelID:         channel.ID,
		SubmitterName:     field("submitter_name"),
		SubmitterPhone:    field("submitter_phone"),
		SubmitterEmail:    field("submitter_email"),
		SubmitterLocation: field("submitter_location"),
	}, nil
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "oui":
		return true
	default:
		return false
	}
}
