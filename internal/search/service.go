package search

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/category"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	"github.com/frahmantamala/support-ticketing/internal/user"
)

// TicketFinder is the subset of the ticket store search needs.
type TicketFinder interface {
	Search(ctx context.Context, scope access.Scope, q ticket.Query) ([]*ticket.Ticket, int64, error)
	Suggest(ctx context.Context, scope access.Scope, text string, limit int) ([]*ticket.Ticket, error)
}

type CategoryLister interface {
	List(ctx context.Context, actor access.Actor, includeInactive bool) ([]*category.Category, error)
}

type UserLister interface {
	ListActive(ctx context.Context) ([]*user.User, error)
}

type Service struct {
	tickets    TicketFinder
	categories CategoryLister
	users      UserLister
	logger     *slog.Logger
}

func NewService(tickets TicketFinder, categories CategoryLister, users UserLister, logger *slog.Logger) *Service {
	return &Service{
		tickets:    tickets,
		categories: categories,
		users:      users,
		logger:     logger,
	}
}

// Simple matches the query against title or description, case-insensitively,
// within the actor's visible tickets.
func (s *Service) Simple(ctx context.Context, actor access.Actor, query string, page pagination.Page) (*SimpleResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationFieldError("q", "search query is required", errors.ErrCodeValidationFailed)
	}

	page = page.Normalize()
	result, err := s.run(ctx, actor, ticket.Query{Text: query, Page: page})
	if err != nil {
		return nil, err
	}
	return &SimpleResponse{Result: *result, Query: query}, nil
}

// Advanced combines the text match with exact filters and a creation date
// range. The creator filter only applies for actors allowed to use it.
func (s *Service) Advanced(ctx context.Context, actor access.Actor, f Filters) (*AdvancedResponse, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Page = f.Page.Normalize()
	if !access.CanFilterByCreator(actor) {
		f.CreatorID = 0
	}

	q := ticket.Query{
		Text:       f.Query,
		Status:     ticket.Status(strings.TrimSpace(f.Status)),
		CategoryID: f.CategoryID,
		Priority:   ticket.Priority(strings.TrimSpace(f.Priority)),
		TicketType: ticket.Type(strings.TrimSpace(f.TicketType)),
		CreatorID:  f.CreatorID,
		Page:       f.Page,
	}
	if raw := strings.TrimSpace(f.DateFrom); raw != "" {
		from, err := validation.ParseDate("date_from", raw)
		if err != nil {
			return nil, err
		}
		q.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(f.DateTo); raw != "" {
		to, err := validation.ParseDate("date_to", raw)
		if err != nil {
			return nil, err
		}
		end := validation.EndOfDay(to)
		q.CreatedTo = &end
	}

	result, err := s.run(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	return &AdvancedResponse{Result: *result, Filters: f}, nil
}

// Suggestions returns visible ticket titles containing the query, newest
// first. Queries shorter than two characters yield no suggestions.
func (s *Service) Suggestions(ctx context.Context, actor access.Actor, query string, limit int) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSuggestionLength {
		return []Suggestion{}, nil
	}

	tickets, err := s.tickets.Suggest(ctx, access.VisibilityFor(actor), query, normalizeLimit(limit))
	if err != nil {
		s.logger.Error("failed to load suggestions", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to load suggestions", err)
	}

	suggestions := make([]Suggestion, 0, len(tickets))
	for _, t := range tickets {
		suggestions = append(suggestions, Suggestion{Text: t.Title, TicketID: t.ID, Category: t.CategoryName})
	}
	return suggestions, nil
}

// FilterOptions lists the values the advanced search accepts. Creators are
// only listed for actors allowed to filter by creator.
func (s *Service) FilterOptions(ctx context.Context, actor access.Actor) (*FilterOptions, error) {
	categories, err := s.categories.List(ctx, actor, false)
	if err != nil {
		return nil, err
	}

	opts := &FilterOptions{
		Categories: make([]CategoryOption, 0, len(categories)),
		Statuses:   ticket.Statuses,
		Priorities: ticket.Priorities,
		Types:      ticket.Types,
		Creators:   []CreatorOption{},
	}
	for _, c := range categories {
		opts.Categories = append(opts.Categories, CategoryOption{ID: c.ID, Name: c.Name})
	}

	if access.CanFilterByCreator(actor) {
		users, err := s.users.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			opts.Creators = append(opts.Creators, CreatorOption{ID: u.ID, Name: u.Name, Organization: u.Organization})
		}
	}
	return opts, nil
}

func (s *Service) run(ctx context.Context, actor access.Actor, q ticket.Query) (*Result, error) {
	tickets, total, err := s.tickets.Search(ctx, access.VisibilityFor(actor), q)
	if err != nil {
		s.logger.Error("ticket search failed", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("ticket search failed", err)
	}
	return &Result{Tickets: tickets, Meta: pagination.NewMeta(q.Page, total)}, nil
}
