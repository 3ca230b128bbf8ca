package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
)

// Repository reads the visible ticket set for reporting. Every method takes
// the caller's scope.
type Repository interface {
	Facts(ctx context.Context, scope access.Scope) ([]Fact, error)
	// RecentTicketEvents returns the newest ticket creations.
	RecentTicketEvents(ctx context.Context, scope access.Scope, limit int) ([]Event, error)
	// RecentCommentEvents returns the newest comments on tickets in scope.
	RecentCommentEvents(ctx context.Context, scope access.Scope, limit int) ([]Event, error)
}

// TicketSearcher lists full ticket projections, newest first.
type TicketSearcher interface {
	Search(ctx context.Context, scope access.Scope, q ticket.Query) ([]*ticket.Ticket, int64, error)
}

type Service struct {
	repo    Repository
	tickets TicketSearcher
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, tickets TicketSearcher, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		tickets: tickets,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) facts(ctx context.Context, actor access.Actor) ([]Fact, error) {
	facts, err := s.repo.Facts(ctx, access.VisibilityFor(actor))
	if err != nil {
		s.logger.Error("failed to load dashboard facts", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to load dashboard data", err)
	}
	return facts, nil
}

// Stats reports counts, resolution time and this month's activity. The recent
// ticket list is an enrichment and is empty if it cannot be loaded.
func (s *Service) Stats(ctx context.Context, actor access.Actor) (*StatsResponse, error) {
	facts, err := s.facts(ctx, actor)
	if err != nil {
		return nil, err
	}

	scope := access.VisibilityFor(actor)
	recent, _, err := s.tickets.Search(ctx, scope, ticket.Query{Page: pagination.New(1, recentTickets)})
	if err != nil {
		s.logger.Warn("failed to load recent tickets", "error", err, "user_id", actor.ID)
		recent = []*ticket.Ticket{}
	}

	since := monthStart(s.nowFunc())
	return &StatsResponse{
		TotalTickets:              int64(len(facts)),
		TicketsByStatus:           CountByStatus(facts),
		TicketsByCategory:         CountByCategory(facts),
		TicketsByPriority:         CountByPriority(facts),
		TicketsByType:             CountByType(facts),
		AverageResolutionTimeDays: AverageResolutionDays(facts),
		RecentTickets:             recent,
		TicketsThisMonth:          CreatedSince(facts, since),
		CompletedThisMonth:        CompletedSince(facts, since),
	}, nil
}

func (s *Service) Charts(ctx context.Context, actor access.Actor) (*ChartsResponse, error) {
	facts, err := s.facts(ctx, actor)
	if err != nil {
		return nil, err
	}

	return &ChartsResponse{
		StatusChart:          statusChart(CountByStatus(facts)),
		CategoryChart:        categoryChart(CountByCategory(facts)),
		PriorityChart:        priorityChart(CountByPriority(facts)),
		MonthlyTrends:        MonthlyTrends(facts, s.nowFunc()),
		ProgressDistribution: ProgressDistribution(facts),
	}, nil
}

// ActivityFeed merges the newest ticket creations and comments, newest first.
func (s *Service) ActivityFeed(ctx context.Context, actor access.Actor) ([]Activity, error) {
	scope := access.VisibilityFor(actor)

	created, err := s.repo.RecentTicketEvents(ctx, scope, activityPerKind)
	if err != nil {
		s.logger.Error("failed to load ticket activity", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to load activity", err)
	}
	commented, err := s.repo.RecentCommentEvents(ctx, scope, activityPerKind)
	if err != nil {
		s.logger.Error("failed to load comment activity", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to load activity", err)
	}

	activities := make([]Activity, 0, len(created)+len(commented))
	for _, e := range created {
		activities = append(activities, Activity{
			Type:        ActivityTicketCreated,
			Timestamp:   e.At.UTC(),
			Description: fmt.Sprintf("Ticket %q was created", e.TicketTitle),
			TicketID:    e.TicketID,
			UserName:    e.UserName,
		})
	}
	for _, e := range commented {
		activities = append(activities, Activity{
			Type:        ActivityCommentAdded,
			Timestamp:   e.At.UTC(),
			Description: fmt.Sprintf("Comment added to ticket %q", e.TicketTitle),
			TicketID:    e.TicketID,
			UserName:    e.UserName,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > activityLimit {
		activities = activities[:activityLimit]
	}
	return activities, nil
}

func (s *Service) Summary(ctx context.Context, actor access.Actor) (*SummaryResponse, error) {
	facts, err := s.facts(ctx, actor)
	if err != nil {
		return nil, err
	}

	summary := &SummaryResponse{TotalTickets: int64(len(facts))}
	for _, f := range facts {
		status := ticket.Status(f.Status)
		if status.IsOpen() {
			summary.OpenTickets++
		}
		if status == ticket.StatusCompleted {
			summary.CompletedTickets++
		}
		switch ticket.Priority(f.Priority) {
		case ticket.PriorityTopUrgent, ticket.PriorityHigh:
			summary.HighPriorityTickets++
		}
	}
	summary.CompletionRate = CompletionRate(summary.CompletedTickets, summary.TotalTickets)
	summary.OverdueTickets = OverdueCount(facts, s.nowFunc())
	return summary, nil
}
