package dashboard

import (
	"time"

	"github.com/frahmantamala/support-ticketing/internal/ticket"
)

type StatsResponse struct {
	TotalTickets              int64                     `json:"total_tickets"`
	TicketsByStatus           map[ticket.Status]int64   `json:"tickets_by_status"`
	TicketsByCategory         map[string]int64          `json:"tickets_by_category"`
	TicketsByPriority         map[ticket.Priority]int64 `json:"tickets_by_priority"`
	TicketsByType             map[ticket.Type]int64     `json:"tickets_by_type"`
	AverageResolutionTimeDays float64                   `json:"average_resolution_time_days"`
	RecentTickets             []*ticket.Ticket          `json:"recent_tickets"`
	TicketsThisMonth          int64                     `json:"tickets_this_month"`
	CompletedThisMonth        int64                     `json:"completed_this_month"`
}

type ChartsResponse struct {
	StatusChart          []NamedValue     `json:"status_chart"`
	CategoryChart        []NamedValue     `json:"category_chart"`
	PriorityChart        []NamedValue     `json:"priority_chart"`
	MonthlyTrends        []MonthTrend     `json:"monthly_trends"`
	ProgressDistribution map[string]int64 `json:"progress_distribution"`
}

type ActivityType string

const (
	ActivityTicketCreated ActivityType = "ticket_created"
	ActivityCommentAdded  ActivityType = "comment_added"
)

// Event is a raw ticket or comment creation read from the store.
type Event struct {
	TicketID    int64     `db:"ticket_id"`
	TicketTitle string    `db:"ticket_title"`
	UserName    string    `db:"user_name"`
	At          time.Time `db:"at"`
}

type Activity struct {
	Type        ActivityType `json:"type"`
	Timestamp   time.Time    `json:"timestamp"`
	Description string       `json:"description"`
	TicketID    int64        `json:"ticket_id"`
	UserName    string       `json:"user_name"`
}

type ActivityResponse struct {
	Activities []Activity `json:"activities"`
}

type SummaryResponse struct {
	TotalTickets        int64   `json:"total_tickets"`
	OpenTickets         int64   `json:"open_tickets"`
	CompletedTickets    int64   `json:"completed_tickets"`
	HighPriorityTickets int64   `json:"high_priority_tickets"`
	CompletionRate      float64 `json:"completion_rate"`
	OverdueTickets      int64   `json:"overdue_tickets"`
}
