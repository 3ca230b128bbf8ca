package ticket

import (
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
)

type Type string

const (
	TypeIssue       Type = "Issue"
	TypeEnhancement Type = "Enhancement"
)

var Types = []Type{TypeIssue, TypeEnhancement}

func (t Type) Valid() bool {
	return t == TypeIssue || t == TypeEnhancement
}

type Priority string

const (
	PriorityTopUrgent Priority = "Top Urgent"
	PriorityHigh      Priority = "High"
	PriorityMedium    Priority = "Medium"
	PriorityLow       Priority = "Low"
)

var Priorities = []Priority{PriorityTopUrgent, PriorityHigh, PriorityMedium, PriorityLow}

type Status string

const (
	StatusInProgress  Status = "In Progress"
	StatusUnderReview Status = "Under Review"
	StatusCompleted   Status = "Completed"
	StatusClosed      Status = "Closed"
)

var Statuses = []Status{StatusInProgress, StatusUnderReview, StatusCompleted, StatusClosed}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsOpen reports whether work on the ticket is still pending.
func (s Status) IsOpen() bool {
	return s == StatusInProgress || s == StatusUnderReview
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// transitions lists the allowed next statuses; Closed is terminal.
var transitions = map[Status][]Status{
	StatusInProgress:  {StatusUnderReview},
	StatusUnderReview: {StatusInProgress, StatusCompleted},
	StatusCompleted:   {StatusClosed},
	StatusClosed:      {},
}

// allowedPriorities is keyed by type; Top Urgent is reserved for issues.
var allowedPriorities = map[Type][]Priority{
	TypeIssue:       {PriorityTopUrgent, PriorityHigh, PriorityMedium, PriorityLow},
	TypeEnhancement: {PriorityHigh, PriorityMedium, PriorityLow},
}

func AllowedTransitions(from Status) []Status {
	return transitions[from]
}

func ValidateTransition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return errors.NewInvalidStatusTransition(string(from), string(to))
}

func ValidatePriority(t Type, p Priority) error {
	for _, allowed := range allowedPriorities[t] {
		if allowed == p {
			return nil
		}
	}
	return errors.NewInvalidPriority(string(t), string(p))
}

func ValidateProgress(value int) error {
	if value < 0 || value > 100 || value%10 != 0 {
		return errors.NewInvalidProgress(value)
	}
	return nil
}

type Ticket struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CategoryID   int64      `json:"category_id"`
	TicketType   Type       `json:"ticket_type"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	CreatorID    int64      `json:"created_by"`
	TimelineDate *time.Time `json:"-"`
	Progress     int        `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	CategoryName        string `json:"category_name,omitempty"`
	CreatorName         string `json:"creator_name,omitempty"`
	CreatorOrganization string `json:"creator_organization,omitempty"`
	CommentsCount       int64  `json:"comments_count"`
	FilesCount          int64  `json:"files_count"`
}

// TimelineDateString renders the timeline as YYYY-MM-DD, or "" when unset.
func (t *Ticket) TimelineDateString() string {
	if t.TimelineDate == nil {
		return ""
	}
	return t.TimelineDate.Format("2006-01-02")
}

func (t *Ticket) clone() *Ticket {
	c := *t
	if t.TimelineDate != nil {
		d := *t.TimelineDate
		c.TimelineDate = &d
	}
	return &c
}

func ToDataModel(t *Ticket) *ticketDatamodel.Ticket {
	return &ticketDatamodel.Ticket{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		CategoryID:   t.CategoryID,
		TicketType:   string(t.TicketType),
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		CreatorID:    t.CreatorID,
		TimelineDate: t.TimelineDate,
		Progress:     t.Progress,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func FromDataModel(t *ticketDatamodel.Ticket) *Ticket {
	var timeline *time.Time
	if t.TimelineDate != nil {
		d := t.TimelineDate.UTC()
		timeline = &d
	}
	return &Ticket{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		CategoryID:   t.CategoryID,
		TicketType:   Type(t.TicketType),
		Priority:     Priority(t.Priority),
		Status:       Status(t.Status),
		CreatorID:    t.CreatorID,
		TimelineDate: timeline,
		Progress:     t.Progress,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

func FromView(v *ticketDatamodel.TicketView) *Ticket {
	t := FromDataModel(&v.Ticket)
	t.CategoryName = v.CategoryName
	t.CreatorName = v.CreatorName
	t.CreatorOrganization = v.CreatorOrganization
	t.CommentsCount = v.CommentsCount
	t.FilesCount = v.FilesCount
	return t
}

func FromViewSlice(views []*ticketDatamodel.TicketView) []*Ticket {
	result := make([]*Ticket, len(views))
	for i, v := range views {
		result[i] = FromView(v)
	}
	return result
}
