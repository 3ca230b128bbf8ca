package ticket

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
)

type CreateTicketDTO struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	CategoryID  int64  `json:"category_id" validate:"required"`
	TicketType  string `json:"ticket_type" validate:"required,oneof=Issue Enhancement"`
	Priority    string `json:"priority" validate:"required"`
}

// Query is the filter set shared by ticket listing and search. Empty fields
// do not filter.
type Query struct {
	Text        string
	Status      Status
	CategoryID  int64
	Priority    Priority
	TicketType  Type
	CreatorID   int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        pagination.Page
}

type ListResponse struct {
	Tickets []*Ticket `json:"tickets"`
	pagination.Meta
}

type StatsResponse struct {
	Total      int64              `json:"total"`
	ByStatus   map[Status]int64   `json:"by_status"`
	ByPriority map[Priority]int64 `json:"by_priority"`
	ByType     map[Type]int64     `json:"by_type"`
}

// MarshalJSON renders the timeline date as YYYY-MM-DD.
func (t Ticket) MarshalJSON() ([]byte, error) {
	type alias Ticket
	var timeline *string
	if s := t.TimelineDateString(); s != "" {
		timeline = &s
	}
	return json.Marshal(struct {
		alias
		TimelineDate *string `json:"timeline_date"`
	}{
		alias:        alias(t),
		TimelineDate: timeline,
	})
}
