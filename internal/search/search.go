package search

import (
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
)

const (
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
	MinSuggestionLength    = 2
)

// Filters is an advanced search request. Empty fields do not filter; dates
// are YYYY-MM-DD and DateTo includes the whole day.
type Filters struct {
	Query      string `json:"query"`
	Status     string `json:"status,omitempty"`
	CategoryID int64  `json:"category_id,omitempty"`
	Priority   string `json:"priority,omitempty"`
	TicketType string `json:"ticket_type,omitempty"`
	CreatorID  int64  `json:"creator_id,omitempty"`
	DateFrom   string `json:"date_from,omitempty"`
	DateTo     string `json:"date_to,omitempty"`

	Page pagination.Page `json:"-"`
}

type Result struct {
	Tickets []*ticket.Ticket `json:"tickets"`
	pagination.Meta
}

type SimpleResponse struct {
	Result
	Query string `json:"query"`
}

type AdvancedResponse struct {
	Result
	Filters Filters `json:"filters"`
}

type Suggestion struct {
	Text     string `json:"text"`
	TicketID int64  `json:"ticket_id"`
	Category string `json:"category,omitempty"`
}

type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type CategoryOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreatorOption struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Organization access.Organization `json:"organization"`
}

type FilterOptions struct {
	Categories []CategoryOption  `json:"categories"`
	Statuses   []ticket.Status   `json:"statuses"`
	Priorities []ticket.Priority `json:"priorities"`
	Types      []ticket.Type     `json:"types"`
	Creators   []CreatorOption   `json:"creators"`
}

// normalizeLimit applies the suggestion default and cap.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		return MaxSuggestionLimit
	}
	return limit
}
