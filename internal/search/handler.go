package search

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/transport"
)

type ServiceAPI interface {
	Simple(ctx context.Context, actor access.Actor, query string, page pagination.Page) (*SimpleResponse, error)
	Advanced(ctx context.Context, actor access.Actor, f Filters) (*AdvancedResponse, error)
	Suggestions(ctx context.Context, actor access.Actor, query string, limit int) ([]Suggestion, error)
	FilterOptions(ctx context.Context, actor access.Actor) (*FilterOptions, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) SearchTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Simple(r.Context(), actor, r.URL.Query().Get("q"), h.ParsePage(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Advanced(r.Context(), actor, h.parseFilters(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	suggestions, err := h.Service.Suggestions(r.Context(), actor, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.Logger.Error("Suggestions: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	opts, err := h.Service.FilterOptions(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, opts)
}

// parseFilters accepts both the long and the short spelling of the category,
// type and creator parameters.
func (h *Handler) parseFilters(r *http.Request) Filters {
	values := r.URL.Query()
	first := func(names ...string) string {
		for _, n := range names {
			if v := strings.TrimSpace(values.Get(n)); v != "" {
				return v
			}
		}
		return ""
	}
	id := func(names ...string) int64 {
		v, err := strconv.ParseInt(first(names...), 10, 64)
		if err != nil {
			return 0
		}
		return v
	}

	return Filters{
		Query:      values.Get("q"),
		Status:     values.Get("status"),
		CategoryID: id("category_id", "category"),
		Priority:   values.Get("priority"),
		TicketType: first("ticket_type", "type"),
		CreatorID:  id("created_by", "creator"),
		DateFrom:   values.Get("date_from"),
		DateTo:     values.Get("date_to"),
		Page:       h.ParsePage(r),
	}
}
