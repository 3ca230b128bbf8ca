package ticket

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
	"github.com/frahmantamala/support-ticketing/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, actor access.Actor, q Query) ([]*Ticket, int64, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*Ticket, error)
	Create(ctx context.Context, actor access.Actor, dto CreateTicketDTO) (*Ticket, error)
	Update(ctx context.Context, actor access.Actor, id int64, changes Changes) (*Ticket, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	Stats(ctx context.Context, actor access.Actor) (*StatsResponse, error)
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

// ParseQuery reads the shared ticket filters from the query string.
func ParseQuery(h *transport.BaseHandler, r *http.Request) (Query, error) {
	values := r.URL.Query()
	q := Query{
		Text:       strings.TrimSpace(values.Get("q")),
		Status:     Status(values.Get("status")),
		CategoryID: h.QueryInt64(r, "category_id"),
		Priority:   Priority(values.Get("priority")),
		TicketType: Type(values.Get("ticket_type")),
		CreatorID:  h.QueryInt64(r, "created_by"),
		Page:       h.ParsePage(r),
	}

	if raw := strings.TrimSpace(values.Get("date_from")); raw != "" {
		from, err := validation.ParseDate("date_from", raw)
		if err != nil {
			return Query{}, err
		}
		q.CreatedFrom = &from
	}
	if raw := strings.TrimSpace(values.Get("date_to")); raw != "" {
		to, err := validation.ParseDate("date_to", raw)
		if err != nil {
			return Query{}, err
		}
		end := validation.EndOfDay(to)
		q.CreatedTo = &end
	}
	return q, nil
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	q, err := ParseQuery(h.BaseHandler, r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tickets, total, err := h.Service.List(r.Context(), actor, q)
	if err != nil {
		h.Logger.Error("ListTickets: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Tickets: tickets,
		Meta:    pagination.NewMeta(q.Page, total),
	})
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	var dto CreateTicketDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	t, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateTicket: ticket created", "ticket_id", t.ID, "user_id", actor.ID)
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	t, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	var changes Changes
	if !h.DecodeJSON(w, r, &changes) {
		return
	}

	t, err := h.Service.Update(r.Context(), actor, id, changes)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteMessage(w, http.StatusOK, "Ticket deleted successfully")
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.Stats(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}
