package comment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/transport"
)

type ServiceAPI interface {
	ListForTicket(ctx context.Context, actor access.Actor, ticketID int64) ([]*Comment, error)
	Add(ctx context.Context, actor access.Actor, ticketID int64, dto ContentDTO) (*Comment, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*Comment, error)
	Update(ctx context.Context, actor access.Actor, id int64, dto ContentDTO) (*Comment, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	ListForUser(ctx context.Context, actor access.Actor, userID int64, page pagination.Page) ([]*Comment, int64, error)
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

func (h *Handler) ListTicketComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.Service.ListForTicket(r.Context(), actor, ticketID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Comments: comments})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	var dto ContentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	c, err := h.Service.Add(r.Context(), actor, ticketID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	var dto ContentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	c, err := h.Service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
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
	h.WriteMessage(w, http.StatusOK, "Comment deleted successfully")
}

func (h *Handler) ListUserComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	userID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	page := h.ParsePage(r)
	comments, total, err := h.Service.ListForUser(r.Context(), actor, userID, page)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UserCommentsResponse{
		Comments: comments,
		Meta:     pagination.NewMeta(page, total),
	})
}
