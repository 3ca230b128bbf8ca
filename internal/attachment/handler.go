package attachment

import (
	"context"
	stderrors "errors"
	"mime"
	"net/http"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/transport"
)

// multipartOverhead is the allowance for multipart boundaries and headers on
// top of the file itself.
const multipartOverhead = 1 << 20

type ServiceAPI interface {
	MaxFileSize() int64
	Upload(ctx context.Context, actor access.Actor, ticketID int64, upload Upload) (*File, error)
	ListForTicket(ctx context.Context, actor access.Actor, ticketID int64) ([]*File, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*File, error)
	Download(ctx context.Context, actor access.Actor, id int64) (*Download, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	ListForUser(ctx context.Context, actor access.Actor, userID int64, page pagination.Page) ([]*File, int64, error)
	Stats(ctx context.Context, actor access.Actor) (*Stats, error)
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

// UploadFile accepts a multipart form with the file in the "file" field.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	maxSize := h.Service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			h.HandleServiceError(w, errors.NewFileTooLarge(maxSize))
		case stderrors.Is(err, http.ErrMissingFile):
			h.HandleServiceError(w, errors.NewValidationFieldError("file", "no file provided", errors.ErrCodeValidationFailed))
		default:
			h.Logger.Warn("invalid multipart upload", "error", err, "ticket_id", ticketID)
			h.HandleServiceError(w, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed))
		}
		return
	}
	defer file.Close()

	f, err := h.Service.Upload(r.Context(), actor, ticketID, Upload{
		Filename: header.Filename,
		Content:  file,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, UploadResponse{Message: "File uploaded successfully", File: f})
}

func (h *Handler) ListTicketFiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	ticketID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	files, err := h.Service.ListForTicket(r.Context(), actor, ticketID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Files: files})
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	f, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	id, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	dl, err := h.Service.Download(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer dl.Content.Close()

	w.Header().Set("Content-Type", dl.File.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": dl.File.OriginalFilename,
	}))
	http.ServeContent(w, r, dl.File.OriginalFilename, dl.File.UploadedAt, dl.Content)
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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
	h.WriteMessage(w, http.StatusOK, "File deleted successfully")
}

func (h *Handler) ListUserFiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	userID, ok := h.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	page := h.ParsePage(r)
	files, total, err := h.Service.ListForUser(r.Context(), actor, userID, page)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UserFilesResponse{
		Files: files,
		Meta:  pagination.NewMeta(page, total),
	})
}

func (h *Handler) FileStats(w http.ResponseWriter, r *http.Request) {
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
