package ticket

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
)

// AttachmentRef identifies stored bytes that belong to a ticket.
type AttachmentRef struct {
	TicketID       int64
	StoredFilename string
}

// Repository is the ticket store. Transaction runs fn against a repository
// bound to one database transaction; every method must be called on that
// transactional repository inside fn.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	Search(ctx context.Context, scope access.Scope, q Query) ([]*Ticket, int64, error)
	Suggest(ctx context.Context, scope access.Scope, text string, limit int) ([]*Ticket, error)
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	GetForUpdate(ctx context.Context, id int64) (*Ticket, error)
	Create(ctx context.Context, t *Ticket) error
	// UpdateIfStatus writes t only while the stored status still equals
	// expected and reports whether a row was written.
	UpdateIfStatus(ctx context.Context, t *Ticket, expected Status) (bool, error)
	// Delete removes the ticket with its comments and file rows and returns
	// the attachments whose bytes must be removed afterwards.
	Delete(ctx context.Context, id int64) ([]AttachmentRef, bool, error)
	Stats(ctx context.Context, scope access.Scope) (*StatsResponse, error)
	CategoryChecker
}

// FileRemover deletes stored attachment bytes.
type FileRemover interface {
	Delete(ticketID int64, storedFilename string) error
}

type Service struct {
	repo    Repository
	files   FileRemover
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, files FileRemover, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

var errTicketNotFound = errors.NewNotFoundError("Ticket not found", errors.ErrCodeNotFound)

func (s *Service) List(ctx context.Context, actor access.Actor, q Query) ([]*Ticket, int64, error) {
	if !access.CanFilterByCreator(actor) {
		q.CreatorID = 0
	}
	q.Page = q.Page.Normalize()

	tickets, total, err := s.repo.Search(ctx, access.VisibilityFor(actor), q)
	if err != nil {
		s.logger.Error("failed to list tickets", "error", err, "user_id", actor.ID)
		return nil, 0, errors.NewStorageError("failed to list tickets", err)
	}
	return tickets, total, nil
}

// Get returns the ticket when the actor can see it. Tickets outside the
// actor's visibility read as not found.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get ticket", "error", err, "ticket_id", id)
		return nil, errors.NewStorageError("failed to get ticket", err)
	}
	if t == nil || !access.CanViewTicket(actor, t.CreatorID) {
		return nil, errTicketNotFound
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, actor access.Actor, dto CreateTicketDTO) (*Ticket, error) {
	dto.Title = validation.SanitizeText(dto.Title)
	dto.Description = validation.SanitizeText(dto.Description)
	if err := validation.ValidateStruct(dto); err != nil {
		s.logger.Warn("ticket validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}
	if err := ValidatePriority(Type(dto.TicketType), Priority(dto.Priority)); err != nil {
		return nil, err
	}

	ok, err := s.repo.CategoryIsActive(ctx, dto.CategoryID)
	if err != nil {
		s.logger.Error("failed to check category", "error", err, "category_id", dto.CategoryID)
		return nil, errors.NewStorageError("failed to check category", err)
	}
	if !ok {
		return nil, errors.NewInvalidCategory(dto.CategoryID)
	}

	now := s.nowFunc()
	t := &Ticket{
		Title:       dto.Title,
		Description: dto.Description,
		CategoryID:  dto.CategoryID,
		TicketType:  Type(dto.TicketType),
		Priority:    Priority(dto.Priority),
		Status:      StatusInProgress,
		CreatorID:   actor.ID,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create ticket", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to create ticket", err)
	}

	s.logger.Info("ticket created", "ticket_id", t.ID, "user_id", actor.ID, "priority", t.Priority)
	return s.reload(ctx, t)
}

// Update applies changes inside one transaction. The ticket is re-read under
// a row lock and written with a status compare-and-set, so two concurrent
// transitions from the same status cannot both succeed.
func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, changes Changes) (*Ticket, error) {
	if changes.IsEmpty() {
		return nil, errors.NewValidationError("no fields to update", errors.ErrCodeValidationFailed)
	}

	var updated *Ticket
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return errors.NewStorageError("failed to load ticket", err)
		}
		if current == nil || !access.CanViewTicket(actor, current.CreatorID) {
			return errTicketNotFound
		}

		next, err := ApplyUpdate(ctx, current, actor, changes, tx, s.nowFunc())
		if err != nil {
			return err
		}

		written, err := tx.UpdateIfStatus(ctx, next, current.Status)
		if err != nil {
			return errors.NewStorageError("failed to update ticket", err)
		}
		if !written {
			return errors.NewInvalidStatusTransition(string(current.Status), string(next.Status))
		}
		updated = next
		return nil
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeStorageFailure {
			s.logger.Error("ticket update failed", "error", err, "ticket_id", id, "user_id", actor.ID)
		} else {
			s.logger.Warn("ticket update rejected", "error", err, "ticket_id", id, "user_id", actor.ID)
		}
		return nil, err
	}

	s.logger.Info("ticket updated", "ticket_id", id, "user_id", actor.ID, "status", updated.Status)
	return s.reload(ctx, updated)
}

// Delete removes the ticket, its comments and its files. Attachment bytes are
// removed after the rows are committed; a failure there leaves a leaked file
// that is logged but does not fail the delete.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if !access.CanDeleteTicket(actor) {
		s.logger.Warn("ticket delete denied", "ticket_id", id, "user_id", actor.ID)
		return errors.ErrAccessDenied
	}

	var refs []AttachmentRef
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		removed, found, err := tx.Delete(ctx, id)
		if err != nil {
			return errors.NewStorageError("failed to delete ticket", err)
		}
		if !found {
			return errTicketNotFound
		}
		refs = removed
		return nil
	})
	if err != nil {
		s.logger.Error("ticket delete failed", "error", err, "ticket_id", id)
		return err
	}

	for _, ref := range refs {
		if err := s.files.Delete(ref.TicketID, ref.StoredFilename); err != nil {
			s.logger.Error("leaked attachment file after ticket delete",
				"error", err,
				"ticket_id", ref.TicketID,
				"stored_filename", ref.StoredFilename)
		}
	}

	s.logger.Info("ticket deleted", "ticket_id", id, "user_id", actor.ID, "files", len(refs))
	return nil
}

func (s *Service) Stats(ctx context.Context, actor access.Actor) (*StatsResponse, error) {
	stats, err := s.repo.Stats(ctx, access.VisibilityFor(actor))
	if err != nil {
		s.logger.Error("failed to compute ticket stats", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to compute ticket stats", err)
	}
	return stats, nil
}

// reload fetches the joined projection after a write; the written value is
// returned if the read fails.
func (s *Service) reload(ctx context.Context, t *Ticket) (*Ticket, error) {
	fresh, err := s.repo.GetByID(ctx, t.ID)
	if err != nil || fresh == nil {
		s.logger.Warn("failed to reload ticket after write", "error", err, "ticket_id", t.ID)
		return t, nil
	}
	return fresh, nil
}
