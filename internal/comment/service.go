package comment

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
)

// Repository is the comment store. Transaction runs fn against a repository
// bound to one database transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	// TicketCreator returns the creator of a ticket and whether it exists.
	TicketCreator(ctx context.Context, ticketID int64) (int64, bool, error)
	// ListForTicket returns the ticket's comments oldest first.
	ListForTicket(ctx context.Context, ticketID int64) ([]*Comment, error)
	// ListForAuthor returns the author's comments on tickets in scope, newest first.
	ListForAuthor(ctx context.Context, scope access.Scope, authorID int64, page pagination.Page) ([]*Comment, int64, error)
	GetByID(ctx context.Context, id int64) (*Comment, error)
	Create(ctx context.Context, c *Comment) error
	UpdateContent(ctx context.Context, id int64, content string, now time.Time) error
	Delete(ctx context.Context, id int64) error
	// TouchTicket bumps the parent ticket's updated_at.
	TouchTicket(ctx context.Context, ticketID int64, now time.Time) error
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

var (
	errTicketNotFound  = errors.NewNotFoundError("Ticket not found", errors.ErrCodeNotFound)
	errCommentNotFound = errors.NewNotFoundError("Comment not found", errors.ErrCodeNotFound)
)

func (s *Service) ListForTicket(ctx context.Context, actor access.Actor, ticketID int64) ([]*Comment, error) {
	if err := s.visibleTicket(ctx, s.repo, actor, ticketID); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListForTicket(ctx, ticketID)
	if err != nil {
		s.logger.Error("failed to list comments", "error", err, "ticket_id", ticketID)
		return nil, errors.NewStorageError("failed to list comments", err)
	}
	return comments, nil
}

// Add comments on a visible ticket and bumps the ticket's updated_at in the
// same transaction.
func (s *Service) Add(ctx context.Context, actor access.Actor, ticketID int64, dto ContentDTO) (*Comment, error) {
	dto.Content = validation.SanitizeText(dto.Content)
	if err := validation.ValidateStruct(dto); err != nil {
		return nil, err
	}

	now := s.nowFunc()
	c := &Comment{
		TicketID:  ticketID,
		AuthorID:  actor.ID,
		Content:   dto.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := s.visibleTicket(ctx, tx, actor, ticketID); err != nil {
			return err
		}
		if err := tx.Create(ctx, c); err != nil {
			return errors.NewStorageError("failed to add comment", err)
		}
		if err := tx.TouchTicket(ctx, ticketID, now); err != nil {
			return errors.NewStorageError("failed to touch ticket", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("comment add failed", "error", err, "ticket_id", ticketID, "user_id", actor.ID)
		return nil, err
	}

	s.logger.Info("comment added", "comment_id", c.ID, "ticket_id", ticketID, "user_id", actor.ID)
	return s.reload(ctx, c), nil
}

// Get reads a comment. Comments on tickets the actor cannot see read as not
// found.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Comment, error) {
	return s.load(ctx, actor, id)
}

// Update edits a comment's content. Only the author may edit.
func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, dto ContentDTO) (*Comment, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEditComment(actor, c.AuthorID) {
		s.logger.Warn("comment edit denied", "comment_id", id, "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	dto.Content = validation.SanitizeText(dto.Content)
	if err := validation.ValidateStruct(dto); err != nil {
		return nil, err
	}

	now := s.nowFunc()
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.UpdateContent(ctx, id, dto.Content, now); err != nil {
			return errors.NewStorageError("failed to update comment", err)
		}
		if err := tx.TouchTicket(ctx, c.TicketID, now); err != nil {
			return errors.NewStorageError("failed to touch ticket", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("comment update failed", "error", err, "comment_id", id)
		return nil, err
	}

	c.Content = dto.Content
	c.UpdatedAt = now
	s.logger.Info("comment updated", "comment_id", id, "user_id", actor.ID)
	return c, nil
}

// Delete removes a comment. Authors and admins may delete.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanDeleteComment(actor, c.AuthorID) {
		s.logger.Warn("comment delete denied", "comment_id", id, "user_id", actor.ID)
		return errors.ErrAccessDenied
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.TouchTicket(ctx, c.TicketID, s.nowFunc()); err != nil {
			return errors.NewStorageError("failed to touch ticket", err)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return errors.NewStorageError("failed to delete comment", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("comment delete failed", "error", err, "comment_id", id)
		return err
	}

	s.logger.Info("comment deleted", "comment_id", id, "ticket_id", c.TicketID, "user_id", actor.ID)
	return nil
}

// ListForUser lists one author's comments. Users may list their own; admins
// may list anyone's, still limited to tickets they can see.
func (s *Service) ListForUser(ctx context.Context, actor access.Actor, userID int64, page pagination.Page) ([]*Comment, int64, error) {
	if !access.CanViewUserContent(actor, userID) {
		s.logger.Warn("user comment listing denied", "target_user_id", userID, "user_id", actor.ID)
		return nil, 0, errors.ErrAccessDenied
	}

	comments, total, err := s.repo.ListForAuthor(ctx, access.VisibilityFor(actor), userID, page.Normalize())
	if err != nil {
		s.logger.Error("failed to list user comments", "error", err, "target_user_id", userID)
		return nil, 0, errors.NewStorageError("failed to list user comments", err)
	}
	return comments, total, nil
}

func (s *Service) visibleTicket(ctx context.Context, repo Repository, actor access.Actor, ticketID int64) error {
	creatorID, found, err := repo.TicketCreator(ctx, ticketID)
	if err != nil {
		s.logger.Error("failed to load ticket", "error", err, "ticket_id", ticketID)
		return errors.NewStorageError("failed to load ticket", err)
	}
	if !found || !access.CanViewTicket(actor, creatorID) {
		return errTicketNotFound
	}
	return nil
}

func (s *Service) load(ctx context.Context, actor access.Actor, id int64) (*Comment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get comment", "error", err, "comment_id", id)
		return nil, errors.NewStorageError("failed to get comment", err)
	}
	if c == nil || !access.CanViewTicket(actor, c.TicketCreatorID()) {
		return nil, errCommentNotFound
	}
	return c, nil
}

func (s *Service) reload(ctx context.Context, c *Comment) *Comment {
	fresh, err := s.repo.GetByID(ctx, c.ID)
	if err != nil || fresh == nil {
		s.logger.Warn("failed to reload comment after write", "error", err, "comment_id", c.ID)
		return c
	}
	return fresh
}
