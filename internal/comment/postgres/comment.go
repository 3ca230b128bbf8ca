package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/comment"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	"gorm.io/gorm"
)

const viewColumns = `comments.*,
	users.name AS author_name,
	users.organization AS author_organization,
	tickets.title AS ticket_title,
	tickets.creator_id AS ticket_creator_id`

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) comment.Repository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Transaction(ctx context.Context, fn func(tx comment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CommentRepository{db: tx})
	})
}

func (r *CommentRepository) view(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("comments").
		Select(viewColumns).
		Joins("JOIN tickets ON tickets.id = comments.ticket_id").
		Joins("LEFT JOIN users ON users.id = comments.author_id")
}

func (r *CommentRepository) TicketCreator(ctx context.Context, ticketID int64) (int64, bool, error) {
	var creators []int64
	err := r.db.WithContext(ctx).
		Model(&ticketDatamodel.Ticket{}).
		Where("id = ?", ticketID).
		Limit(1).
		Pluck("creator_id", &creators).Error
	if err != nil || len(creators) == 0 {
		return 0, false, err
	}
	return creators[0], true, nil
}

func (r *CommentRepository) ListForTicket(ctx context.Context, ticketID int64) ([]*comment.Comment, error) {
	var rows []*commentDatamodel.CommentView
	err := r.view(ctx).
		Where("comments.ticket_id = ?", ticketID).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return comment.FromViewSlice(rows), nil
}

func (r *CommentRepository) ListForAuthor(ctx context.Context, scope access.Scope, authorID int64, page pagination.Page) ([]*comment.Comment, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("comments.author_id = ?", authorID)
		if scope.Restricted() {
			db = db.Where("tickets.creator_id = ?", scope.CreatorID())
		}
		return db
	}

	var total int64
	countQuery := r.db.WithContext(ctx).
		Model(&commentDatamodel.Comment{}).
		Joins("JOIN tickets ON tickets.id = comments.ticket_id")
	if err := filter(countQuery).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*commentDatamodel.CommentView
	err := filter(r.view(ctx)).
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return comment.FromViewSlice(rows), total, nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*comment.Comment, error) {
	var rows []*commentDatamodel.CommentView
	if err := r.view(ctx).Where("comments.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return comment.FromView(rows[0]), nil
}

func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	model := comment.ToDataModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	c.ID = model.ID
	return nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id int64, content string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&commentDatamodel.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": now,
		}).Error
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&commentDatamodel.Comment{}).Error
}

func (r *CommentRepository) TouchTicket(ctx context.Context, ticketID int64, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&ticketDatamodel.Ticket{}).
		Where("id = ?", ticketID).
		Update("updated_at", now).Error
}
