package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/support-ticketing/internal/access"
	attachmentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/attachment"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const viewColumns = `tickets.*,
	categories.name AS category_name,
	users.name AS creator_name,
	users.organization AS creator_organization,
	(SELECT COUNT(*) FROM comments WHERE comments.ticket_id = tickets.id) AS comments_count,
	(SELECT COUNT(*) FROM files WHERE files.ticket_id = tickets.id) AS files_count`

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) ticket.Repository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Transaction(ctx context.Context, fn func(tx ticket.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TicketRepository{db: tx})
	})
}

func (r *TicketRepository) view(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("tickets").
		Select(viewColumns).
		Joins("LEFT JOIN categories ON categories.id = tickets.category_id").
		Joins("LEFT JOIN users ON users.id = tickets.creator_id")
}

func applyScope(db *gorm.DB, scope access.Scope) *gorm.DB {
	if scope.Restricted() {
		return db.Where("tickets.creator_id = ?", scope.CreatorID())
	}
	return db
}

func applyQuery(db *gorm.DB, q ticket.Query) *gorm.DB {
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + strings.ToLower(text) + "%"
		db = db.Where("(LOWER(tickets.title) LIKE ? OR LOWER(tickets.description) LIKE ?)", pattern, pattern)
	}
	if q.Status != "" {
		db = db.Where("tickets.status = ?", string(q.Status))
	}
	if q.CategoryID != 0 {
		db = db.Where("tickets.category_id = ?", q.CategoryID)
	}
	if q.Priority != "" {
		db = db.Where("tickets.priority = ?", string(q.Priority))
	}
	if q.TicketType != "" {
		db = db.Where("tickets.ticket_type = ?", string(q.TicketType))
	}
	if q.CreatorID != 0 {
		db = db.Where("tickets.creator_id = ?", q.CreatorID)
	}
	if q.CreatedFrom != nil {
		db = db.Where("tickets.created_at >= ?", q.CreatedFrom.UTC())
	}
	if q.CreatedTo != nil {
		db = db.Where("tickets.created_at <= ?", q.CreatedTo.UTC())
	}
	return db
}

func (r *TicketRepository) Search(ctx context.Context, scope access.Scope, q ticket.Query) ([]*ticket.Ticket, int64, error) {
	var total int64
	countQuery := applyQuery(applyScope(r.db.WithContext(ctx).Model(&ticketDatamodel.Ticket{}), scope), q)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*ticketDatamodel.TicketView
	err := applyQuery(applyScope(r.view(ctx), scope), q).
		Order("tickets.created_at DESC").
		Order("tickets.id DESC").
		Limit(q.Page.Limit()).
		Offset(q.Page.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return ticket.FromViewSlice(rows), total, nil
}

func (r *TicketRepository) Suggest(ctx context.Context, scope access.Scope, text string, limit int) ([]*ticket.Ticket, error) {
	var rows []*ticketDatamodel.TicketView
	pattern := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	err := applyScope(r.view(ctx), scope).
		Where("LOWER(tickets.title) LIKE ?", pattern).
		Order("tickets.created_at DESC").
		Order("tickets.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return ticket.FromViewSlice(rows), nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*ticket.Ticket, error) {
	var rows []*ticketDatamodel.TicketView
	if err := r.view(ctx).Where("tickets.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return ticket.FromView(rows[0]), nil
}

// GetForUpdate locks the row for the rest of the transaction. sqlite ignores
// the locking clause and serializes writers at the database level instead.
func (r *TicketRepository) GetForUpdate(ctx context.Context, id int64) (*ticket.Ticket, error) {
	var t ticketDatamodel.Ticket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ticket.FromDataModel(&t), nil
}

func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	model := ticket.ToDataModel(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	t.ID = model.ID
	return nil
}

func (r *TicketRepository) UpdateIfStatus(ctx context.Context, t *ticket.Ticket, expected ticket.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ticketDatamodel.Ticket{}).
		Where("id = ? AND status = ?", t.ID, string(expected)).
		Updates(map[string]interface{}{
			"title":         t.Title,
			"description":   t.Description,
			"category_id":   t.CategoryID,
			"ticket_type":   string(t.TicketType),
			"priority":      string(t.Priority),
			"status":        string(t.Status),
			"progress":      t.Progress,
			"timeline_date": t.TimelineDate,
			"updated_at":    t.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id int64) ([]ticket.AttachmentRef, bool, error) {
	db := r.db.WithContext(ctx)

	var files []attachmentDatamodel.File
	if err := db.Where("ticket_id = ?", id).Find(&files).Error; err != nil {
		return nil, false, err
	}
	if err := db.Where("ticket_id = ?", id).Delete(&commentDatamodel.Comment{}).Error; err != nil {
		return nil, false, err
	}
	if err := db.Where("ticket_id = ?", id).Delete(&attachmentDatamodel.File{}).Error; err != nil {
		return nil, false, err
	}
	result := db.Where("id = ?", id).Delete(&ticketDatamodel.Ticket{})
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	refs := make([]ticket.AttachmentRef, len(files))
	for i, f := range files {
		refs[i] = ticket.AttachmentRef{TicketID: f.TicketID, StoredFilename: f.StoredFilename}
	}
	return refs, true, nil
}

type groupCount struct {
	Key   string `gorm:"column:group_key"`
	Count int64  `gorm:"column:total"`
}

func (r *TicketRepository) countBy(ctx context.Context, scope access.Scope, column string) ([]groupCount, error) {
	var rows []groupCount
	err := applyScope(r.db.WithContext(ctx).Model(&ticketDatamodel.Ticket{}), scope).
		Select("tickets." + column + " AS group_key, COUNT(*) AS total").
		Group("tickets." + column).
		Scan(&rows).Error
	return rows, err
}

func (r *TicketRepository) Stats(ctx context.Context, scope access.Scope) (*ticket.StatsResponse, error) {
	stats := &ticket.StatsResponse{
		ByStatus:   make(map[ticket.Status]int64, len(ticket.Statuses)),
		ByPriority: make(map[ticket.Priority]int64, len(ticket.Priorities)),
		ByType:     make(map[ticket.Type]int64, len(ticket.Types)),
	}
	for _, s := range ticket.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range ticket.Priorities {
		stats.ByPriority[p] = 0
	}
	for _, t := range ticket.Types {
		stats.ByType[t] = 0
	}

	byStatus, err := r.countBy(ctx, scope, "status")
	if err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[ticket.Status(row.Key)] = row.Count
		stats.Total += row.Count
	}

	byPriority, err := r.countBy(ctx, scope, "priority")
	if err != nil {
		return nil, err
	}
	for _, row := range byPriority {
		stats.ByPriority[ticket.Priority(row.Key)] = row.Count
	}

	byType, err := r.countBy(ctx, scope, "ticket_type")
	if err != nil {
		return nil, err
	}
	for _, row := range byType {
		stats.ByType[ticket.Type(row.Key)] = row.Count
	}
	return stats, nil
}

func (r *TicketRepository) CategoryIsActive(ctx context.Context, id int64) (bool, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return cat.IsActive, nil
}
