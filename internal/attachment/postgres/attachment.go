package postgres

import (
	"context"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/attachment"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	attachmentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/attachment"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	"gorm.io/gorm"
)

const viewColumns = `files.*,
	users.name AS uploader_name,
	tickets.title AS ticket_title,
	tickets.creator_id AS ticket_creator_id`

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) attachment.Repository {
	return &FileRepository{db: db}
}

func (r *FileRepository) view(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("files").
		Select(viewColumns).
		Joins("JOIN tickets ON tickets.id = files.ticket_id").
		Joins("LEFT JOIN users ON users.id = files.uploaded_by")
}

func scoped(db *gorm.DB, scope access.Scope) *gorm.DB {
	if scope.Restricted() {
		return db.Where("tickets.creator_id = ?", scope.CreatorID())
	}
	return db
}

func (r *FileRepository) TicketCreator(ctx context.Context, ticketID int64) (int64, bool, error) {
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

func (r *FileRepository) ListForTicket(ctx context.Context, ticketID int64) ([]*attachment.File, error) {
	var rows []*attachmentDatamodel.FileView
	err := r.view(ctx).
		Where("files.ticket_id = ?", ticketID).
		Order("files.uploaded_at DESC").
		Order("files.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return attachment.FromViewSlice(rows), nil
}

func (r *FileRepository) ListForUploader(ctx context.Context, scope access.Scope, userID int64, page pagination.Page) ([]*attachment.File, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).
		Model(&attachmentDatamodel.File{}).
		Joins("JOIN tickets ON tickets.id = files.ticket_id").
		Where("files.uploaded_by = ?", userID)
	if err := scoped(countQuery, scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*attachmentDatamodel.FileView
	err := scoped(r.view(ctx).Where("files.uploaded_by = ?", userID), scope).
		Order("files.uploaded_at DESC").
		Order("files.id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return attachment.FromViewSlice(rows), total, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*attachment.File, error) {
	var rows []*attachmentDatamodel.FileView
	if err := r.view(ctx).Where("files.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return attachment.FromView(rows[0]), nil
}

func (r *FileRepository) Create(ctx context.Context, f *attachment.File) error {
	model := attachment.ToDataModel(f)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	f.ID = model.ID
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&attachmentDatamodel.File{}).Error
}

func (r *FileRepository) TypeTotals(ctx context.Context, scope access.Scope) ([]attachment.TypeTotal, error) {
	var rows []struct {
		MimeType string
		Files    int64
		Bytes    int64
	}
	query := r.db.WithContext(ctx).
		Table("files").
		Select("files.mime_type AS mime_type, COUNT(*) AS files, COALESCE(SUM(files.file_size), 0) AS bytes").
		Joins("JOIN tickets ON tickets.id = files.ticket_id").
		Group("files.mime_type")
	if err := scoped(query, scope).Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]attachment.TypeTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, attachment.TypeTotal{MimeType: row.MimeType, Files: row.Files, Bytes: row.Bytes})
	}
	return totals, nil
}
