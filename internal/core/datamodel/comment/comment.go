package comment

import "time"

type Comment struct {
	ID        int64     `gorm:"primaryKey"`
	TicketID  int64     `gorm:"column:ticket_id;not null;index"`
	AuthorID  int64     `gorm:"column:author_id;not null;index"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentView struct {
	Comment
	AuthorName         string `gorm:"column:author_name"`
	AuthorOrganization string `gorm:"column:author_organization"`
	TicketTitle        string `gorm:"column:ticket_title"`
	TicketCreatorID    int64  `gorm:"column:ticket_creator_id"`
}
