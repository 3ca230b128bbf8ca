package ticket

import "time"

type Ticket struct {
	ID           int64      `gorm:"primaryKey"`
	Title        string     `gorm:"column:title;not null"`
	Description  string     `gorm:"column:description;type:text;not null"`
	CategoryID   int64      `gorm:"column:category_id;not null;index"`
	TicketType   string     `gorm:"column:ticket_type;not null"`
	Priority     string     `gorm:"column:priority;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	CreatorID    int64      `gorm:"column:creator_id;not null;index"`
	TimelineDate *time.Time `gorm:"column:timeline_date;type:date"`
	Progress     int        `gorm:"column:progress;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// TicketView is the read projection joined with category, creator and child counts.
type TicketView struct {
	Ticket
	CategoryName        string `gorm:"column:category_name"`
	CreatorName         string `gorm:"column:creator_name"`
	CreatorOrganization string `gorm:"column:creator_organization"`
	CommentsCount       int64  `gorm:"column:comments_count"`
	FilesCount          int64  `gorm:"column:files_count"`
}
