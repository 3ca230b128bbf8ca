package attachment

import "time"

type File struct {
	ID               int64     `gorm:"primaryKey"`
	TicketID         int64     `gorm:"column:ticket_id;not null;index"`
	OriginalFilename string    `gorm:"column:original_filename;not null"`
	StoredFilename   string    `gorm:"column:stored_filename;not null;uniqueIndex"`
	FilePath         string    `gorm:"column:file_path;not null"`
	FileSize         int64     `gorm:"column:file_size;not null"`
	MimeType         string    `gorm:"column:mime_type;not null"`
	UploadedBy       int64     `gorm:"column:uploaded_by;not null;index"`
	UploadedAt       time.Time `gorm:"column:uploaded_at;not null"`
}

func (File) TableName() string {
	return "files"
}

type FileView struct {
	File
	UploaderName    string `gorm:"column:uploader_name"`
	TicketTitle     string `gorm:"column:ticket_title"`
	TicketCreatorID int64  `gorm:"column:ticket_creator_id"`
}
