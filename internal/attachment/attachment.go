package attachment

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	attachmentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/attachment"
	"github.com/google/uuid"
)

const (
	// DefaultMaxFileSize is the upload limit when none is configured.
	DefaultMaxFileSize int64 = 25 << 20

	maxFilenameLength = 255
	truncatedNameLen  = 250
	fallbackMimeType  = "application/octet-stream"
)

type File struct {
	ID               int64     `json:"id"`
	TicketID         int64     `json:"ticket_id"`
	TicketTitle      string    `json:"ticket_title,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"-"`
	FilePath         string    `json:"-"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	UploadedBy       int64     `json:"uploaded_by"`
	UploaderName     string    `json:"uploader_name"`
	UploadedAt       time.Time `json:"uploaded_at"`

	ticketCreatorID int64
}

// TicketCreatorID is the creator of the parent ticket, used for visibility.
func (f *File) TicketCreatorID() int64 {
	return f.ticketCreatorID
}

// SanitizeFilename drops any directory part of a client supplied name,
// replaces characters that are unsafe on common filesystems and caps the
// length at 255 bytes while keeping the extension.
func SanitizeFilename(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)

	if len(name) <= maxFilenameLength {
		return name
	}

	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, ext = name[:i], name[i:]
	}
	return truncate(base, truncatedNameLen) + ext
}

// StoredFilename derives a collision resistant on-disk name:
// <name>_<8 hex chars><ext>.
func StoredFilename(sanitized string) string {
	base, ext := splitExt(sanitized)
	return base + "_" + uuid.NewString()[:8] + ext
}

// splitExt treats a leading dot as part of the name, so ".env" has no
// extension.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func ToDataModel(f *File) *attachmentDatamodel.File {
	return &attachmentDatamodel.File{
		ID:               f.ID,
		TicketID:         f.TicketID,
		OriginalFilename: f.OriginalFilename,
		StoredFilename:   f.StoredFilename,
		FilePath:         f.FilePath,
		FileSize:         f.FileSize,
		MimeType:         f.MimeType,
		UploadedBy:       f.UploadedBy,
		UploadedAt:       f.UploadedAt,
	}
}

func FromView(v *attachmentDatamodel.FileView) *File {
	return &File{
		ID:               v.ID,
		TicketID:         v.TicketID,
		TicketTitle:      v.TicketTitle,
		OriginalFilename: v.OriginalFilename,
		StoredFilename:   v.StoredFilename,
		FilePath:         v.FilePath,
		FileSize:         v.FileSize,
		MimeType:         v.MimeType,
		UploadedBy:       v.UploadedBy,
		UploaderName:     v.UploaderName,
		UploadedAt:       v.UploadedAt.UTC(),
		ticketCreatorID:  v.TicketCreatorID,
	}
}

func FromViewSlice(rows []*attachmentDatamodel.FileView) []*File {
	out := make([]*File, 0, len(rows))
	for _, v := range rows {
		out = append(out, FromView(v))
	}
	return out
}
