package attachment

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"mime"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/gabriel-vasile/mimetype"
)

type Repository interface {
	// TicketCreator returns the creator of a ticket and whether it exists.
	TicketCreator(ctx context.Context, ticketID int64) (int64, bool, error)
	// ListForTicket returns the ticket's files newest first.
	ListForTicket(ctx context.Context, ticketID int64) ([]*File, error)
	// ListForUploader returns the uploader's files on tickets in scope, newest first.
	ListForUploader(ctx context.Context, scope access.Scope, userID int64, page pagination.Page) ([]*File, int64, error)
	GetByID(ctx context.Context, id int64) (*File, error)
	Create(ctx context.Context, f *File) error
	Delete(ctx context.Context, id int64) error
	TypeTotals(ctx context.Context, scope access.Scope) ([]TypeTotal, error)
}

// TypeTotal is the count and byte size of the files sharing a MIME type.
type TypeTotal struct {
	MimeType string
	Files    int64
	Bytes    int64
}

// Store holds attachment bytes under a per-ticket directory.
type Store interface {
	Save(ticketID int64, storedFilename string, content []byte) (string, error)
	Open(ticketID int64, storedFilename string) (io.ReadSeekCloser, error)
	Delete(ticketID int64, storedFilename string) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Download pairs a file's metadata with its bytes. The caller closes Content.
type Download struct {
	File    *File
	Content io.ReadSeekCloser
}

type Service struct {
	repo        Repository
	store       Store
	maxFileSize int64
	logger      *slog.Logger
	nowFunc     func() time.Time
}

func NewService(repo Repository, store Store, maxFileSize int64, logger *slog.Logger) *Service {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Service{
		repo:        repo,
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger,
		nowFunc:     func() time.Time { return time.Now().UTC() },
	}
}

var (
	errTicketNotFound = errors.NewNotFoundError("Ticket not found", errors.ErrCodeNotFound)
	errFileNotFound   = errors.NewNotFoundError("File not found", errors.ErrCodeNotFound)
	errBlobMissing    = errors.NewNotFoundError("File not found on disk", errors.ErrCodeNotFound)
)

func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Upload stores the bytes first and then the metadata row. If the row cannot
// be written the bytes are removed again; a failure there is logged.
func (s *Service) Upload(ctx context.Context, actor access.Actor, ticketID int64, upload Upload) (*File, error) {
	if err := s.visibleTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}

	name := SanitizeFilename(strings.TrimSpace(upload.Filename))
	if name == "" {
		return nil, errors.NewValidationFieldError("file", "no file selected", errors.ErrCodeValidationFailed)
	}
	if upload.Content == nil {
		return nil, errors.NewValidationFieldError("file", "no file provided", errors.ErrCodeValidationFailed)
	}

	content, err := io.ReadAll(io.LimitReader(upload.Content, s.maxFileSize+1))
	if err != nil {
		s.logger.Error("failed to read upload", "error", err, "ticket_id", ticketID)
		return nil, errors.NewStorageError("failed to read upload", err)
	}
	if int64(len(content)) > s.maxFileSize {
		s.logger.Warn("upload rejected: too large", "ticket_id", ticketID, "user_id", actor.ID)
		return nil, errors.NewFileTooLarge(s.maxFileSize)
	}
	if len(content) == 0 {
		return nil, errors.NewValidationFieldError("file", "file is empty", errors.ErrCodeValidationFailed)
	}

	stored := StoredFilename(name)
	path, err := s.store.Save(ticketID, stored, content)
	if err != nil {
		s.logger.Error("failed to store file", "error", err, "ticket_id", ticketID)
		return nil, errors.NewStorageError("failed to store file", err)
	}

	f := &File{
		TicketID:         ticketID,
		OriginalFilename: name,
		StoredFilename:   stored,
		FilePath:         path,
		FileSize:         int64(len(content)),
		MimeType:         detectMimeType(name, content),
		UploadedBy:       actor.ID,
		UploadedAt:       s.nowFunc(),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		s.logger.Error("failed to record file", "error", err, "ticket_id", ticketID)
		if rmErr := s.store.Delete(ticketID, stored); rmErr != nil {
			s.logger.Error("leaked attachment file after failed upload",
				"error", rmErr,
				"ticket_id", ticketID,
				"stored_filename", stored)
		}
		return nil, errors.NewStorageError("failed to record file", err)
	}

	s.logger.Info("file uploaded", "file_id", f.ID, "ticket_id", ticketID, "user_id", actor.ID, "size", f.FileSize)
	return s.reload(ctx, f), nil
}

func (s *Service) ListForTicket(ctx context.Context, actor access.Actor, ticketID int64) ([]*File, error) {
	if err := s.visibleTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}

	files, err := s.repo.ListForTicket(ctx, ticketID)
	if err != nil {
		s.logger.Error("failed to list files", "error", err, "ticket_id", ticketID)
		return nil, errors.NewStorageError("failed to list files", err)
	}
	return files, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*File, error) {
	return s.load(ctx, actor, id)
}

func (s *Service) Download(ctx context.Context, actor access.Actor, id int64) (*Download, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	content, err := s.store.Open(f.TicketID, f.StoredFilename)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("file bytes missing", "file_id", id, "ticket_id", f.TicketID)
			return nil, errBlobMissing
		}
		s.logger.Error("failed to open file", "error", err, "file_id", id)
		return nil, errors.NewStorageError("failed to open file", err)
	}
	return &Download{File: f, Content: content}, nil
}

// Delete removes the metadata row and then the bytes. Uploaders and admins
// may delete.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanDeleteFile(actor, f.UploadedBy) {
		s.logger.Warn("file delete denied", "file_id", id, "user_id", actor.ID)
		return errors.ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete file", "error", err, "file_id", id)
		return errors.NewStorageError("failed to delete file", err)
	}
	if err := s.store.Delete(f.TicketID, f.StoredFilename); err != nil {
		s.logger.Error("leaked attachment file after delete",
			"error", err,
			"ticket_id", f.TicketID,
			"stored_filename", f.StoredFilename)
	}

	s.logger.Info("file deleted", "file_id", id, "ticket_id", f.TicketID, "user_id", actor.ID)
	return nil
}

// ListForUser lists one uploader's files. Users may list their own; admins
// may list anyone's, still limited to tickets they can see.
func (s *Service) ListForUser(ctx context.Context, actor access.Actor, userID int64, page pagination.Page) ([]*File, int64, error) {
	if !access.CanViewUserContent(actor, userID) {
		s.logger.Warn("user file listing denied", "target_user_id", userID, "user_id", actor.ID)
		return nil, 0, errors.ErrAccessDenied
	}

	files, total, err := s.repo.ListForUploader(ctx, access.VisibilityFor(actor), userID, page.Normalize())
	if err != nil {
		s.logger.Error("failed to list user files", "error", err, "target_user_id", userID)
		return nil, 0, errors.NewStorageError("failed to list user files", err)
	}
	return files, total, nil
}

// Stats groups visible files by the top level part of their MIME type.
func (s *Service) Stats(ctx context.Context, actor access.Actor) (*Stats, error) {
	totals, err := s.repo.TypeTotals(ctx, access.VisibilityFor(actor))
	if err != nil {
		s.logger.Error("failed to compute file stats", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to compute file stats", err)
	}

	stats := &Stats{FilesByType: map[string]int64{}}
	for _, t := range totals {
		stats.TotalFiles += t.Files
		stats.TotalSizeBytes += t.Bytes
		stats.FilesByType[mimeCategory(t.MimeType)] += t.Files
	}
	stats.TotalSizeMB = math.Round(float64(stats.TotalSizeBytes)/(1<<20)*100) / 100
	return stats, nil
}

func (s *Service) visibleTicket(ctx context.Context, actor access.Actor, ticketID int64) error {
	creatorID, found, err := s.repo.TicketCreator(ctx, ticketID)
	if err != nil {
		s.logger.Error("failed to load ticket", "error", err, "ticket_id", ticketID)
		return errors.NewStorageError("failed to load ticket", err)
	}
	if !found || !access.CanViewTicket(actor, creatorID) {
		return errTicketNotFound
	}
	return nil
}

// load reads a file and reports files on tickets the actor cannot see as not
// found.
func (s *Service) load(ctx context.Context, actor access.Actor, id int64) (*File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load file", "error", err, "file_id", id)
		return nil, errors.NewStorageError("failed to load file", err)
	}
	if f == nil || !access.CanViewTicket(actor, f.TicketCreatorID()) {
		return nil, errFileNotFound
	}
	return f, nil
}

func (s *Service) reload(ctx context.Context, f *File) *File {
	fresh, err := s.repo.GetByID(ctx, f.ID)
	if err != nil || fresh == nil {
		s.logger.Warn("failed to reload file after write", "error", err, "file_id", f.ID)
		return f
	}
	return fresh
}

// detectMimeType sniffs the content and falls back to the extension when the
// content is not recognized.
func detectMimeType(name string, content []byte) string {
	detected := mimetype.Detect(content).String()
	if detected != fallbackMimeType {
		return detected
	}
	if _, ext := splitExt(name); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return fallbackMimeType
}

func mimeCategory(mimeType string) string {
	if mimeType == "" {
		return "unknown"
	}
	category, _, _ := strings.Cut(mimeType, "/")
	return category
}
