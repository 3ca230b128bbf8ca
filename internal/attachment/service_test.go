package attachment_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/attachment"
	"github.com/frahmantamala/support-ticketing/internal/attachment/filestore"
	attachmentPostgres "github.com/frahmantamala/support-ticketing/internal/attachment/postgres"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/support-ticketing/internal/core/testdb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

type failingCreateRepo struct {
	attachment.Repository
}

func (failingCreateRepo) Create(context.Context, *attachment.File) error {
	return stderrors.New("disk quota exceeded")
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

var _ = Describe("Attachment Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		memFs    afero.Fs
		store    *filestore.Store
		repo     attachment.Repository
		service  *attachment.Service
		logger   *slog.Logger
		admin    access.Actor
		staff    access.Actor
		customer access.Actor
		other    access.Actor
		ticketID int64
	)

	seedUser := func(name, email string, role access.Role, org access.Organization) access.Actor {
		now := time.Now().UTC()
		u := &userDatamodel.User{Email: email, Name: name, PasswordHash: "x", Role: string(role), Organization: string(org), IsActive: true, CreatedAt: now, UpdatedAt: now}
		Expect(db.Create(u).Error).To(Succeed())
		return access.Actor{ID: u.ID, Name: name, Email: email, Role: role, Organization: org, Active: true}
	}

	seedTicket := func(creator access.Actor) int64 {
		now := time.Now().UTC()
		t := &ticketDatamodel.Ticket{
			Title: "Cargo docs", Description: "d", CategoryID: 1, TicketType: "Issue", Priority: "Low",
			Status: "In Progress", CreatorID: creator.ID, CreatedAt: now, UpdatedAt: now,
		}
		Expect(db.Create(t).Error).To(Succeed())
		return t.ID
	}

	upload := func(actor access.Actor, name, content string) *attachment.File {
		f, err := service.Upload(ctx, actor, ticketID, attachment.Upload{Filename: name, Content: strings.NewReader(content)})
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		memFs = afero.NewMemMapFs()
		store = filestore.New(memFs, "/uploads")
		repo = attachmentPostgres.NewFileRepository(db)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		service = attachment.NewService(repo, store, 64, logger)

		admin = seedUser("Admin", "admin@bwesglobal.com", access.RoleAdmin, access.OrganizationInternal)
		staff = seedUser("Staff", "staff@bwesglobal.com", access.RoleNormal, access.OrganizationInternal)
		customer = seedUser("Customer", "ops@oldendorff.com", access.RoleNormal, access.OrganizationExternal)
		other = seedUser("Other", "chartering@oldendorff.com", access.RoleNormal, access.OrganizationExternal)
		ticketID = seedTicket(customer)
	})

	Describe("Upload", func() {
		It("stores the bytes and the metadata", func() {
			f := upload(customer, `C:\tmp\bill of lading.txt`, "shipped on board")

			Expect(f.ID).To(BeNumerically(">", 0))
			Expect(f.OriginalFilename).To(Equal("bill of lading.txt"))
			Expect(f.StoredFilename).To(MatchRegexp(`^bill of lading_[0-9a-f]{8}\.txt$`))
			Expect(f.FileSize).To(Equal(int64(len("shipped on board"))))
			Expect(f.MimeType).To(HavePrefix("text/plain"))
			Expect(f.UploaderName).To(Equal("Customer"))
			Expect(f.FilePath).To(Equal(filepath.Join("/uploads", "tickets", strconv.FormatInt(ticketID, 10), f.StoredFilename)))

			content, err := afero.ReadFile(memFs, f.FilePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("shipped on board"))
		})

		It("detects the type from the content", func() {
			f, err := service.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "photo.dat", Content: bytes.NewReader(pngHeader)})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.MimeType).To(Equal("image/png"))
		})

		It("accepts files at the limit and rejects larger ones", func() {
			upload(staff, "exact.txt", strings.Repeat("a", 64))

			_, err := service.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "big.txt", Content: strings.NewReader(strings.Repeat("a", 65))})
			Expect(err).To(MatchError(errors.ErrFileTooLarge))
		})

		It("rejects empty files and missing names", func() {
			_, err := service.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "empty.txt", Content: strings.NewReader("")})
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			_, err = service.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "  ", Content: strings.NewReader("x")})
			Expect(err).To(MatchError(errors.ErrValidationFailed))
		})

		It("reports invisible tickets as not found", func() {
			_, err := service.Upload(ctx, other, ticketID, attachment.Upload{Filename: "a.txt", Content: strings.NewReader("x")})
			Expect(err).To(MatchError(errors.ErrNotFound))
		})

		It("removes the bytes again when the metadata write fails", func() {
			failing := attachment.NewService(failingCreateRepo{Repository: repo}, store, 64, logger)

			_, err := failing.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "a.txt", Content: strings.NewReader("x")})
			Expect(err).To(MatchError(errors.NewStorageError("", nil)))

			entries, err := afero.ReadDir(memFs, filepath.Join("/uploads", "tickets", strconv.FormatInt(ticketID, 10)))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("ListForTicket", func() {
		It("lists newest first and hides invisible tickets", func() {
			upload(staff, "first.txt", "1")
			upload(customer, "second.txt", "2")

			files, err := service.ListForTicket(ctx, customer, ticketID)
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(2))
			Expect(files[0].OriginalFilename).To(Equal("second.txt"))

			_, err = service.ListForTicket(ctx, other, ticketID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})
	})

	Describe("Download", func() {
		It("returns the bytes for visible files", func() {
			f := upload(customer, "notes.txt", "ETA Friday")

			dl, err := service.Download(ctx, staff, f.ID)
			Expect(err).NotTo(HaveOccurred())
			defer dl.Content.Close()
			content, err := io.ReadAll(dl.Content)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("ETA Friday"))
			Expect(dl.File.OriginalFilename).To(Equal("notes.txt"))

			_, err = service.Download(ctx, other, f.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})

		It("reports missing bytes as not found", func() {
			f := upload(customer, "notes.txt", "ETA Friday")
			Expect(memFs.Remove(f.FilePath)).To(Succeed())

			_, err := service.Download(ctx, customer, f.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("lets the uploader or an admin delete", func() {
			mine := upload(customer, "mine.txt", "m")
			theirs := upload(staff, "theirs.txt", "t")

			Expect(service.Delete(ctx, customer, theirs.ID)).To(MatchError(errors.ErrAccessDenied))
			Expect(service.Delete(ctx, customer, mine.ID)).To(Succeed())
			Expect(service.Delete(ctx, admin, theirs.ID)).To(Succeed())

			for _, path := range []string{mine.FilePath, theirs.FilePath} {
				exists, err := afero.Exists(memFs, path)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			}
			_, err := service.Get(ctx, admin, mine.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})
	})

	Describe("ListForUser", func() {
		It("pages through one uploader's files", func() {
			upload(staff, "a.txt", "a")
			upload(staff, "b.txt", "b")
			upload(customer, "c.txt", "c")

			files, total, err := service.ListForUser(ctx, staff, staff.ID, pagination.New(1, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			Expect(files).To(HaveLen(1))

			_, _, err = service.ListForUser(ctx, customer, staff.ID, pagination.New(1, 20))
			Expect(err).To(MatchError(errors.ErrAccessDenied))

			_, total, err = service.ListForUser(ctx, admin, customer.ID, pagination.New(1, 20))
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})
	})

	Describe("Stats", func() {
		It("counts visible files by type", func() {
			upload(customer, "a.txt", "aaaa")
			_, err := service.Upload(ctx, staff, ticketID, attachment.Upload{Filename: "p.png", Content: bytes.NewReader(pngHeader)})
			Expect(err).NotTo(HaveOccurred())

			otherTicket := seedTicket(other)
			_, err = service.Upload(ctx, other, otherTicket, attachment.Upload{Filename: "o.txt", Content: strings.NewReader("o")})
			Expect(err).NotTo(HaveOccurred())

			stats, err := service.Stats(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalFiles).To(Equal(int64(2)))
			Expect(stats.TotalSizeBytes).To(Equal(int64(4 + len(pngHeader))))
			Expect(stats.FilesByType).To(Equal(map[string]int64{"text": 1, "image": 1}))

			stats, err = service.Stats(ctx, staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalFiles).To(Equal(int64(3)))
		})
	})
})
