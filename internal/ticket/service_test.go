package ticket_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	attachmentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/attachment"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/support-ticketing/internal/core/testdb"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	ticketPostgres "github.com/frahmantamala/support-ticketing/internal/ticket/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	fail    bool
}

func (r *recordingRemover) Delete(ticketID int64, storedFilename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("disk unavailable")
	}
	r.removed = append(r.removed, fmt.Sprintf("%d/%s", ticketID, storedFilename))
	return nil
}

func seedUser(db *gorm.DB, name, email string, role access.Role, org access.Organization) access.Actor {
	now := time.Now().UTC()
	u := &userDatamodel.User{
		Email:        email,
		Name:         name,
		PasswordHash: "x",
		Role:         string(role),
		Organization: string(org),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	Expect(db.Create(u).Error).To(Succeed())
	return access.Actor{ID: u.ID, Name: name, Email: email, Role: role, Organization: org, Active: true}
}

func seedCategory(db *gorm.DB, name string, active bool) int64 {
	now := time.Now().UTC()
	c := &categoryDatamodel.Category{Name: name, IsActive: active, CreatedAt: now, UpdatedAt: now}
	Expect(db.Create(c).Error).To(Succeed())
	return c.ID
}

var _ = Describe("Ticket Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		files    *recordingRemover
		service  *ticket.Service
		admin    access.Actor
		staff    access.Actor
		customer access.Actor
		other    access.Actor
		safety   int64
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		files = &recordingRemover{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = ticket.NewService(ticketPostgres.NewTicketRepository(db), files, logger)

		admin = seedUser(db, "Admin", "admin@bwesglobal.com", access.RoleAdmin, access.OrganizationInternal)
		staff = seedUser(db, "Staff", "staff@bwesglobal.com", access.RoleNormal, access.OrganizationInternal)
		customer = seedUser(db, "Customer", "ops@oldendorff.com", access.RoleNormal, access.OrganizationExternal)
		other = seedUser(db, "Other", "chartering@oldendorff.com", access.RoleNormal, access.OrganizationExternal)
		safety = seedCategory(db, "Safety", true)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	newIssue := func(actor access.Actor, title string, priority ticket.Priority) *ticket.Ticket {
		t, err := service.Create(ctx, actor, ticket.CreateTicketDTO{
			Title:       title,
			Description: "Details for " + title,
			CategoryID:  safety,
			TicketType:  string(ticket.TypeIssue),
			Priority:    string(priority),
		})
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	setStatus := func(actor access.Actor, id int64, status ticket.Status) (*ticket.Ticket, error) {
		s := string(status)
		return service.Update(ctx, actor, id, ticket.Changes{Status: &s})
	}

	Describe("Create", func() {
		It("round-trips every field", func() {
			created := newIssue(customer, "Noon report missing", ticket.PriorityTopUrgent)

			read, err := service.Get(ctx, customer, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.ID).To(Equal(created.ID))
			Expect(read.Title).To(Equal("Noon report missing"))
			Expect(read.Description).To(Equal("Details for Noon report missing"))
			Expect(read.CategoryID).To(Equal(safety))
			Expect(read.TicketType).To(Equal(ticket.TypeIssue))
			Expect(read.Priority).To(Equal(ticket.PriorityTopUrgent))
			Expect(read.Status).To(Equal(ticket.StatusInProgress))
			Expect(read.Progress).To(Equal(0))
			Expect(read.CreatorID).To(Equal(customer.ID))
			Expect(read.TimelineDate).To(BeNil())
			Expect(read.CategoryName).To(Equal("Safety"))
			Expect(read.CreatorName).To(Equal("Customer"))
			Expect(read.CreatorOrganization).To(Equal("External"))
			Expect(read.CreatedAt).NotTo(BeZero())
		})

		It("rejects top urgent enhancements", func() {
			_, err := service.Create(ctx, staff, ticket.CreateTicketDTO{
				Title: "Add chart", Description: "More charts", CategoryID: safety,
				TicketType: "Enhancement", Priority: "Top Urgent",
			})
			Expect(err).To(MatchError(errors.ErrInvalidPriority))
		})

		It("rejects inactive categories", func() {
			retired := seedCategory(db, "Retired", false)
			_, err := service.Create(ctx, staff, ticket.CreateTicketDTO{
				Title: "t", Description: "d", CategoryID: retired, TicketType: "Issue", Priority: "Low",
			})
			Expect(err).To(MatchError(errors.ErrInvalidCategory))
		})

		It("reports missing required fields together", func() {
			_, err := service.Create(ctx, staff, ticket.CreateTicketDTO{CategoryID: safety, TicketType: "Issue", Priority: "Low"})
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			appErr, _ := errors.IsAppError(err)
			Expect(appErr.Details.(errors.ValidationErrors).Fields()).To(ConsistOf("title", "description"))
		})
	})

	Describe("workflow scenario", func() {
		It("follows the status graph and honours workflow rights", func() {
			t := newIssue(customer, "Weather routing down", ticket.PriorityTopUrgent)
			Expect(t.Status).To(Equal(ticket.StatusInProgress))
			Expect(t.Progress).To(Equal(0))

			_, err := setStatus(customer, t.ID, ticket.StatusCompleted)
			Expect(err).To(MatchError(errors.ErrAccessDenied))

			for _, next := range []ticket.Status{
				ticket.StatusUnderReview,
				ticket.StatusInProgress,
				ticket.StatusUnderReview,
				ticket.StatusCompleted,
				ticket.StatusClosed,
			} {
				updated, err := setStatus(staff, t.ID, next)
				Expect(err).NotTo(HaveOccurred(), "transition to %s", next)
				Expect(updated.Status).To(Equal(next))
			}

			for _, next := range ticket.Statuses {
				_, err := setStatus(staff, t.ID, next)
				Expect(err).To(MatchError(errors.ErrInvalidStatusTransition))
			}
		})

		It("leaves an enhancement unchanged when top urgent is rejected", func() {
			e, err := service.Create(ctx, customer, ticket.CreateTicketDTO{
				Title: "Export to CSV", Description: "Reports", CategoryID: safety,
				TicketType: "Enhancement", Priority: "High",
			})
			Expect(err).NotTo(HaveOccurred())

			top := string(ticket.PriorityTopUrgent)
			title := "Export to Excel"
			_, err = service.Update(ctx, customer, e.ID, ticket.Changes{Title: &title, Priority: &top})
			Expect(err).To(MatchError(errors.ErrInvalidPriority))

			read, err := service.Get(ctx, customer, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.Priority).To(Equal(ticket.PriorityHigh))
			Expect(read.Title).To(Equal("Export to CSV"))
		})

		It("applies exactly one of two racing transitions", func() {
			t := newIssue(staff, "Race", ticket.PriorityHigh)
			_, err := setStatus(staff, t.ID, ticket.StatusUnderReview)
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			results := make([]error, 2)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, results[i] = setStatus(staff, t.ID, ticket.StatusCompleted)
				}(i)
			}
			wg.Wait()

			succeeded, rejected := 0, 0
			for _, err := range results {
				if err == nil {
					succeeded++
				} else {
					Expect(err).To(MatchError(errors.ErrInvalidStatusTransition))
					rejected++
				}
			}
			Expect(succeeded).To(Equal(1))
			Expect(rejected).To(Equal(1))

			read, err := service.Get(ctx, staff, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.Status).To(Equal(ticket.StatusCompleted))
		})

		It("rejects an empty change set", func() {
			t := newIssue(staff, "Nothing", ticket.PriorityLow)
			_, err := service.Update(ctx, staff, t.ID, ticket.Changes{})
			Expect(err).To(MatchError(errors.ErrValidationFailed))
		})

		It("stores and clears the timeline date", func() {
			t := newIssue(staff, "Deadline", ticket.PriorityLow)

			updated, err := service.Update(ctx, staff, t.ID, ticket.Changes{TimelineDate: ticket.SetString("2025-09-15"), Progress: intPtr(30)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.TimelineDateString()).To(Equal("2025-09-15"))
			Expect(updated.Progress).To(Equal(30))

			cleared, err := service.Update(ctx, staff, t.ID, ticket.Changes{TimelineDate: ticket.ClearString()})
			Expect(err).NotTo(HaveOccurred())
			Expect(cleared.TimelineDate).To(BeNil())
		})
	})

	Describe("visibility", func() {
		var mine, theirs, internalOnes *ticket.Ticket

		BeforeEach(func() {
			mine = newIssue(customer, "Mine", ticket.PriorityLow)
			theirs = newIssue(other, "Theirs", ticket.PriorityLow)
			internalOnes = newIssue(staff, "Internal", ticket.PriorityHigh)
		})

		It("limits external listings to the actor's own tickets", func() {
			list, total, err := service.List(ctx, customer, ticket.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(mine.ID))
		})

		It("ignores the creator filter for external actors", func() {
			list, _, err := service.List(ctx, customer, ticket.Query{CreatorID: other.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].CreatorID).To(Equal(customer.ID))
		})

		It("lets internal actors see and filter everything", func() {
			all, total, err := service.List(ctx, staff, ticket.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(all).To(HaveLen(3))

			filtered, _, err := service.List(ctx, staff, ticket.Query{CreatorID: other.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(filtered).To(HaveLen(1))
			Expect(filtered[0].ID).To(Equal(theirs.ID))
		})

		It("reports other users' tickets as not found", func() {
			_, err := service.Get(ctx, customer, theirs.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))

			title := "hijack"
			_, err = service.Update(ctx, customer, internalOnes.ID, ticket.Changes{Title: &title})
			Expect(err).To(MatchError(errors.ErrNotFound))
		})

		It("matches text in title or description case-insensitively", func() {
			list, _, err := service.List(ctx, staff, ticket.Query{Text: "THEIRS"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(theirs.ID))
		})

		It("scopes stats to visible tickets", func() {
			stats, err := service.Stats(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(int64(1)))
			Expect(stats.ByPriority[ticket.PriorityLow]).To(Equal(int64(1)))
			Expect(stats.ByPriority[ticket.PriorityHigh]).To(Equal(int64(0)))

			stats, err = service.Stats(ctx, staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(int64(3)))
			Expect(stats.ByStatus[ticket.StatusInProgress]).To(Equal(int64(3)))
			Expect(stats.ByType[ticket.TypeIssue]).To(Equal(int64(3)))
		})
	})

	Describe("Delete", func() {
		var t *ticket.Ticket

		BeforeEach(func() {
			t = newIssue(customer, "With children", ticket.PriorityMedium)
			now := time.Now().UTC()
			Expect(db.Create(&commentDatamodel.Comment{TicketID: t.ID, AuthorID: staff.ID, Content: "looking", CreatedAt: now, UpdatedAt: now}).Error).To(Succeed())
			Expect(db.Create(&attachmentDatamodel.File{
				TicketID: t.ID, OriginalFilename: "log.txt", StoredFilename: "log_abcd1234.txt",
				FilePath: "tickets/1/log_abcd1234.txt", FileSize: 3, MimeType: "text/plain",
				UploadedBy: customer.ID, UploadedAt: now,
			}).Error).To(Succeed())
		})

		It("is admin only", func() {
			err := service.Delete(ctx, staff, t.ID)
			Expect(err).To(MatchError(errors.ErrAccessDenied))
		})

		It("cascades to comments, file rows and stored bytes", func() {
			Expect(service.Delete(ctx, admin, t.ID)).To(Succeed())

			var comments, fileRows int64
			Expect(db.Model(&commentDatamodel.Comment{}).Where("ticket_id = ?", t.ID).Count(&comments).Error).To(Succeed())
			Expect(db.Model(&attachmentDatamodel.File{}).Where("ticket_id = ?", t.ID).Count(&fileRows).Error).To(Succeed())
			Expect(comments).To(BeZero())
			Expect(fileRows).To(BeZero())
			Expect(files.removed).To(ConsistOf(fmt.Sprintf("%d/log_abcd1234.txt", t.ID)))

			_, err := service.Get(ctx, admin, t.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})

		It("still succeeds when stored bytes cannot be removed", func() {
			files.fail = true
			Expect(service.Delete(ctx, admin, t.ID)).To(Succeed())

			_, err := service.Get(ctx, admin, t.ID)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})

		It("reports missing tickets", func() {
			Expect(service.Delete(ctx, admin, 9999)).To(MatchError(errors.ErrNotFound))
		})
	})
})
