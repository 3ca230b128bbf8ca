package dashboard_test

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/support-ticketing/internal/core/testdb"
	"github.com/frahmantamala/support-ticketing/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/support-ticketing/internal/dashboard/postgres"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	ticketPostgres "github.com/frahmantamala/support-ticketing/internal/ticket/postgres"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, access.Scope, ticket.Query) ([]*ticket.Ticket, int64, error) {
	return nil, 0, stderrors.New("connection reset")
}

type failingRepo struct{}

func (failingRepo) Facts(context.Context, access.Scope) ([]dashboard.Fact, error) {
	return nil, stderrors.New("connection reset")
}

func (failingRepo) RecentTicketEvents(context.Context, access.Scope, int) ([]dashboard.Event, error) {
	return nil, stderrors.New("connection reset")
}

func (failingRepo) RecentCommentEvents(context.Context, access.Scope, int) ([]dashboard.Event, error) {
	return nil, stderrors.New("connection reset")
}

var _ = Describe("Dashboard Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		repo     dashboard.Repository
		service  *dashboard.Service
		logger   *slog.Logger
		staff    access.Actor
		customer access.Actor
		other    access.Actor
		general  int64
		retired  int64
		base     time.Time
	)

	seedUser := func(name, email string, org access.Organization) access.Actor {
		now := time.Now().UTC()
		u := &userDatamodel.User{Email: email, Name: name, PasswordHash: "x", Role: "normal", Organization: string(org), IsActive: true, CreatedAt: now, UpdatedAt: now}
		Expect(db.Create(u).Error).To(Succeed())
		return access.Actor{ID: u.ID, Name: name, Email: email, Role: access.RoleNormal, Organization: org, Active: true}
	}

	seedCategory := func(name string, active bool) int64 {
		now := time.Now().UTC()
		c := &categoryDatamodel.Category{Name: name, IsActive: active, CreatedAt: now, UpdatedAt: now}
		Expect(db.Create(c).Error).To(Succeed())
		return c.ID
	}

	seedTicket := func(creator access.Actor, title string, categoryID int64, status ticket.Status, priority ticket.Priority, created time.Time) int64 {
		t := &ticketDatamodel.Ticket{
			Title: title, Description: "d", CategoryID: categoryID, TicketType: "Issue", Priority: string(priority),
			Status: string(status), CreatorID: creator.ID, CreatedAt: created, UpdatedAt: created,
		}
		Expect(db.Create(t).Error).To(Succeed())
		return t.ID
	}

	seedComment := func(author access.Actor, ticketID int64, at time.Time) {
		c := &commentDatamodel.Comment{TicketID: ticketID, AuthorID: author.ID, Content: "c", CreatedAt: at, UpdatedAt: at}
		Expect(db.Create(c).Error).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		repo = dashboardPostgres.NewRepository(sqlx.NewDb(sqlDB, "sqlite3"))
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		service = dashboard.NewService(repo, ticketPostgres.NewTicketRepository(db), logger)

		staff = seedUser("Staff", "staff@bwesglobal.com", access.OrganizationInternal)
		customer = seedUser("Customer", "ops@oldendorff.com", access.OrganizationExternal)
		other = seedUser("Other", "chartering@oldendorff.com", access.OrganizationExternal)
		general = seedCategory("General", true)
		retired = seedCategory("Retired", false)
		base = time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	})

	Describe("Stats", func() {
		It("aggregates only the tickets the actor can see", func() {
			seedTicket(customer, "mine", general, ticket.StatusInProgress, ticket.PriorityHigh, base)
			seedTicket(other, "theirs", general, ticket.StatusCompleted, ticket.PriorityLow, base.Add(time.Minute))
			seedTicket(other, "old", retired, ticket.StatusClosed, ticket.PriorityLow, base.Add(2*time.Minute))

			stats, err := service.Stats(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalTickets).To(Equal(int64(1)))
			Expect(stats.TicketsByStatus[ticket.StatusInProgress]).To(Equal(int64(1)))
			Expect(stats.TicketsByCategory).To(Equal(map[string]int64{"General": 1}))
			Expect(stats.RecentTickets).To(HaveLen(1))
			Expect(stats.RecentTickets[0].Title).To(Equal("mine"))

			stats, err = service.Stats(ctx, staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalTickets).To(Equal(int64(3)))
			Expect(stats.TicketsByCategory).To(Equal(map[string]int64{"General": 2}))
			Expect(stats.RecentTickets[0].Title).To(Equal("old"))
		})

		It("degrades the recent ticket list to empty when it cannot be read", func() {
			seedTicket(customer, "mine", general, ticket.StatusInProgress, ticket.PriorityHigh, base)
			degraded := dashboard.NewService(repo, failingSearcher{}, logger)

			stats, err := degraded.Stats(ctx, staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalTickets).To(Equal(int64(1)))
			Expect(stats.RecentTickets).To(BeEmpty())
		})

		It("surfaces storage failures of the primary read", func() {
			broken := dashboard.NewService(failingRepo{}, failingSearcher{}, logger)

			_, err := broken.Stats(ctx, staff)
			Expect(err).To(MatchError(errors.NewStorageError("", nil)))
			_, err = broken.ActivityFeed(ctx, staff)
			Expect(err).To(MatchError(errors.NewStorageError("", nil)))
		})
	})

	Describe("Summary", func() {
		It("reports open, completed and high priority counts", func() {
			seedTicket(customer, "a", general, ticket.StatusInProgress, ticket.PriorityTopUrgent, base)
			seedTicket(customer, "b", general, ticket.StatusUnderReview, ticket.PriorityHigh, base)
			seedTicket(customer, "c", general, ticket.StatusCompleted, ticket.PriorityLow, base)
			overdueID := seedTicket(customer, "d", general, ticket.StatusInProgress, ticket.PriorityMedium, base)
			past := time.Now().UTC().AddDate(0, 0, -3).Truncate(24 * time.Hour)
			Expect(db.Model(&ticketDatamodel.Ticket{}).Where("id = ?", overdueID).Update("timeline_date", past).Error).To(Succeed())

			summary, err := service.Summary(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(*summary).To(Equal(dashboard.SummaryResponse{
				TotalTickets:        4,
				OpenTickets:         3,
				CompletedTickets:    1,
				HighPriorityTickets: 2,
				CompletionRate:      25,
				OverdueTickets:      1,
			}))

			summary, err = service.Summary(ctx, other)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TotalTickets).To(BeZero())
			Expect(summary.CompletionRate).To(BeZero())
		})
	})

	Describe("Charts", func() {
		It("builds every chart over the visible set", func() {
			seedTicket(customer, "a", general, ticket.StatusInProgress, ticket.PriorityHigh, base)
			seedTicket(customer, "b", general, ticket.StatusInProgress, ticket.PriorityHigh, base)

			charts, err := service.Charts(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(charts.StatusChart).To(HaveLen(4))
			Expect(charts.StatusChart[0]).To(Equal(dashboard.NamedValue{Name: "In Progress", Value: 2}))
			Expect(charts.PriorityChart).To(Equal([]dashboard.NamedValue{{Name: "High", Value: 2}}))
			Expect(charts.CategoryChart).To(Equal([]dashboard.NamedValue{{Name: "General", Value: 2}}))
			Expect(charts.MonthlyTrends).To(HaveLen(6))
			var created int64
			for _, trend := range charts.MonthlyTrends {
				created += trend.Created
			}
			Expect(created).To(Equal(int64(2)))
			Expect(charts.ProgressDistribution["0%"]).To(Equal(int64(2)))
		})
	})

	Describe("ActivityFeed", func() {
		It("merges ticket and comment events newest first within visibility", func() {
			mine := seedTicket(customer, "Late ETA", general, ticket.StatusInProgress, ticket.PriorityHigh, base)
			theirs := seedTicket(other, "Bunker", general, ticket.StatusInProgress, ticket.PriorityHigh, base.Add(time.Minute))
			seedComment(staff, mine, base.Add(2*time.Minute))
			seedComment(staff, theirs, base.Add(3*time.Minute))

			activities, err := service.ActivityFeed(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(activities).To(HaveLen(2))
			Expect(activities[0].Type).To(Equal(dashboard.ActivityCommentAdded))
			Expect(activities[0].UserName).To(Equal("Staff"))
			Expect(activities[0].Description).To(Equal(`Comment added to ticket "Late ETA"`))
			Expect(activities[1].Type).To(Equal(dashboard.ActivityTicketCreated))
			Expect(activities[1].Description).To(Equal(`Ticket "Late ETA" was created`))
			Expect(activities[1].UserName).To(Equal("Customer"))

			activities, err = service.ActivityFeed(ctx, staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(activities).To(HaveLen(4))
			Expect(activities[0].TicketID).To(Equal(theirs))
		})

		It("caps the feed at ten entries", func() {
			for i := 0; i < 7; i++ {
				id := seedTicket(customer, "t", general, ticket.StatusInProgress, ticket.PriorityLow, base.Add(time.Duration(i)*time.Minute))
				seedComment(customer, id, base.Add(time.Duration(i)*time.Minute+time.Second))
			}

			activities, err := service.ActivityFeed(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(activities).To(HaveLen(10))
			for i := 1; i < len(activities); i++ {
				Expect(activities[i-1].Timestamp).NotTo(BeTemporally("<", activities[i].Timestamp))
			}
		})
	})
})
