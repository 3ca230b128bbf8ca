package ticket_test

import (
	"context"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubCategories map[int64]bool

func (s stubCategories) CategoryIsActive(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int      { return &i }
func idPtr(i int64) *int64   { return &i }

var _ = Describe("ApplyUpdate", func() {
	var (
		ctx        context.Context
		now        time.Time
		current    *ticket.Ticket
		categories stubCategories
		creator    access.Actor
		internal   access.Actor
		outsider   access.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		categories = stubCategories{1: true, 2: true, 3: false}
		creator = access.Actor{ID: 10, Role: access.RoleNormal, Organization: access.OrganizationExternal, Active: true}
		internal = access.Actor{ID: 20, Role: access.RoleNormal, Organization: access.OrganizationInternal, Active: true}
		outsider = access.Actor{ID: 30, Role: access.RoleAdmin, Organization: access.OrganizationExternal, Active: true}
		current = &ticket.Ticket{
			ID:          1,
			Title:       "Vessel position missing",
			Description: "Noon report not received",
			CategoryID:  1,
			TicketType:  ticket.TypeIssue,
			Priority:    ticket.PriorityHigh,
			Status:      ticket.StatusInProgress,
			CreatorID:   creator.ID,
			CreatedAt:   now.Add(-time.Hour),
			UpdatedAt:   now.Add(-time.Hour),
		}
	})

	Context("access", func() {
		It("lets the external creator edit content fields", func() {
			next, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{Title: strPtr("Updated")}, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Title).To(Equal("Updated"))
			Expect(next.UpdatedAt).To(Equal(now))
		})

		It("denies workflow fields to external actors", func() {
			_, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{Status: strPtr("Completed")}, categories, now)
			Expect(err).To(MatchError(errors.ErrAccessDenied))
		})

		It("denies content fields to external non-creators, including admins", func() {
			_, err := ticket.ApplyUpdate(ctx, current, outsider, ticket.Changes{Title: strPtr("x")}, categories, now)
			Expect(err).To(MatchError(errors.ErrAccessDenied))
		})

		It("lets internal non-creators edit content and workflow fields", func() {
			changes := ticket.Changes{Priority: strPtr("Low"), Status: strPtr("Under Review"), Progress: intPtr(40)}
			next, err := ticket.ApplyUpdate(ctx, current, internal, changes, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Priority).To(Equal(ticket.PriorityLow))
			Expect(next.Status).To(Equal(ticket.StatusUnderReview))
			Expect(next.Progress).To(Equal(40))
		})

		It("rejects a mixed update as a whole when the workflow part is denied", func() {
			changes := ticket.Changes{Title: strPtr("Renamed"), Progress: intPtr(50)}
			_, err := ticket.ApplyUpdate(ctx, current, creator, changes, categories, now)
			Expect(err).To(MatchError(errors.ErrAccessDenied))
			Expect(current.Title).To(Equal("Vessel position missing"))
		})
	})

	Context("validation", func() {
		It("reports every invalid content field", func() {
			changes := ticket.Changes{Title: strPtr("  "), TicketType: strPtr("Bug")}
			_, err := ticket.ApplyUpdate(ctx, current, creator, changes, categories, now)
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			appErr, _ := errors.IsAppError(err)
			Expect(appErr.Details.(errors.ValidationErrors).Fields()).To(ConsistOf("title", "ticket_type"))
		})

		It("validates the resulting type and priority pair", func() {
			_, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{Priority: strPtr("Top Urgent")}, categories, now)
			Expect(err).NotTo(HaveOccurred())

			current.Priority = ticket.PriorityTopUrgent
			_, err = ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{TicketType: strPtr("Enhancement")}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidPriority))
		})

		It("accepts switching type and priority together", func() {
			current.Priority = ticket.PriorityTopUrgent
			changes := ticket.Changes{TicketType: strPtr("Enhancement"), Priority: strPtr("Medium")}
			next, err := ticket.ApplyUpdate(ctx, current, creator, changes, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.TicketType).To(Equal(ticket.TypeEnhancement))
			Expect(next.Priority).To(Equal(ticket.PriorityMedium))
		})

		It("rejects inactive or unknown categories", func() {
			_, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{CategoryID: idPtr(3)}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidCategory))

			_, err = ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{CategoryID: idPtr(99)}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidCategory))
		})

		It("keeps the current category even if it was deactivated since", func() {
			current.CategoryID = 3
			next, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{CategoryID: idPtr(3), Title: strPtr("t")}, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.CategoryID).To(Equal(int64(3)))
		})

		It("rejects progress outside the 10-step scale", func() {
			_, err := ticket.ApplyUpdate(ctx, current, internal, ticket.Changes{Progress: intPtr(35)}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidProgress))
		})

		It("rejects transitions missing from the graph", func() {
			_, err := ticket.ApplyUpdate(ctx, current, internal, ticket.Changes{Status: strPtr("Closed")}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidStatusTransition))
		})

		It("strips markup from text fields", func() {
			next, err := ticket.ApplyUpdate(ctx, current, creator, ticket.Changes{Description: strPtr("<b>engine</b> alarm")}, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Description).To(Equal("engine alarm"))
		})
	})

	Context("timeline date", func() {
		It("sets and clears the date", func() {
			next, err := ticket.ApplyUpdate(ctx, current, internal, ticket.Changes{TimelineDate: ticket.SetString("2025-06-30")}, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.TimelineDateString()).To(Equal("2025-06-30"))

			cleared, err := ticket.ApplyUpdate(ctx, next, internal, ticket.Changes{TimelineDate: ticket.ClearString()}, categories, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(cleared.TimelineDate).To(BeNil())
			Expect(next.TimelineDate).NotTo(BeNil())
		})

		It("rejects malformed dates", func() {
			_, err := ticket.ApplyUpdate(ctx, current, internal, ticket.Changes{TimelineDate: ticket.SetString("30/06/2025")}, categories, now)
			Expect(err).To(MatchError(errors.ErrInvalidDateFormat))
		})
	})

	It("never mutates the current ticket", func() {
		changes := ticket.Changes{Title: strPtr("Changed"), Status: strPtr("Under Review")}
		next, err := ticket.ApplyUpdate(ctx, current, internal, changes, categories, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).NotTo(BeIdenticalTo(current))
		Expect(current.Title).To(Equal("Vessel position missing"))
		Expect(current.Status).To(Equal(ticket.StatusInProgress))
	})
})
