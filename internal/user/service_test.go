package user_test

import (
	"context"
	"log/slog"
	"os"
	"strings"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/support-ticketing/internal/core/testdb"
	"github.com/frahmantamala/support-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/support-ticketing/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

// reverseHasher is a cheap reversible stand-in for bcrypt.
type reverseHasher struct{}

func (reverseHasher) Hash(password string) (string, error) {
	runes := []rune(password)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return "rev:" + string(runes), nil
}

var _ = Describe("User Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *user.Service
		admin   access.Actor
		normal  access.Actor
	)

	register := func(name, email, role string) *user.User {
		u, err := service.Register(ctx, admin, user.RegisterUserDTO{Name: name, Email: email, Password: "Str0ngPass", Role: role})
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	stored := func(id int64) userDatamodel.User {
		var row userDatamodel.User
		Expect(db.First(&row, id).Error).To(Succeed())
		return row
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(
			userPostgres.NewUserRepository(db),
			user.NewOrganizationResolver(errors.OrganizationsConfig{}),
			reverseHasher{},
			logger,
		)

		admin = access.Actor{ID: 1000, Role: access.RoleAdmin, Organization: access.OrganizationInternal, Active: true}
		normal = access.Actor{ID: 1001, Role: access.RoleNormal, Organization: access.OrganizationInternal, Active: true}
	})

	Describe("Register", func() {
		It("derives the organization and hashes the password", func() {
			u := register("  Captain  ", " Captain@Oldendorff.com ", "")

			Expect(u.ID).To(BeNumerically(">", 0))
			Expect(u.Name).To(Equal("Captain"))
			Expect(u.Email).To(Equal("captain@oldendorff.com"))
			Expect(u.Organization).To(Equal(access.OrganizationExternal))
			Expect(u.Role).To(Equal(access.RoleNormal))
			Expect(u.IsActive).To(BeTrue())

			row := stored(u.ID)
			Expect(row.PasswordHash).To(Equal("rev:ssaPgn0rtS"))
		})

		It("is admin only", func() {
			_, err := service.Register(ctx, normal, user.RegisterUserDTO{Name: "x", Email: "x@bwesglobal.com", Password: "Str0ngPass"})
			Expect(err).To(MatchError(errors.ErrAccessDenied))
		})

		It("rejects unknown domains, weak passwords, bad roles and duplicates", func() {
			_, err := service.Register(ctx, admin, user.RegisterUserDTO{Name: "x", Email: "x@example.com", Password: "Str0ngPass"})
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			_, err = service.Register(ctx, admin, user.RegisterUserDTO{Name: "x", Email: "x@bwesglobal.com", Password: "weak"})
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			_, err = service.Register(ctx, admin, user.RegisterUserDTO{Name: "x", Email: "x@bwesglobal.com", Password: "Str0ngPass", Role: "owner"})
			Expect(err).To(MatchError(errors.ErrValidationFailed))

			register("Ops", "ops@bwesglobal.com", "admin")
			_, err = service.Register(ctx, admin, user.RegisterUserDTO{Name: "Ops 2", Email: "OPS@bwesglobal.com", Password: "Str0ngPass"})
			Expect(err).To(MatchError(errors.ErrDuplicateName))
		})

		It("reports every missing field at once", func() {
			_, err := service.Register(ctx, admin, user.RegisterUserDTO{})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Details.(errors.ValidationErrors).Fields()).To(ConsistOf("name", "email", "password"))
		})
	})

	Describe("List and Get", func() {
		It("lists newest first with pagination for admins only", func() {
			register("First", "first@bwesglobal.com", "")
			register("Second", "second@bwesglobal.com", "")
			register("Third", "third@oldendorff.com", "")

			users, total, err := service.List(ctx, admin, pagination.New(1, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(users).To(HaveLen(2))

			_, _, err = service.List(ctx, normal, pagination.New(1, 20))
			Expect(err).To(MatchError(errors.ErrAccessDenied))
		})

		It("returns not found for unknown users", func() {
			_, err := service.Get(ctx, admin, 404)
			Expect(err).To(MatchError(errors.ErrNotFound))
		})
	})

	Describe("Update", func() {
		It("re-derives the organization when the email changes", func() {
			u := register("Ops", "ops@bwesglobal.com", "")
			email := "ops@oldendorff.com"

			updated, err := service.Update(ctx, admin, u.ID, user.UpdateUserDTO{Email: &email})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Organization).To(Equal(access.OrganizationExternal))
			Expect(stored(u.ID).Organization).To(Equal("External"))
		})

		It("writes a false is_active and a new role", func() {
			u := register("Ops", "ops@bwesglobal.com", "")
			inactive, role := false, "admin"

			_, err := service.Update(ctx, admin, u.ID, user.UpdateUserDTO{IsActive: &inactive, Role: &role})
			Expect(err).NotTo(HaveOccurred())

			row := stored(u.ID)
			Expect(row.IsActive).To(BeFalse())
			Expect(row.Role).To(Equal("admin"))
		})

		It("rejects an email taken by someone else", func() {
			register("Ops", "ops@bwesglobal.com", "")
			other := register("Other", "other@bwesglobal.com", "")
			taken := "ops@bwesglobal.com"

			_, err := service.Update(ctx, admin, other.ID, user.UpdateUserDTO{Email: &taken})
			Expect(err).To(MatchError(errors.ErrDuplicateName))
		})

		It("rejects blank names, bad emails and bad roles together", func() {
			u := register("Ops", "ops@bwesglobal.com", "")
			blank, bad, role := " ", "not-an-email", "owner"

			_, err := service.Update(ctx, admin, u.ID, user.UpdateUserDTO{Name: &blank, Email: &bad, Role: &role})
			appErr, _ := errors.IsAppError(err)
			Expect(appErr.Details.(errors.ValidationErrors).Fields()).To(Equal([]string{"name", "email", "role"}))
		})
	})

	Describe("ResetPassword", func() {
		It("stores the new hash", func() {
			u := register("Ops", "ops@bwesglobal.com", "")

			Expect(service.ResetPassword(ctx, admin, u.ID, user.ResetPasswordDTO{NewPassword: "N3wPassword"})).To(Succeed())
			Expect(stored(u.ID).PasswordHash).To(Equal("rev:drowssaPw3N"))
		})

		It("enforces the password rules", func() {
			u := register("Ops", "ops@bwesglobal.com", "")
			err := service.ResetPassword(ctx, admin, u.ID, user.ResetPasswordDTO{NewPassword: "short"})
			Expect(err).To(MatchError(errors.ErrValidationFailed))
		})
	})

	Describe("Deactivate", func() {
		It("soft-deletes the user", func() {
			u := register("Ops", "ops@bwesglobal.com", "")

			Expect(service.Deactivate(ctx, admin, u.ID)).To(Succeed())
			Expect(stored(u.ID).IsActive).To(BeFalse())

			active, err := service.ListActive(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeEmpty())
		})

		It("refuses to deactivate the acting admin", func() {
			err := service.Deactivate(ctx, admin, admin.ID)
			Expect(err).To(MatchError(errors.ErrValidationFailed))
		})
	})

	Describe("Profile", func() {
		It("updates only the name", func() {
			u := register("Ops", "ops@bwesglobal.com", "")
			self := u.ToActor()
			name := "  Operations  "

			updated, err := service.UpdateProfile(ctx, self, user.UpdateProfileDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Operations"))

			profile, err := service.Profile(ctx, self)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Name).To(Equal("Operations"))
			Expect(strings.HasPrefix(profile.Email, "ops@")).To(BeTrue())
		})
	})
})
