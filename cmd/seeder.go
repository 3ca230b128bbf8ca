package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"os"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/auth"
	"github.com/frahmantamala/support-ticketing/internal/category"
	categoryPostgres "github.com/frahmantamala/support-ticketing/internal/category/postgres"
	"github.com/frahmantamala/support-ticketing/internal/core/datamodel"
	"github.com/frahmantamala/support-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/support-ticketing/internal/user/postgres"
	"github.com/spf13/cobra"
)

const (
	seedAdminEmail = "admin@bwesglobal.com"
	seedAdminName  = "Support Admin"
)

// seedActor stands in for an administrator while bootstrapping an empty
// database.
var seedActor = access.Actor{
	Name:         "seed",
	Role:         access.RoleAdmin,
	Organization: access.OrganizationInternal,
	Active:       true,
}

var seedAdminPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with default categories and an admin user",
	Long:  `Creates the missing default categories and the initial admin account. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, lg, err := setup()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if cfg.Database.Driver == driverSQLite {
			if err := datamodel.AutoMigrate(db); err != nil {
				log.Fatalf("failed to migrate sqlite schema: %v", err)
			}
		}

		ctx := context.Background()

		categories := category.NewService(categoryPostgres.NewCategoryRepository(db), lg)
		created, err := categories.EnsureDefaults(ctx)
		if err != nil {
			log.Fatalf("failed to seed categories: %v", err)
		}
		fmt.Printf("Seeded %d default categories\n", created)

		users := user.NewService(
			userPostgres.NewUserRepository(db),
			user.NewOrganizationResolver(cfg.Organizations),
			auth.NewBcryptHasher(cfg.Security.BCryptCost),
			lg,
		)
		admin, err := users.Register(ctx, seedActor, user.RegisterUserDTO{
			Name:     seedAdminName,
			Email:    seedAdminEmail,
			Password: seedAdminPassword,
			Role:     string(access.RoleAdmin),
		})
		switch {
		case stderrors.Is(err, errors.ErrDuplicateName):
			fmt.Println("admin user already exists:", seedAdminEmail)
		case err != nil:
			log.Fatalf("failed to seed admin user: %v", err)
		default:
			fmt.Println("Seeded admin user:", admin.Email)
		}
	},
}

func init() {
	defaultPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if defaultPassword == "" {
		defaultPassword = "Admin12345"
	}
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", defaultPassword, "password for the seeded admin user")
}
