package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/attachment"
	"github.com/frahmantamala/support-ticketing/internal/attachment/filestore"
	attachmentPostgres "github.com/frahmantamala/support-ticketing/internal/attachment/postgres"
	"github.com/frahmantamala/support-ticketing/internal/auth"
	authPostgres "github.com/frahmantamala/support-ticketing/internal/auth/postgres"
	"github.com/frahmantamala/support-ticketing/internal/category"
	categoryPostgres "github.com/frahmantamala/support-ticketing/internal/category/postgres"
	"github.com/frahmantamala/support-ticketing/internal/comment"
	commentPostgres "github.com/frahmantamala/support-ticketing/internal/comment/postgres"
	"github.com/frahmantamala/support-ticketing/internal/core/datamodel"
	"github.com/frahmantamala/support-ticketing/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/support-ticketing/internal/dashboard/postgres"
	"github.com/frahmantamala/support-ticketing/internal/search"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	ticketPostgres "github.com/frahmantamala/support-ticketing/internal/ticket/postgres"
	"github.com/frahmantamala/support-ticketing/internal/transport"
	"github.com/frahmantamala/support-ticketing/internal/transport/rest"
	"github.com/frahmantamala/support-ticketing/internal/transport/swagger"
	"github.com/frahmantamala/support-ticketing/internal/user"
	userPostgres "github.com/frahmantamala/support-ticketing/internal/user/postgres"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "database", deps.Config.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	if sqlDB, err := deps.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	db := deps.DB

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if _, err := swagger.LoadSpec(context.Background(), swagger.DefaultSpecPath); err != nil {
		lg.Warn("OpenAPI document not loaded; /openapi.yml may be unavailable", "error", err)
	}

	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	files := filestore.NewOS(cfg.Storage.UploadDir)

	ticketRepo := ticketPostgres.NewTicketRepository(db)

	authService := auth.NewService(authPostgres.NewRepository(db), tokens, hasher, lg)
	userService := user.NewService(userPostgres.NewUserRepository(db), user.NewOrganizationResolver(cfg.Organizations), hasher, lg)
	categoryService := category.NewService(categoryPostgres.NewCategoryRepository(db), lg)
	ticketService := ticket.NewService(ticketRepo, files, lg)
	commentService := comment.NewService(commentPostgres.NewCommentRepository(db), lg)
	attachmentService := attachment.NewService(attachmentPostgres.NewFileRepository(db), files, cfg.Storage.MaxFileSize, lg)
	dashboardService := dashboard.NewService(dashboardPostgres.NewRepository(sqlx.NewDb(sqlDB, sqlxDriverName(cfg.Database.Driver))), ticketRepo, lg)
	searchService := search.NewService(ticketRepo, categoryService, userService, lg)

	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(deps.Router, sqlDB, rest.Handlers{
		Auth:       auth.NewHandler(base, authService),
		Users:      user.NewHandler(base, userService),
		Categories: category.NewHandler(base, categoryService),
		Tickets:    ticket.NewHandler(base, ticketService),
		Comments:   comment.NewHandler(base, commentService),
		Files:      attachment.NewHandler(base, attachmentService),
		Dashboard:  dashboard.NewHandler(base, dashboardService),
		Search:     search.NewHandler(base, searchService),
	}, rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		OpenAPIPath:    swagger.DefaultSpecPath,
	}, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, lg, err := setup()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if config.Database.Driver == driverSQLite {
		if err := datamodel.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: chi.NewRouter(),
	}, nil
}

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// initDB opens the configured database through gorm and applies the pool
// settings to the underlying *sql.DB.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case driverPostgres:
		dialector = postgres.Open(cfg.GetDSN())
	case driverSQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// sqlxDriverName selects the sqlx bind style for the configured driver.
func sqlxDriverName(driver string) string {
	if driver == driverSQLite {
		return "sqlite3"
	}
	return "pgx"
}
