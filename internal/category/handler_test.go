package category_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/category"
	categoryPostgres "github.com/frahmantamala/support-ticketing/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	"github.com/frahmantamala/support-ticketing/internal/core/testdb"
	"github.com/frahmantamala/support-ticketing/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *category.Handler
		router  *chi.Mux
		slogger *slog.Logger
	)

	send := func(method, target, body string, actor *access.Actor) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
		}
		if actor != nil {
			req = req.WithContext(errors.ContextWithActor(req.Context(), *actor))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		repo := categoryPostgres.NewCategoryRepository(db)
		service := category.NewService(repo, slogger)
		handler = category.NewHandler(transport.NewBaseHandler(slogger), service)

		router = chi.NewRouter()
		router.Get("/categories", handler.GetCategories)
		router.Post("/categories", handler.CreateCategory)
		router.Get("/categories/{id}", handler.GetCategory)
		router.Put("/categories/{id}", handler.UpdateCategory)
		router.Post("/categories/{id}/deactivate", handler.DeactivateCategory)

		now := time.Now().UTC()
		for _, cat := range []*categoryDatamodel.Category{
			{Name: "Reporting", Description: "Voyage reporting", IsActive: true, CreatedAt: now, UpdatedAt: now},
			{Name: "Dashboard", Description: "Dashboards", IsActive: true, CreatedAt: now, UpdatedAt: now},
			{Name: "Legacy", Description: "Retired", IsActive: false, CreatedAt: now, UpdatedAt: now},
		} {
			Expect(repo.Create(context.Background(), cat)).To(Succeed())
		}
	})

	It("should handle GET /categories request successfully", func() {
		w := send(http.MethodGet, "/categories", "", &normalActor)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())

		names := make([]string, len(response.Categories))
		for i, cat := range response.Categories {
			names[i] = cat.Name
		}
		Expect(names).To(Equal([]string{"Dashboard", "Reporting"}))
	})

	It("should forbid include_inactive for normal users", func() {
		w := send(http.MethodGet, "/categories?include_inactive=true", "", &normalActor)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"ACCESS_DENIED"`))

		w = send(http.MethodGet, "/categories?include_inactive=true", "", &adminActor)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should require an authenticated actor", func() {
		w := send(http.MethodGet, "/categories", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should create categories and map duplicates to 409", func() {
		w := send(http.MethodPost, "/categories", `{"name":"Safety","description":"HSE"}`, &adminActor)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created category.Category
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Name).To(Equal("Safety"))
		Expect(created.IsActive).To(BeTrue())

		w = send(http.MethodPost, "/categories", `{"name":"Safety"}`, &adminActor)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"DUPLICATE_NAME"`))
	})

	It("should reject malformed bodies and ids", func() {
		w := send(http.MethodPost, "/categories", `{"name":`, &adminActor)
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = send(http.MethodGet, "/categories/abc", "", &adminActor)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for inactive categories read by normal users", func() {
		var legacy categoryDatamodel.Category
		Expect(db.Where("name = ?", "Legacy").First(&legacy).Error).To(Succeed())

		w := send(http.MethodGet, "/categories/"+strconv.FormatInt(legacy.ID, 10), "", &normalActor)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should deactivate a category without tickets", func() {
		var reporting categoryDatamodel.Category
		Expect(db.Where("name = ?", "Reporting").First(&reporting).Error).To(Succeed())

		w := send(http.MethodPost, "/categories/"+strconv.FormatInt(reporting.ID, 10)+"/deactivate", "", &adminActor)
		Expect(w.Code).To(Equal(http.StatusOK))

		var stored categoryDatamodel.Category
		Expect(db.First(&stored, reporting.ID).Error).To(Succeed())
		Expect(stored.IsActive).To(BeFalse())
	})
})
