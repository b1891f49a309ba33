package handler

import (
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	appstore "github.com/store/backend/internal/application/store"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/infrastructure/persistence"
	"github.com/store/backend/internal/infrastructure/search"
	"github.com/store/backend/internal/interfaces/http/middleware"
	"github.com/store/backend/tests/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type storeFixture struct {
	db       *gorm.DB
	services *appstore.Services
	router   *gin.Engine
	api      *gin.RouterGroup
}

// newStoreFixture serves the six entity handlers over sqlite and in-memory
// search, without authentication.
func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	backend := search.NewMemoryBackend()

	services := appstore.NewServices(appstore.Repositories{
		Categories: persistence.NewProductCategoryRepository(db),
		Products:   persistence.NewProductRepository(db),
		Orders:     persistence.NewProductOrderRepository(db),
		OrderItems: persistence.NewOrderItemRepository(db),
		Invoices:   persistence.NewInvoiceRepository(db),
		Shipments:  persistence.NewShipmentRepository(db),
	}, appstore.Mirrors{
		Categories: search.MirrorFor[store.ProductCategory](backend),
		Products:   search.MirrorFor[store.Product](backend),
		Orders:     search.MirrorFor[store.ProductOrder](backend),
		OrderItems: search.MirrorFor[store.OrderItem](backend),
		Invoices:   search.MirrorFor[store.Invoice](backend),
		Shipments:  search.MirrorFor[store.Shipment](backend),
	}, zap.NewNop())

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api")
	for _, h := range EntityHandlers(services) {
		h.RegisterRoutes(api)
	}

	return &storeFixture{db: db, services: services, router: router, api: api}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
