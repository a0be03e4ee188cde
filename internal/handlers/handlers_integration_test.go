package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

const testSecret = "test_jwt_secret"

// setupApp builds a Fiber app over an in-memory SQLite database with the full
// middleware/handler/service/store stack, as main wires it.
func setupApp(t *testing.T) (*fiber.App, *repositories.GORMProductRepository) {
	t.Helper()

	viper.SetDefault("JWT_SECRET", testSecret)
	cfg := config.Load()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	productRepo := repositories.NewGORMProductRepository(db)
	inventoryStore := repositories.NewGORMInventoryStore(db)
	orderStore := repositories.NewGORMOrderStore(db, inventoryStore)

	bus := events.NewBus(logger)
	orderService := services.NewOrderService(orderStore, productRepo, notifications.NoopNotifier{}, bus, cfg.Pricing, logger)
	orderHandler := handlers.NewOrderHandler(orderService, logger)

	app := fiber.New()
	apiV1 := app.Group("/api/v1", middleware.ActorRequired(testSecret))
	orderHandler.RegisterRoutes(apiV1)

	return app, productRepo
}

func tokenFor(t *testing.T, actor models.Actor) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": actor.ID,
		"email":   actor.Email,
		"role":    actor.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	var decoded map[string]any
	if resp.Body != nil {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
	}
	return resp, decoded
}

var (
	customer      = models.Actor{ID: "user-1", Email: "user-1@example.com", Role: "customer"}
	otherCustomer = models.Actor{ID: "user-2", Email: "user-2@example.com", Role: "customer"}
	adminActor    = models.Actor{ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
)

func orderBody(productID string, qty int) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": qty}},
		"shipping_address": map[string]any{
			"full_name":   "Jane Doe",
			"street":      "1 Main St",
			"city":        "Springfield",
			"state":       "IL",
			"postal_code": "62701",
			"country":     "US",
		},
	}
}

func TestOrdersAPI_RequiresAuth(t *testing.T) {
	app, _ := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	resp2.Body.Close()
}

func TestOrdersAPI_CreateAndGet(t *testing.T) {
	app, products := setupApp(t)
	assert.NoError(t, products.Create(&models.Product{ID: "p1", Name: "Laptop", Price: 1200, Stock: 5}))

	token := tokenFor(t, customer)

	resp, created := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("p1", 1))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := created["id"].(string)
	assert.NotEmpty(t, orderID)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, 1200.0, created["subtotal"])
	assert.Equal(t, 120.0, created["tax_amount"])
	assert.Equal(t, 0.0, created["shipping_cost"]) // above the free-shipping threshold
	assert.Equal(t, 1320.0, created["total_amount"])

	// Stock was reserved.
	product, err := products.GetByID("p1")
	assert.NoError(t, err)
	assert.Equal(t, 4, product.Stock)

	resp, fetched := doJSON(t, app, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, orderID, fetched["id"])

	// Another customer cannot read it; an admin can.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+orderID, tokenFor(t, otherCustomer), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+orderID, tokenFor(t, adminActor), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrdersAPI_CreateValidationAndConflict(t *testing.T) {
	app, products := setupApp(t)
	assert.NoError(t, products.Create(&models.Product{ID: "p1", Name: "Mouse", Price: 25, Stock: 2}))

	token := tokenFor(t, customer)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"items": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("p1", 5))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	details := body["details"].(map[string]any)
	assert.Equal(t, "p1", details["product_id"])
	assert.Equal(t, 2.0, details["available"])
	assert.Equal(t, 5.0, details["requested"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("ghost", 1))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrdersAPI_UpdatePermissions(t *testing.T) {
	app, products := setupApp(t)
	assert.NoError(t, products.Create(&models.Product{ID: "p1", Name: "Mouse", Price: 25, Stock: 10}))

	token := tokenFor(t, customer)
	adminToken := tokenFor(t, adminActor)

	_, created := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("p1", 1))
	orderID := created["id"].(string)

	// A customer cannot set the status, even on their own order.
	resp, body := doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderID, token, map[string]any{
		"status": "confirmed",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["message"], "status")

	// Notes are on the allow-list.
	resp, body = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderID, token, map[string]any{
		"notes": "leave at the door",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "leave at the door", body["notes"])

	// Admins may move the status along the lifecycle.
	resp, body = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderID, adminToken, map[string]any{
		"status": "confirmed",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirmed", body["status"])

	// Illegal transition is rejected.
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+orderID, adminToken, map[string]any{
		"status": "delivered",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrdersAPI_CancelAndList(t *testing.T) {
	app, products := setupApp(t)
	assert.NoError(t, products.Create(&models.Product{ID: "p1", Name: "Mouse", Price: 25, Stock: 10}))

	token := tokenFor(t, customer)

	_, created := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("p1", 2))
	orderID := created["id"].(string)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", body["status"])

	// Stock is back.
	product, err := products.GetByID("p1")
	assert.NoError(t, err)
	assert.Equal(t, 10, product.Stock)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/orders?limit=10", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	orders := body["orders"].([]any)
	assert.Len(t, orders, 1)
	assert.Equal(t, false, body["has_more"])
}

func TestOrdersAPI_AdminListStatsAndDelete(t *testing.T) {
	app, products := setupApp(t)
	assert.NoError(t, products.Create(&models.Product{ID: "p1", Name: "Mouse", Price: 25, Stock: 10}))

	token := tokenFor(t, customer)
	adminToken := tokenFor(t, adminActor)

	_, created := doJSON(t, app, http.MethodPost, "/api/v1/orders", token, orderBody("p1", 1))
	orderID := created["id"].(string)

	// Listing everything and stats are admin-only.
	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/orders/all", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/orders/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/orders/all?limit=10", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["orders"].([]any), 1)

	resp, stats := doJSON(t, app, http.MethodGet, "/api/v1/orders/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, stats["total_orders"])
	assert.Equal(t, 1.0, stats["pending_orders"])

	// Deletion is admin-only and returns held stock.
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/orders/"+orderID, token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/orders/"+orderID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	product, err := products.GetByID("p1")
	assert.NoError(t, err)
	assert.Equal(t, 10, product.Stock)
}
