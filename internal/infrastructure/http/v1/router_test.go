package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Masaki-Miyazawa/erp/internal/docstore/memory"
	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
	"github.com/Masaki-Miyazawa/erp/internal/domain/order"
	"github.com/Masaki-Miyazawa/erp/internal/domain/product"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store := memory.New()
	allocator := sequence.New(store, 0)
	customers := customer.NewService(store, allocator)

	router := NewRouter(RouterConfig{
		Logger:    logger.Default(),
		Store:     store,
		Orders:    order.NewService(store, allocator, customers),
		Customers: customers,
		Products:  product.NewService(store),
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func TestSubmitOrderEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers", map[string]any{
		"name":  "Tanaka Hanako",
		"email": "tanaka@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	customerID := decodeBody(t, rec)["id"].(string)
	assert.Equal(t, "1", customerID)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders", map[string]any{
		"customerId": customerID,
		"items": []map[string]any{
			{"productId": "p-1", "name": "Keyboard", "unitPrice": "100", "quantity": 2},
			{"productId": "p-2", "name": "Mouse Pad", "unitPrice": "50", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	body := decodeBody(t, rec)
	orderID := body["orderId"].(string)
	assert.Regexp(t, `^\d{4}-\d{8}$`, orderID)
	assert.Equal(t, customerID, body["customerId"])
	assert.Equal(t, "250", body["totalAmount"])
	require.Len(t, body["items"], 2)

	// The persisted aggregate is readable back with its lines.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Len(t, body["items"], 2)
	items := body["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "1", first["itemId"])
	assert.Equal(t, "200", first["subtotal"])
}

func TestSubmitOrderValidationError(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", map[string]any{
		"customerId": "",
		"items":      []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestSubmitOrderUnknownCustomer(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders", map[string]any{
		"customerId": "404",
		"items": []map[string]any{
			{"productId": "p-1", "unitPrice": "10", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestGetOrderNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/orders/2024-00000099", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestCustomerUpdateEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/customers", map[string]any{
		"name": "Suzuki Taro",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/customers/"+id, map[string]any{
		"address": "Osaka",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Osaka", body["address"])
	assert.Equal(t, "Suzuki Taro", body["name"])
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// An empty store is ready: the probe treats a missing counter as healthy.
	rec = doJSON(t, router, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
