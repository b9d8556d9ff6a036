package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"procurement-service/internal/imagestore"
	"procurement-service/internal/model"
	"procurement-service/internal/repository"
	"procurement-service/pkg/config"
	"procurement-service/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "handlertest"}})
	os.Exit(m.Run())
}

// newTestServer wires the full route table over an in-memory database, the
// same way main does.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Supplier{}, &model.Item{}, &model.Order{}, &model.OrderLine{}))

	images, err := imagestore.New(t.TempDir())
	require.NoError(t, err)

	supplierRepo := repository.NewSupplierRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db, itemRepo)

	supplierHandler := NewSupplierHandler(supplierRepo)
	itemHandler := NewItemHandler(itemRepo, images)
	orderHandler := NewOrderHandler(orderRepo)

	e := echo.New()
	e.GET("/health", Health)

	suppliers := e.Group("/suppliers")
	suppliers.POST("", supplierHandler.Create)
	suppliers.GET("", supplierHandler.List)
	suppliers.GET("/active", supplierHandler.ListActive)
	suppliers.GET("/:id", supplierHandler.Get)
	suppliers.PUT("/:id", supplierHandler.Update)
	suppliers.DELETE("/:id", supplierHandler.Delete)

	items := e.Group("/items")
	items.POST("", itemHandler.Create)
	items.GET("", itemHandler.List)
	items.GET("/active", itemHandler.ListActive)
	items.GET("/:id", itemHandler.Get)
	items.PUT("/:id", itemHandler.Update)
	items.DELETE("/:id", itemHandler.Delete)

	orders := e.Group("/orders")
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/export", orderHandler.Export)
	orders.GET("/:id", orderHandler.Get)
	orders.PUT("/:id", orderHandler.Update)
	orders.DELETE("/:id", orderHandler.Delete)

	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body %s", rec.Body.String())
}

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body %s", rec.Body.String())
	var body errorBody
	decodeInto(t, rec, &body)
	assert.Equal(t, status, body.Status)
	if message != "" {
		assert.Equal(t, message, body.Message)
	}
}

func supplierBody(email string) map[string]interface{} {
	return map[string]interface{}{
		"supplierName": "Acme Foods",
		"address":      "1 Market St",
		"taxNo":        "TAX-42",
		"country":      "DE",
		"mobileNo":     "4915112345678",
		"email":        email,
	}
}

func createSupplier(t *testing.T, e *echo.Echo, email string) model.Supplier {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/suppliers", supplierBody(email))
	require.Equal(t, http.StatusCreated, rec.Code, "body %s", rec.Body.String())
	var supplier model.Supplier
	decodeInto(t, rec, &supplier)
	return supplier
}

func createItem(t *testing.T, e *echo.Echo, supplierID uint, name, price string) model.Item {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/items", map[string]interface{}{
		"itemName":  name,
		"brand":     "Generic",
		"category":  "Dry Goods",
		"supplier":  supplierID,
		"stockUnit": "kg",
		"unitPrice": price,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body %s", rec.Body.String())
	var item model.Item
	decodeInto(t, rec, &item)
	return item
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSupplierLifecycle(t *testing.T) {
	e := newTestServer(t)

	supplier := createSupplier(t, e, "lifecycle@test.example")
	assert.Equal(t, "SUP-1", supplier.SupplierNo)
	assert.Equal(t, model.SupplierStatusActive, supplier.Status)

	rec := doJSON(t, e, http.MethodGet, "/suppliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Page           int              `json:"page"`
		Limit          int              `json:"limit"`
		TotalSuppliers int64            `json:"totalSuppliers"`
		TotalPages     int64            `json:"totalPages"`
		Suppliers      []model.Supplier `json:"suppliers"`
	}
	decodeInto(t, rec, &list)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.Limit)
	assert.EqualValues(t, 1, list.TotalSuppliers)
	assert.EqualValues(t, 1, list.TotalPages)
	assert.Len(t, list.Suppliers, 1)

	rec = doJSON(t, e, http.MethodGet, fmt.Sprintf("/suppliers/%d", supplier.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPut, fmt.Sprintf("/suppliers/%d", supplier.ID), map[string]interface{}{
		"country": "FR",
		"status":  model.SupplierStatusInactive,
	})
	require.Equal(t, http.StatusOK, rec.Code, "body %s", rec.Body.String())
	var updated model.Supplier
	decodeInto(t, rec, &updated)
	assert.Equal(t, "FR", updated.Country)
	assert.Equal(t, model.SupplierStatusInactive, updated.Status)
	assert.Equal(t, "SUP-1", updated.SupplierNo)

	rec = doJSON(t, e, http.MethodGet, "/suppliers/active", nil)
	var active struct {
		Suppliers []model.SupplierOption `json:"suppliers"`
	}
	decodeInto(t, rec, &active)
	assert.Empty(t, active.Suppliers)

	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/suppliers/%d", supplier.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, e, http.MethodGet, fmt.Sprintf("/suppliers/%d", supplier.ID), nil)
	wantError(t, rec, http.StatusNotFound, "No Supplier found with this id")
}

func TestSupplierValidation(t *testing.T) {
	e := newTestServer(t)

	cases := []struct {
		name    string
		mutate  func(map[string]interface{})
		message string
	}{
		{"missing name", func(b map[string]interface{}) { b["supplierName"] = "" }, "supplierName is required"},
		{"missing country", func(b map[string]interface{}) { b["country"] = "" }, "country is required"},
		{"short mobile", func(b map[string]interface{}) { b["mobileNo"] = "12345" }, "mobileNo must be 10 to 15 digits"},
		{"mobile with letters", func(b map[string]interface{}) { b["mobileNo"] = "49151abc45678" }, "mobileNo must be 10 to 15 digits"},
		{"bad email", func(b map[string]interface{}) { b["email"] = "not-an-email" }, "email must be a valid email address"},
		{"bad status", func(b map[string]interface{}) { b["status"] = "Dormant" }, "status must be one of Active, Inactive, Blocked"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := supplierBody("valid@test.example")
			tc.mutate(body)
			rec := doJSON(t, e, http.MethodPost, "/suppliers", body)
			wantError(t, rec, http.StatusBadRequest, tc.message)
		})
	}
}

func TestSupplierDuplicateEmail(t *testing.T) {
	e := newTestServer(t)
	createSupplier(t, e, "dup@test.example")

	rec := doJSON(t, e, http.MethodPost, "/suppliers", supplierBody("dup@test.example"))
	wantError(t, rec, http.StatusConflict, "A supplier with this email already exists.")
}

func TestPaginationValidation(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{
		"/suppliers?page=0",
		"/suppliers?limit=-1",
		"/items?page=abc",
		"/orders?limit=0",
	} {
		rec := doJSON(t, e, http.MethodGet, path, nil)
		wantError(t, rec, http.StatusBadRequest, "Page and limit must be positive integers.")
	}
}

func TestInvalidIDFormat(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/suppliers/abc", "/items/abc", "/orders/abc"} {
		rec := doJSON(t, e, http.MethodGet, path, nil)
		wantError(t, rec, http.StatusBadRequest, "Invalid ID format")
	}
}

func TestItemLifecycle(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "items@test.example")

	item := createItem(t, e, supplier.ID, "Flour", "10.00")
	assert.Equal(t, "ITM-001", item.ItemNo)
	assert.Equal(t, model.ItemStatusEnabled, item.Status)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("10.00")),
		"unitPrice = %s", item.UnitPrice)

	rec := doJSON(t, e, http.MethodGet, "/items", nil)
	var list struct {
		TotalItems int64        `json:"totalItems"`
		Items      []model.Item `json:"items"`
	}
	decodeInto(t, rec, &list)
	assert.EqualValues(t, 1, list.TotalItems)
	require.Len(t, list.Items, 1)
	require.NotNil(t, list.Items[0].Supplier)
	assert.Equal(t, supplier.ID, list.Items[0].Supplier.ID)

	rec = doJSON(t, e, http.MethodPut, fmt.Sprintf("/items/%d", item.ID), map[string]interface{}{
		"status": model.ItemStatusDisabled,
	})
	require.Equal(t, http.StatusOK, rec.Code, "body %s", rec.Body.String())

	// Disabled items drop out of the active projection but stay reachable.
	rec = doJSON(t, e, http.MethodGet, "/items/active", nil)
	var active struct {
		Items []model.ItemOption `json:"items"`
	}
	decodeInto(t, rec, &active)
	assert.Empty(t, active.Items)

	rec = doJSON(t, e, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/items/%d", item.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, e, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), nil)
	wantError(t, rec, http.StatusNotFound, "No item found with this id")
}

func TestItemValidation(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "itemvalidation@test.example")

	cases := []struct {
		name    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{
			"missing name",
			map[string]interface{}{"supplier": supplier.ID, "stockUnit": "kg", "unitPrice": "1.00"},
			http.StatusBadRequest, "itemName is required",
		},
		{
			"bad stock unit",
			map[string]interface{}{"itemName": "Flour", "supplier": supplier.ID, "stockUnit": "boxes", "unitPrice": "1.00"},
			http.StatusBadRequest, "stockUnit must be one of kg, g, liters, pcs",
		},
		{
			"non-positive price",
			map[string]interface{}{"itemName": "Flour", "supplier": supplier.ID, "stockUnit": "kg", "unitPrice": "0"},
			http.StatusBadRequest, "unitPrice must be a positive number",
		},
		{
			"unknown supplier",
			map[string]interface{}{"itemName": "Flour", "supplier": 999, "stockUnit": "kg", "unitPrice": "1.00"},
			http.StatusNotFound, "Supplier not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/items", tc.body)
			wantError(t, rec, tc.status, tc.message)
		})
	}
}

func multipartItemForm(t *testing.T, fields map[string]string, imageNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, form.WriteField(k, v))
	}
	for _, name := range imageNames {
		part, err := form.CreateFormFile("itemImages", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	return &buf, form.FormDataContentType()
}

func TestItemCreateMultipartStoresImages(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "images@test.example")

	body, contentType := multipartItemForm(t, map[string]string{
		"itemName":  "Basmati Rice",
		"supplier":  fmt.Sprint(supplier.ID),
		"stockUnit": "kg",
		"unitPrice": "12.50",
	}, "front.png", "back.png")

	req := httptest.NewRequest(http.MethodPost, "/items", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "body %s", rec.Body.String())

	var item model.Item
	decodeInto(t, rec, &item)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("12.50")),
		"unitPrice = %s", item.UnitPrice)

	// The images are attached in the background after the response.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := doJSON(t, e, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), nil)
		var got model.Item
		decodeInto(t, rec, &got)
		if len(got.ItemImages) == 2 {
			for _, path := range got.ItemImages {
				assert.True(t, strings.HasPrefix(path, imagestore.PublicPrefix+"/"),
					"image path %q", path)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("images never attached, last list %v", got.ItemImages)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestItemCreateTooManyImages(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "toomany@test.example")

	names := make([]string, imagestore.MaxImagesPerItem+1)
	for i := range names {
		names[i] = fmt.Sprintf("img-%d.png", i)
	}
	body, contentType := multipartItemForm(t, map[string]string{
		"itemName":  "Overloaded",
		"supplier":  fmt.Sprint(supplier.ID),
		"stockUnit": "pcs",
		"unitPrice": "1.00",
	}, names...)

	req := httptest.NewRequest(http.MethodPost, "/items", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	wantError(t, rec, http.StatusBadRequest, "A maximum of 5 item images are allowed")
}

func TestOrderFlow(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "orders@test.example")
	flour := createItem(t, e, supplier.ID, "Flour", "10.00")
	sugar := createItem(t, e, supplier.ID, "Sugar", "2.50")

	rec := doJSON(t, e, http.MethodPost, "/orders", map[string]interface{}{
		"supplier": supplier.ID,
		"items": []map[string]interface{}{
			{"item": flour.ID, "orderQty": "3", "discount": "2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body %s", rec.Body.String())

	var order model.Order
	decodeInto(t, rec, &order)
	assert.Equal(t, "ORD-1", order.OrderNo)
	assert.True(t, order.ItemTotal.Equal(decimal.RequireFromString("30")), "itemTotal = %s", order.ItemTotal)
	assert.True(t, order.DiscountTotal.Equal(decimal.RequireFromString("2")), "discountTotal = %s", order.DiscountTotal)
	assert.True(t, order.NetAmount.Equal(decimal.RequireFromString("28")), "netAmount = %s", order.NetAmount)
	require.Len(t, order.Lines, 1)
	require.NotNil(t, order.Lines[0].Item)
	require.NotNil(t, order.Supplier)
	assert.Equal(t, "SUP-1", order.Supplier.SupplierNo)

	rec = doJSON(t, e, http.MethodGet, "/orders", nil)
	var list struct {
		TotalOrders int64         `json:"totalOrders"`
		Orders      []model.Order `json:"orders"`
	}
	decodeInto(t, rec, &list)
	assert.EqualValues(t, 1, list.TotalOrders)
	assert.Len(t, list.Orders, 1)

	// Replacing the lines re-prices the order.
	rec = doJSON(t, e, http.MethodPut, fmt.Sprintf("/orders/%d", order.ID), map[string]interface{}{
		"items": []map[string]interface{}{
			{"item": sugar.ID, "orderQty": "4", "discount": "1"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, "body %s", rec.Body.String())
	var updated model.Order
	decodeInto(t, rec, &updated)
	assert.True(t, updated.ItemTotal.Equal(decimal.RequireFromString("10")), "itemTotal = %s", updated.ItemTotal)
	assert.True(t, updated.NetAmount.Equal(decimal.RequireFromString("9")), "netAmount = %s", updated.NetAmount)
	assert.Equal(t, "ORD-1", updated.OrderNo)

	rec = doJSON(t, e, http.MethodDelete, fmt.Sprintf("/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, e, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
	wantError(t, rec, http.StatusNotFound, "Order not found")
}

func TestOrderValidation(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "ordervalidation@test.example")
	item := createItem(t, e, supplier.ID, "Flour", "10.00")

	cases := []struct {
		name    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{
			"missing supplier",
			map[string]interface{}{
				"items": []map[string]interface{}{{"item": item.ID, "orderQty": "1"}},
			},
			http.StatusBadRequest, "supplier is required",
		},
		{
			"empty items",
			map[string]interface{}{"supplier": supplier.ID, "items": []map[string]interface{}{}},
			http.StatusBadRequest, "items must contain at least one line",
		},
		{
			"zero quantity",
			map[string]interface{}{
				"supplier": supplier.ID,
				"items":    []map[string]interface{}{{"item": item.ID, "orderQty": "0"}},
			},
			http.StatusBadRequest, "items.orderQty must be a positive number",
		},
		{
			"negative discount",
			map[string]interface{}{
				"supplier": supplier.ID,
				"items":    []map[string]interface{}{{"item": item.ID, "orderQty": "1", "discount": "-1"}},
			},
			http.StatusBadRequest, "items.discount must not be negative",
		},
		{
			"unknown supplier",
			map[string]interface{}{
				"supplier": 999,
				"items":    []map[string]interface{}{{"item": item.ID, "orderQty": "1"}},
			},
			http.StatusNotFound, "Supplier not found",
		},
		{
			"unknown item",
			map[string]interface{}{
				"supplier": supplier.ID,
				"items":    []map[string]interface{}{{"item": 42, "orderQty": "1"}},
			},
			http.StatusNotFound, "Item with ID 42 not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/orders", tc.body)
			wantError(t, rec, tc.status, tc.message)
		})
	}
}

func TestOrdersExport(t *testing.T) {
	e := newTestServer(t)
	supplier := createSupplier(t, e, "export@test.example")
	item := createItem(t, e, supplier.ID, "Flour", "10.00")

	rec := doJSON(t, e, http.MethodPost, "/orders", map[string]interface{}{
		"supplier": supplier.ID,
		"items": []map[string]interface{}{
			{"item": item.ID, "orderQty": "3", "discount": "2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body %s", rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/orders/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="orders.xlsx"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.NotZero(t, rec.Body.Len())
}
