package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
	"github.com/cimara/stockledger/internal/repository/memory"
	reportingsvc "github.com/cimara/stockledger/internal/service/reporting"
	withdrawalsvc "github.com/cimara/stockledger/internal/service/withdrawal"
)

type testEnv struct {
	engine *gin.Engine
	stores *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores, err := registry.New(registry.Descriptors("", nil), func(string) repository.Store {
		return memory.New()
	})
	require.NoError(t, err)

	withdrawalSvc := withdrawalsvc.NewService(stores, nil, nil)
	reportingSvc := reportingsvc.NewService(stores, time.Second, nil)

	engine := gin.New()
	api := engine.Group("/api")
	wh := NewWithdrawalHandler(withdrawalSvc, stores, nil)
	inv := NewInventoryHandler(stores, nil)
	rep := NewReportHandler(reportingSvc, nil)
	api.GET("/stores/:store/equipment", inv.List)
	api.POST("/stores/:store/equipment", inv.Add)
	api.PUT("/stores/:store/equipment/:id", inv.Update)
	api.GET("/stores/:store/withdrawals", wh.List)
	api.POST("/stores/:store/withdrawals", wh.Create)
	api.POST("/warehouse/transfers", wh.Transfer)
	api.GET("/reports", rep.Query)
	api.GET("/alerts/low-stock", rep.LowStock)

	return &testEnv{engine: engine, stores: stores}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedWarehouse(t *testing.T, name string, quantity int) string {
	t.Helper()
	rec, err := e.stores.Warehouse().Store.AddEquipment(context.Background(), models.Equipment{
		Name: name, Quantity: quantity, Unit: "pieces",
	})
	require.NoError(t, err)
	return rec.ID.Hex()
}

func TestWithdrawEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedWarehouse(t, "Helmet", 10)

	rec := env.do(t, http.MethodPost, "/api/stores/WAREHOUSE/withdrawals", WithdrawalRequest{
		Items: []LineItemRequest{{EquipmentID: id, QuantityWithdrawn: 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result withdrawalsvc.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, fmt.Sprintf("W-RCP-%d-00001", time.Now().UTC().Year()), result.ReceiptNumber)
	assert.NotEmpty(t, result.TransactionID)
}

func TestWithdrawInsufficientStockMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedWarehouse(t, "Helmet", 10)

	rec := env.do(t, http.MethodPost, "/api/stores/WAREHOUSE/withdrawals", WithdrawalRequest{
		Items: []LineItemRequest{{EquipmentID: id, QuantityWithdrawn: 15}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_stock", body.Kind)
}

func TestWithdrawValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/stores/WAREHOUSE/withdrawals", WithdrawalRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/stores/WAREHOUSE/withdrawals", WithdrawalRequest{
		Items: []LineItemRequest{{EquipmentName: "Helmet", QuantityWithdrawn: 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawUnknownStore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/stores/NOPE/withdrawals", WithdrawalRequest{
		Items: []LineItemRequest{{EquipmentName: "Helmet", QuantityWithdrawn: 1}},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "store_not_found", body.Kind)
}

func TestTransferEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedWarehouse(t, "Helmet", 10)

	rec := env.do(t, http.MethodPost, "/api/warehouse/transfers", WithdrawalRequest{
		DestinationSite: "ENAM",
		Items:           []LineItemRequest{{EquipmentID: id, QuantityWithdrawn: 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	enam, err := env.stores.Lookup("ENAM")
	require.NoError(t, err)
	transferred, err := enam.Store.FindEquipmentByName(context.Background(), "Helmet")
	require.NoError(t, err)
	assert.Equal(t, 3, transferred.Quantity)
}

func TestTransferRequiresDestination(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedWarehouse(t, "Helmet", 10)

	rec := env.do(t, http.MethodPost, "/api/warehouse/transfers", WithdrawalRequest{
		Items: []LineItemRequest{{EquipmentID: id, QuantityWithdrawn: 3}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEquipmentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/stores/ENAM/equipment", AddEquipmentRequest{
		Name: "Drill", Quantity: 4, Unit: "pieces", Location: "B1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored models.Equipment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, 4, stored.Quantity)

	rec = env.do(t, http.MethodGet, "/api/stores/ENAM/equipment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Equipment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	quantity := 9
	rec = env.do(t, http.MethodPut, "/api/stores/ENAM/equipment/"+stored.ID.Hex(), UpdateEquipmentRequest{
		Quantity: &quantity,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	negative := -1
	rec = env.do(t, http.MethodPut, "/api/stores/ENAM/equipment/"+stored.ID.Hex(), UpdateEquipmentRequest{
		Quantity: &negative,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEquipmentAddRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/stores/ENAM/equipment", AddEquipmentRequest{
		Name: "Drill",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedWarehouse(t, "Helmet", 10)

	rec := env.do(t, http.MethodPost, "/api/warehouse/transfers", WithdrawalRequest{
		DestinationSite: "ENAM",
		WithdrawalDate:  "2026-08-15",
		Items:           []LineItemRequest{{EquipmentID: id, QuantityWithdrawn: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/reports?startDate=2026-08-01&endDate=2026-08-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report reportingsvc.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Withdrawals, 2, "source record plus replicated incoming transfer")

	rec = env.do(t, http.MethodGet, "/api/reports?store=ENAM&startDate=2026-08-01&endDate=2026-08-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Withdrawals, 1)
	assert.Equal(t, models.TypeIncomingTransfer, report.Withdrawals[0].Type)
}

func TestReportRejectsBadDates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/reports?startDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLowStockEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedWarehouse(t, "Rope", 2)
	env.seedWarehouse(t, "Saw", 20)

	rec := env.do(t, http.MethodGet, "/api/alerts/low-stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []models.LowStockAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Rope", alerts[0].Name)
	assert.Equal(t, "Main Warehouse", alerts[0].Site)

	rec = env.do(t, http.MethodGet, "/api/alerts/low-stock?threshold=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
