package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
	"github.com/cimara/stockledger/internal/repository/memory"
)

// failingStore simulates an unreachable store.
type failingStore struct{}

func (failingStore) FindEquipmentByID(context.Context, string) (models.Equipment, error) {
	return models.Equipment{}, apperr.ErrStoreUnreachable
}
func (failingStore) FindEquipmentByName(context.Context, string) (models.Equipment, error) {
	return models.Equipment{}, apperr.ErrStoreUnreachable
}
func (failingStore) ListEquipment(context.Context) ([]models.Equipment, error) {
	return nil, apperr.ErrStoreUnreachable
}
func (failingStore) AdjustQuantity(context.Context, string, int) error {
	return apperr.ErrStoreUnreachable
}
func (failingStore) UpsertEquipmentByName(context.Context, string, int, models.EquipmentDefaults) error {
	return apperr.ErrStoreUnreachable
}
func (failingStore) AddEquipment(context.Context, models.Equipment) (models.Equipment, error) {
	return models.Equipment{}, apperr.ErrStoreUnreachable
}
func (failingStore) UpdateEquipment(context.Context, string, repository.EquipmentUpdate) error {
	return apperr.ErrStoreUnreachable
}
func (failingStore) LowStock(context.Context, int) ([]models.Equipment, error) {
	return nil, apperr.ErrStoreUnreachable
}
func (failingStore) InsertWithdrawal(context.Context, models.Withdrawal) (models.Withdrawal, error) {
	return models.Withdrawal{}, apperr.ErrStoreUnreachable
}
func (failingStore) ListWithdrawals(context.Context, repository.DateRange) ([]models.Withdrawal, error) {
	return nil, apperr.ErrStoreUnreachable
}
func (failingStore) NextReceiptNumber(context.Context, string) (string, error) {
	return "", apperr.ErrStoreUnreachable
}

func newTestRegistry(t *testing.T, unreachable ...string) *registry.Registry {
	t.Helper()

	down := make(map[string]bool)
	for _, dbName := range unreachable {
		down[dbName] = true
	}

	r, err := registry.New(registry.Descriptors("", nil), func(dbName string) repository.Store {
		if down[dbName] {
			return failingStore{}
		}
		return memory.New()
	})
	require.NoError(t, err)
	return r
}

func insertWithdrawal(t *testing.T, stores *registry.Registry, storeKey, receipt string, date time.Time) {
	t.Helper()
	entry, err := stores.Lookup(storeKey)
	require.NoError(t, err)
	_, err = entry.Store.InsertWithdrawal(context.Background(), models.Withdrawal{
		ReceiptNumber:  receipt,
		WithdrawalDate: date,
		SiteKey:        storeKey,
	})
	require.NoError(t, err)
}

func TestQueryMergesAndSortsAcrossStores(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertWithdrawal(t, stores, models.WarehouseKey, "W-RCP-2026-00001", base)
	insertWithdrawal(t, stores, "ENAM", "RCP-2026-00001", base.AddDate(0, 0, 2))
	insertWithdrawal(t, stores, "ISMP", "RCP-2026-00001", base.AddDate(0, 0, 1))

	report, err := svc.Query(ctx, SelectorAll, repository.DateRange{})
	require.NoError(t, err)
	require.Len(t, report.Withdrawals, 3)
	assert.Empty(t, report.SkippedStores)

	assert.Equal(t, "ENAM", report.Withdrawals[0].SiteName)
	assert.Equal(t, "ISMP", report.Withdrawals[1].SiteName)
	assert.Equal(t, "Main Warehouse", report.Withdrawals[2].SiteName)
}

func TestQueryAppliesDateRange(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertWithdrawal(t, stores, "ENAM", "RCP-2026-00001", base)
	insertWithdrawal(t, stores, "ENAM", "RCP-2026-00002", base.AddDate(0, 1, 0))

	report, err := svc.Query(context.Background(), SelectorAll, repository.DateRange{
		From: base.AddDate(0, 0, -1),
		To:   base.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, report.Withdrawals, 1)
	assert.Equal(t, "RCP-2026-00001", report.Withdrawals[0].ReceiptNumber)
}

func TestQueryToleratesUnreachableStore(t *testing.T) {
	stores := newTestRegistry(t, "inventory_site_sdp")
	svc := NewService(stores, 100*time.Millisecond, nil)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertWithdrawal(t, stores, models.WarehouseKey, "W-RCP-2026-00001", base)
	insertWithdrawal(t, stores, "ENAM", "RCP-2026-00001", base)

	report, err := svc.Query(context.Background(), SelectorAll, repository.DateRange{})
	require.NoError(t, err, "one unreachable store must not fail the report")
	assert.Len(t, report.Withdrawals, 2)
	assert.Equal(t, []string{"SDP"}, report.SkippedStores)
}

func TestQuerySingleStoreSelector(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertWithdrawal(t, stores, "ENAM", "RCP-2026-00001", base)
	insertWithdrawal(t, stores, "ISMP", "RCP-2026-00001", base)

	report, err := svc.Query(context.Background(), "ENAM", repository.DateRange{})
	require.NoError(t, err)
	require.Len(t, report.Withdrawals, 1)
	assert.Equal(t, "ENAM", report.Withdrawals[0].SiteName)
}

func TestQueryUnknownSelector(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)

	_, err := svc.Query(context.Background(), "NOPE", repository.DateRange{})
	require.ErrorIs(t, err, apperr.ErrStoreNotFound)
}

func TestQueryRepeatedReadsIdentical(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, key := range []string{"ENAM", "ISMP", "SDP", models.WarehouseKey} {
		insertWithdrawal(t, stores, key, "RCP-2026-00001", base.Add(time.Duration(i)*time.Hour))
	}

	first, err := svc.Query(context.Background(), SelectorAll, repository.DateRange{})
	require.NoError(t, err)
	second, err := svc.Query(context.Background(), SelectorAll, repository.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, first, second, "unchanged data yields identical results, order included")
}

func TestLowStockTagsStores(t *testing.T) {
	stores := newTestRegistry(t)
	svc := NewService(stores, time.Second, nil)
	ctx := context.Background()

	warehouse := stores.Warehouse()
	_, err := warehouse.Store.AddEquipment(ctx, models.Equipment{Name: "Rope", Quantity: 2, Unit: "meters"})
	require.NoError(t, err)
	_, err = warehouse.Store.AddEquipment(ctx, models.Equipment{Name: "Saw", Quantity: 20, Unit: "pieces"})
	require.NoError(t, err)

	enam, err := stores.Lookup("ENAM")
	require.NoError(t, err)
	_, err = enam.Store.AddEquipment(ctx, models.Equipment{Name: "Nail", Quantity: 1, Unit: "boxes"})
	require.NoError(t, err)

	alerts, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.LowStockAlert{Site: "ENAM", Name: "Nail", Quantity: 1, Unit: "boxes"}, alerts[0])
	assert.Equal(t, models.LowStockAlert{Site: "Main Warehouse", Name: "Rope", Quantity: 2, Unit: "meters"}, alerts[1])
}

func TestLowStockToleratesUnreachableStore(t *testing.T) {
	stores := newTestRegistry(t, "inventory_site_minfopra")
	svc := NewService(stores, 100*time.Millisecond, nil)
	ctx := context.Background()

	_, err := stores.Warehouse().Store.AddEquipment(ctx, models.Equipment{Name: "Rope", Quantity: 2, Unit: "meters"})
	require.NoError(t, err)

	alerts, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}
