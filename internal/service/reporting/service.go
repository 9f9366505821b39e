// Package reporting implements the multi-store report aggregator: it
// fans a filtered withdrawal query (or a low-stock sweep) out across
// every registered store concurrently, merges the results, and
// tolerates individual store failures by omission.
package reporting

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
)

// SelectorAll queries every registered store.
const SelectorAll = "all"

// Report is the merged multi-store query result. SkippedStores lists
// the display labels of stores whose read failed and were omitted.
type Report struct {
	Withdrawals   []models.Withdrawal `json:"withdrawals"`
	SkippedStores []string            `json:"skippedStores,omitempty"`
}

// Service aggregates read-only queries across the store registry.
type Service struct {
	stores       *registry.Registry
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewService wires a reporting aggregator. storeTimeout bounds each
// per-store read so one unreachable store cannot stall a whole report.
func NewService(stores *registry.Registry, storeTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Service{stores: stores, storeTimeout: storeTimeout, logger: logger}
}

// Query returns withdrawal records in the date range. selector is
// either SelectorAll or a single store key; with SelectorAll one read
// per store runs concurrently and a failing store is skipped, never
// fatal. Records are tagged with the originating store's display label
// and sorted by withdrawal date descending with a deterministic
// tie-break, so unchanged data yields identical results on every call.
func (s *Service) Query(ctx context.Context, selector string, dateRange repository.DateRange) (Report, error) {
	entries := s.stores.All()
	if selector != "" && selector != SelectorAll {
		entry, err := s.stores.Lookup(selector)
		if err != nil {
			return Report{}, err
		}
		entries = []registry.Entry{entry}
	}

	type storeResult struct {
		label       string
		withdrawals []models.Withdrawal
		err         error
	}

	results := make([]storeResult, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry registry.Entry) {
			defer wg.Done()
			readCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
			defer cancel()

			withdrawals, err := entry.Store.ListWithdrawals(readCtx, dateRange)
			results[i] = storeResult{label: entry.Descriptor.Label, withdrawals: withdrawals, err: err}
		}(i, entry)
	}
	wg.Wait()

	report := Report{Withdrawals: []models.Withdrawal{}}
	for _, res := range results {
		if res.err != nil {
			s.logger.Warn("store omitted from report",
				zap.String("store", res.label),
				zap.Error(res.err))
			report.SkippedStores = append(report.SkippedStores, res.label)
			continue
		}
		for _, w := range res.withdrawals {
			w.SiteName = res.label
			report.Withdrawals = append(report.Withdrawals, w)
		}
	}

	sort.Slice(report.Withdrawals, func(i, j int) bool {
		a, b := report.Withdrawals[i], report.Withdrawals[j]
		if !a.WithdrawalDate.Equal(b.WithdrawalDate) {
			return a.WithdrawalDate.After(b.WithdrawalDate)
		}
		if a.ReceiptNumber != b.ReceiptNumber {
			return a.ReceiptNumber > b.ReceiptNumber
		}
		return a.SiteName < b.SiteName
	})

	return report, nil
}

// LowStock sweeps every registered store for equipment under threshold
// and returns store-tagged alerts. Same fan-out and omission semantics
// as Query.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]models.LowStockAlert, error) {
	entries := s.stores.All()

	type storeResult struct {
		label string
		items []models.Equipment
		err   error
	}

	results := make([]storeResult, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry registry.Entry) {
			defer wg.Done()
			readCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
			defer cancel()

			items, err := entry.Store.LowStock(readCtx, threshold)
			results[i] = storeResult{label: entry.Descriptor.Label, items: items, err: err}
		}(i, entry)
	}
	wg.Wait()

	alerts := []models.LowStockAlert{}
	for _, res := range results {
		if res.err != nil {
			s.logger.Warn("store omitted from low stock sweep",
				zap.String("store", res.label),
				zap.Error(res.err))
			continue
		}
		for _, item := range res.items {
			alerts = append(alerts, models.LowStockAlert{
				Site:     res.label,
				Name:     item.Name,
				Quantity: item.Quantity,
				Unit:     item.Unit,
			})
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Quantity != alerts[j].Quantity {
			return alerts[i].Quantity < alerts[j].Quantity
		}
		if alerts[i].Site != alerts[j].Site {
			return alerts[i].Site < alerts[j].Site
		}
		return alerts[i].Name < alerts[j].Name
	})

	return alerts, nil
}
