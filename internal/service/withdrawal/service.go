// Package withdrawal implements the transfer engine: it validates a
// withdrawal request against current stock, debits the source store,
// numbers and persists the immutable transaction record, and hands
// warehouse-to-site transfers to the replicator as a best-effort side
// effect.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/pkg/clients/webhook"
)

// LineItem names one equipment line of a withdrawal request. Either
// EquipmentID or EquipmentName must be set; resolution tries the id
// first and falls back to the name.
type LineItem struct {
	EquipmentID   string
	EquipmentName string
	Quantity      int
	Unit          string
}

// Request is a validated-on-entry withdrawal or transfer request.
type Request struct {
	WithdrawalDate   time.Time
	RequestedBy      string
	ReceiverName     string
	SenderName       string
	Notes            string
	DestinationStore string
	Items            []LineItem
}

// Result reports the committed source-side transaction. A non-empty
// ReplicationWarning means the destination-side copy failed and is
// pending manual reconciliation; the source debit stands regardless.
type Result struct {
	ReceiptNumber      string `json:"receiptNumber"`
	TransactionID      string `json:"transactionId"`
	ReplicationWarning string `json:"replicationWarning,omitempty"`
}

// Service processes withdrawals against the registered stores.
type Service struct {
	stores     *registry.Registry
	replicator *Replicator
	notifier   webhook.Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires a withdrawal processor.
func NewService(stores *registry.Registry, notifier webhook.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = webhook.Nop{}
	}
	return &Service{
		stores:     stores,
		replicator: NewReplicator(logger.Named("replicator")),
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Process runs one withdrawal end to end. Validation and the stock
// sufficiency check cover every line item before any debit is applied;
// the debits themselves go through the ledger's conditional decrement,
// so a concurrent withdrawal racing past the check still cannot
// overdraw a record.
func (s *Service) Process(ctx context.Context, storeKey string, req Request) (Result, error) {
	source, err := s.stores.Lookup(storeKey)
	if err != nil {
		return Result{}, err
	}

	var dest *registry.Entry
	if req.DestinationStore != "" {
		entry, err := s.stores.Lookup(req.DestinationStore)
		if err != nil {
			return Result{}, err
		}
		if entry.Descriptor.Key == source.Descriptor.Key {
			return Result{}, fmt.Errorf("%w: destination store must differ from source", apperr.ErrValidation)
		}
		dest = &entry
	}

	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	// Resolve and check every line before touching any quantity, so a
	// multi-item withdrawal never applies a partial debit on a
	// validation failure.
	resolved := make([]models.WithdrawalItem, 0, len(req.Items))
	for _, item := range req.Items {
		rec, err := s.resolveItem(ctx, source, item)
		if err != nil {
			return Result{}, err
		}
		if item.Quantity > rec.Quantity {
			return Result{}, fmt.Errorf("%w: %s has %d, requested %d",
				apperr.ErrInsufficientStock, rec.Name, rec.Quantity, item.Quantity)
		}

		unit := item.Unit
		if unit == "" {
			unit = rec.Unit
		}
		resolved = append(resolved, models.WithdrawalItem{
			EquipmentID:       rec.ID.Hex(),
			EquipmentName:     rec.Name,
			QuantityWithdrawn: item.Quantity,
			Unit:              unit,
		})
	}

	if err := s.debitAll(ctx, source, resolved); err != nil {
		return Result{}, err
	}

	receiptNumber, err := source.Store.NextReceiptNumber(ctx, source.Descriptor.ReceiptPrefix)
	if err != nil {
		s.creditAll(ctx, source, resolved)
		return Result{}, fmt.Errorf("assign receipt number: %w", err)
	}

	withdrawalDate := req.WithdrawalDate
	if withdrawalDate.IsZero() {
		withdrawalDate = s.now().UTC()
	}

	record := models.Withdrawal{
		ReceiptNumber:  receiptNumber,
		WithdrawalDate: withdrawalDate,
		SiteKey:        source.Descriptor.Key,
		SiteName:       source.Descriptor.Label,
		RequestedBy:    req.RequestedBy,
		ReceiverName:   req.ReceiverName,
		SenderName:     req.SenderName,
		Notes:          req.Notes,
		Items:          resolved,
		CreatedAt:      s.now().UTC(),
	}
	if dest != nil {
		record.DestinationSite = dest.Descriptor.Label
	}

	stored, err := source.Store.InsertWithdrawal(ctx, record)
	if err != nil {
		s.creditAll(ctx, source, resolved)
		return Result{}, fmt.Errorf("persist withdrawal record: %w", err)
	}

	result := Result{
		ReceiptNumber: stored.ReceiptNumber,
		TransactionID: stored.ID.Hex(),
	}

	s.logger.Info("withdrawal committed",
		zap.String("store", source.Descriptor.Key),
		zap.String("receipt_number", stored.ReceiptNumber),
		zap.Int("items", len(stored.Items)))

	if dest != nil {
		if err := s.replicator.Replicate(ctx, *dest, stored); err != nil {
			// Deliberate eventual consistency: the source debit and
			// record stay committed, the divergence is flagged for
			// manual reconciliation.
			s.logger.Warn("transfer replication failed",
				zap.String("destination", dest.Descriptor.Key),
				zap.String("receipt_number", stored.ReceiptNumber),
				zap.Error(err))
			s.notifyReplicationFailure(ctx, *dest, stored, err)
			result.ReplicationWarning = fmt.Sprintf(
				"transfer committed at source but not replicated to %s", dest.Descriptor.Label)
		}
	}

	return result, nil
}

func validateRequest(req Request) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", apperr.ErrValidation)
	}
	for _, item := range req.Items {
		if item.EquipmentID == "" && item.EquipmentName == "" {
			return fmt.Errorf("%w: line item needs an equipment id or name", apperr.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be a positive integer",
				apperr.ErrValidation, itemLabel(item))
		}
	}
	return nil
}

func itemLabel(item LineItem) string {
	if item.EquipmentName != "" {
		return item.EquipmentName
	}
	return item.EquipmentID
}

func (s *Service) resolveItem(ctx context.Context, source registry.Entry, item LineItem) (models.Equipment, error) {
	if item.EquipmentID != "" {
		rec, err := source.Store.FindEquipmentByID(ctx, item.EquipmentID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, apperr.ErrItemNotFound) || item.EquipmentName == "" {
			return models.Equipment{}, err
		}
	}
	return source.Store.FindEquipmentByName(ctx, item.EquipmentName)
}

// debitAll decrements every resolved line. A failure part way through
// (a concurrent withdrawal winning the race) re-credits the lines
// already debited so the losing request leaves no trace.
func (s *Service) debitAll(ctx context.Context, source registry.Entry, items []models.WithdrawalItem) error {
	for i, item := range items {
		if err := source.Store.AdjustQuantity(ctx, item.EquipmentID, -item.QuantityWithdrawn); err != nil {
			s.creditAll(ctx, source, items[:i])
			return err
		}
	}
	return nil
}

// creditAll reverses applied debits when a step after debitAll fails,
// so an aborted withdrawal never leaves quantity missing without a
// matching record.
func (s *Service) creditAll(ctx context.Context, source registry.Entry, items []models.WithdrawalItem) {
	for _, item := range items {
		if err := source.Store.AdjustQuantity(ctx, item.EquipmentID, item.QuantityWithdrawn); err != nil {
			s.logger.Error("failed to re-credit after aborted withdrawal",
				zap.String("store", source.Descriptor.Key),
				zap.String("equipment_id", item.EquipmentID),
				zap.Error(err))
		}
	}
}

func (s *Service) notifyReplicationFailure(ctx context.Context, dest registry.Entry, w models.Withdrawal, cause error) {
	alert := webhook.Alert{
		Kind: webhook.KindReplicationFailure,
		Message: fmt.Sprintf("transfer %s committed at %s but not replicated to %s",
			w.ReceiptNumber, w.SiteName, dest.Descriptor.Label),
		Details: map[string]any{
			"receiptNumber": w.ReceiptNumber,
			"source":        w.SiteKey,
			"destination":   dest.Descriptor.Key,
			"totalQuantity": w.TotalQuantity(),
			"error":         cause.Error(),
		},
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Warn("failed to deliver replication alert", zap.Error(err))
	}
}
