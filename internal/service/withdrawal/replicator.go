package withdrawal

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
)

// Replicator copies a committed transfer into the destination store:
// an incoming-transfer record in its withdrawal log plus an
// upsert-by-name credit per line item. Replication sits outside the
// source transaction's atomicity boundary; every error it returns wraps
// apperr.ErrReplication and leaves the source side untouched.
type Replicator struct {
	logger *zap.Logger
}

// NewReplicator wires a replicator instance.
func NewReplicator(logger *zap.Logger) *Replicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicator{logger: logger}
}

// Replicate writes the destination-side view of the transfer. The copy
// keeps the source receipt number for cross-store tracing but gets a
// store-local identifier of its own.
func (r *Replicator) Replicate(ctx context.Context, dest registry.Entry, w models.Withdrawal) error {
	copyRecord := w
	copyRecord.ID = primitive.NewObjectID()
	copyRecord.Type = models.TypeIncomingTransfer
	copyRecord.Source = w.SiteName

	if _, err := dest.Store.InsertWithdrawal(ctx, copyRecord); err != nil {
		return fmt.Errorf("%w: record transfer in %s: %v", apperr.ErrReplication, dest.Descriptor.Key, err)
	}

	for _, item := range w.Items {
		defaults := models.EquipmentDefaults{
			Unit:      item.Unit,
			Category:  "General",
			Condition: "Good",
		}
		if err := dest.Store.UpsertEquipmentByName(ctx, item.EquipmentName, item.QuantityWithdrawn, defaults); err != nil {
			return fmt.Errorf("%w: credit %q in %s: %v", apperr.ErrReplication, item.EquipmentName, dest.Descriptor.Key, err)
		}
		r.logger.Debug("credited transferred equipment",
			zap.String("destination", dest.Descriptor.Key),
			zap.String("equipment", item.EquipmentName),
			zap.Int("quantity", item.QuantityWithdrawn))
	}

	return nil
}
