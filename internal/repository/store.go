// Package repository defines the per-store persistence contract shared
// by the MongoDB and in-memory implementations. One Store corresponds
// to one independently addressable database: the warehouse or a single
// site. Stores offer record-level atomicity only; there is no
// cross-store transaction.
package repository

import (
	"context"
	"time"

	"github.com/cimara/stockledger/internal/domain/models"
)

// DateRange narrows a withdrawal history read to a date window. Zero
// values leave the corresponding bound open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the range places no bounds at all.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t falls inside the (inclusive) range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// EquipmentUpdate carries administrative field corrections applied via
// UpdateEquipment. Nil fields are left untouched. Quantity overwrite is
// reserved for administrative correction; normal flow must go through
// AdjustQuantity / UpsertEquipmentByName.
type EquipmentUpdate struct {
	Name         *string
	Category     *string
	SerialNumber *string
	Quantity     *int
	Unit         *string
	Location     *string
	Condition    *string
	Price        *float64
}

// Store is the stock ledger and withdrawal log of one store.
//
// AdjustQuantity and UpsertEquipmentByName are the only sanctioned
// mutation paths for quantities. A negative delta is applied as a
// single conditional step: it succeeds only when the current quantity
// covers it, otherwise apperr.ErrInsufficientStock is returned and
// nothing changes.
type Store interface {
	FindEquipmentByID(ctx context.Context, id string) (models.Equipment, error)
	FindEquipmentByName(ctx context.Context, name string) (models.Equipment, error)
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	AdjustQuantity(ctx context.Context, id string, delta int) error
	UpsertEquipmentByName(ctx context.Context, name string, delta int, defaults models.EquipmentDefaults) error
	AddEquipment(ctx context.Context, rec models.Equipment) (models.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, update EquipmentUpdate) error
	LowStock(ctx context.Context, threshold int) ([]models.Equipment, error)

	InsertWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, r DateRange) ([]models.Withdrawal, error)
	NextReceiptNumber(ctx context.Context, prefix string) (string, error)
}
