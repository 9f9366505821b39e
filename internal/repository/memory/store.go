// Package memory implements the per-store ledger contract in process
// memory. It mirrors the MongoDB implementation's atomicity semantics
// under a store-wide mutex and backs the unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/repository"
)

// Store holds one store's equipment and withdrawal records in memory.
type Store struct {
	mu          sync.Mutex
	equipment   map[string]models.Equipment // keyed by hex id
	nameIndex   map[string]string           // name -> hex id
	withdrawals []models.Withdrawal
	receiptSeq  map[int]int64 // year -> last issued sequence
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		equipment:  make(map[string]models.Equipment),
		nameIndex:  make(map[string]string),
		receiptSeq: make(map[int]int64),
	}
}

// Seed inserts equipment records directly, assigning ids where missing.
// Test setup helper; not part of the repository contract.
func (s *Store) Seed(records ...models.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec.ID.IsZero() {
			rec.ID = primitive.NewObjectID()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		rec.UpdatedAt = rec.CreatedAt
		s.equipment[rec.ID.Hex()] = rec
		s.nameIndex[rec.Name] = rec.ID.Hex()
	}
}

// FindEquipmentByID looks a record up by its hex id.
func (s *Store) FindEquipmentByID(ctx context.Context, id string) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.equipment[id]
	if !ok {
		return models.Equipment{}, fmt.Errorf("%w: id %s", apperr.ErrItemNotFound, id)
	}
	return rec, nil
}

// FindEquipmentByName looks a record up by its unique name.
func (s *Store) FindEquipmentByName(ctx context.Context, name string) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.nameIndex[name]
	if !ok {
		return models.Equipment{}, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, name)
	}
	return s.equipment[id], nil
}

// ListEquipment returns every record, newest first with a stable id
// tie-break so repeated reads are identical.
func (s *Store) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.Equipment, 0, len(s.equipment))
	for _, rec := range s.equipment {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID.Hex() > records[j].ID.Hex()
	})
	return records, nil
}

// AdjustQuantity applies delta under the store mutex; a decrement that
// the current quantity cannot cover is rejected without mutation.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.equipment[id]
	if !ok {
		return fmt.Errorf("%w: id %s", apperr.ErrItemNotFound, id)
	}
	if rec.Quantity+delta < 0 {
		return fmt.Errorf("%w: equipment %s cannot cover %d", apperr.ErrInsufficientStock, id, -delta)
	}

	rec.Quantity += delta
	rec.UpdatedAt = time.Now().UTC()
	s.equipment[id] = rec
	return nil
}

// UpsertEquipmentByName adds delta to the named record, creating it
// from defaults when absent.
func (s *Store) UpsertEquipmentByName(ctx context.Context, name string, delta int, defaults models.EquipmentDefaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.nameIndex[name]; ok {
		rec := s.equipment[id]
		rec.Quantity += delta
		rec.UpdatedAt = now
		s.equipment[id] = rec
		return nil
	}

	rec := models.Equipment{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Quantity:  delta,
		Unit:      defaults.Unit,
		Category:  defaults.Category,
		Condition: defaults.Condition,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.equipment[rec.ID.Hex()] = rec
	s.nameIndex[name] = rec.ID.Hex()
	return nil
}

// AddEquipment records a stock intake, creating the record with the
// full field set when absent.
func (s *Store) AddEquipment(ctx context.Context, in models.Equipment) (models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.nameIndex[in.Name]; ok {
		rec := s.equipment[id]
		rec.Quantity += in.Quantity
		rec.UpdatedAt = now
		s.equipment[id] = rec
		return rec, nil
	}

	in.ID = primitive.NewObjectID()
	in.CreatedAt = now
	in.UpdatedAt = now
	s.equipment[in.ID.Hex()] = in
	s.nameIndex[in.Name] = in.ID.Hex()
	return in, nil
}

// UpdateEquipment applies an administrative field correction.
func (s *Store) UpdateEquipment(ctx context.Context, id string, update repository.EquipmentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.equipment[id]
	if !ok {
		return fmt.Errorf("%w: id %s", apperr.ErrItemNotFound, id)
	}

	if update.Name != nil && *update.Name != rec.Name {
		delete(s.nameIndex, rec.Name)
		rec.Name = *update.Name
		s.nameIndex[rec.Name] = id
	}
	if update.Category != nil {
		rec.Category = *update.Category
	}
	if update.SerialNumber != nil {
		rec.SerialNumber = *update.SerialNumber
	}
	if update.Quantity != nil {
		rec.Quantity = *update.Quantity
	}
	if update.Unit != nil {
		rec.Unit = *update.Unit
	}
	if update.Location != nil {
		rec.Location = *update.Location
	}
	if update.Condition != nil {
		rec.Condition = *update.Condition
	}
	if update.Price != nil {
		rec.Price = *update.Price
	}
	rec.UpdatedAt = time.Now().UTC()
	s.equipment[id] = rec
	return nil
}

// LowStock returns records under threshold, lowest quantity first.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.Equipment
	for _, rec := range s.equipment {
		if rec.Quantity < threshold {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Quantity != records[j].Quantity {
			return records[i].Quantity < records[j].Quantity
		}
		return records[i].Name < records[j].Name
	})
	return records, nil
}

// InsertWithdrawal appends one immutable withdrawal record.
func (s *Store) InsertWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	s.withdrawals = append(s.withdrawals, w)
	return w, nil
}

// ListWithdrawals returns records inside the range, newest first.
func (s *Store) ListWithdrawals(ctx context.Context, r repository.DateRange) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.Withdrawal
	for _, w := range s.withdrawals {
		if r.Contains(w.WithdrawalDate) {
			records = append(records, w)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].WithdrawalDate.Equal(records[j].WithdrawalDate) {
			return records[i].WithdrawalDate.After(records[j].WithdrawalDate)
		}
		return records[i].ID.Hex() > records[j].ID.Hex()
	})
	return records, nil
}

// NextReceiptNumber issues the next number for the current year under
// the store mutex.
func (s *Store) NextReceiptNumber(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	year := time.Now().UTC().Year()
	s.receiptSeq[year]++
	return fmt.Sprintf("%s-%d-%05d", prefix, year, s.receiptSeq[year]), nil
}
