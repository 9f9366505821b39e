// Package registry maps store keys to their descriptors and opened
// ledger handles. Built once at startup from static configuration and
// read-only afterwards.
package registry

import (
	"fmt"
	"strings"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/repository"
)

// Entry pairs one store descriptor with its ledger handle.
type Entry struct {
	Descriptor models.StoreDescriptor
	Store      repository.Store
}

// Registry holds every registered store, warehouse first.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// Opener builds the ledger handle for one store's database.
type Opener func(dbName string) repository.Store

// SiteKeys lists the registered site stores in display order. The
// warehouse is registered separately under models.WarehouseKey.
var SiteKeys = []string{"ENAM", "MINFOPRA", "SUPPTIC", "ISMP", "SDP"}

var siteLabels = map[string]string{
	"ENAM":     "ENAM",
	"MINFOPRA": "MINFOPRA",
	"SUPPTIC":  "SUP'PTIC",
	"ISMP":     "ISMP",
	"SDP":      "SDP",
}

// Descriptors returns the static store descriptors, warehouse first.
// dbOverrides replaces the default database name per store key.
func Descriptors(warehouseDB string, dbOverrides map[string]string) []models.StoreDescriptor {
	if warehouseDB == "" {
		warehouseDB = "inventory_warehouse_main"
	}

	descriptors := []models.StoreDescriptor{{
		Key:           models.WarehouseKey,
		Label:         "Main Warehouse",
		DBName:        warehouseDB,
		ReceiptPrefix: "W-RCP",
	}}

	for _, key := range SiteKeys {
		dbName := "inventory_site_" + strings.ToLower(key)
		if override := dbOverrides[key]; override != "" {
			dbName = override
		}
		descriptors = append(descriptors, models.StoreDescriptor{
			Key:           key,
			Label:         siteLabels[key],
			DBName:        dbName,
			ReceiptPrefix: "RCP",
		})
	}
	return descriptors
}

// New opens one ledger handle per descriptor and indexes them by key.
func New(descriptors []models.StoreDescriptor, open Opener) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(descriptors))}
	for _, d := range descriptors {
		if _, exists := r.index[d.Key]; exists {
			return nil, fmt.Errorf("duplicate store key %q", d.Key)
		}
		r.index[d.Key] = len(r.entries)
		r.entries = append(r.entries, Entry{Descriptor: d, Store: open(d.DBName)})
	}
	for _, e := range r.entries {
		if e.Descriptor.IsWarehouse() {
			return r, nil
		}
	}
	return nil, fmt.Errorf("registry requires a warehouse store")
}

// Lookup resolves a store key or display label to its entry.
func (r *Registry) Lookup(key string) (Entry, error) {
	if i, ok := r.index[key]; ok {
		return r.entries[i], nil
	}
	// The UI layer occasionally sends display labels instead of keys.
	for _, e := range r.entries {
		if e.Descriptor.Label == key {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", apperr.ErrStoreNotFound, key)
}

// Warehouse returns the central warehouse entry.
func (r *Registry) Warehouse() Entry {
	e, _ := r.Lookup(models.WarehouseKey)
	return e
}

// All returns every registered entry, warehouse first.
func (r *Registry) All() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
