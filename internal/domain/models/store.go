package models

// StoreDescriptor identifies one independently addressable store: the
// central warehouse or a single site. Static configuration, read-only
// after startup.
type StoreDescriptor struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	DBName        string `json:"-"`
	ReceiptPrefix string `json:"-"`
}

// IsWarehouse reports whether the descriptor names the central
// warehouse store.
func (d StoreDescriptor) IsWarehouse() bool {
	return d.Key == WarehouseKey
}

// WarehouseKey is the registry key of the central warehouse store.
const WarehouseKey = "WAREHOUSE"
