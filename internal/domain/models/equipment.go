package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Equipment is one physical item line in a store's inventory, keyed by
// name within that store. Quantity is only mutated through the ledger's
// atomic adjust/upsert primitives.
type Equipment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Category     string             `bson:"category" json:"category"`
	SerialNumber string             `bson:"serialNumber" json:"serialNumber"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	Unit         string             `bson:"unit" json:"unit"`
	Location     string             `bson:"location" json:"location"`
	Condition    string             `bson:"condition" json:"condition"`
	Price        float64            `bson:"price" json:"price"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EquipmentDefaults seeds the fields of a record created implicitly by
// an upsert-by-name, e.g. the first transfer of an item into a site.
type EquipmentDefaults struct {
	Unit      string
	Category  string
	Condition string
}

// LowStockAlert tags an under-threshold equipment record with the store
// it was found in.
type LowStockAlert struct {
	Site     string `json:"site"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}
