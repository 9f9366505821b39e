package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TypeIncomingTransfer marks a withdrawal record replicated into a
// destination store by a warehouse transfer.
const TypeIncomingTransfer = "INCOMING_TRANSFER"

// WithdrawalItem is a denormalized snapshot of one equipment line at
// the time of withdrawal. The snapshot survives later renames or
// deletions of the referenced equipment record.
type WithdrawalItem struct {
	EquipmentID       string `bson:"equipmentId" json:"equipmentId"`
	EquipmentName     string `bson:"equipmentName" json:"equipmentName"`
	QuantityWithdrawn int    `bson:"quantityWithdrawn" json:"quantityWithdrawn"`
	Unit              string `bson:"unit" json:"unit"`
}

// Withdrawal is one immutable stock transaction. It is created once by
// the processor (or the replicator, for incoming transfers) and never
// updated afterwards.
type Withdrawal struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiptNumber   string             `bson:"receiptNumber" json:"receiptNumber"`
	WithdrawalDate  time.Time          `bson:"withdrawalDate" json:"withdrawalDate"`
	SiteKey         string             `bson:"siteKey" json:"siteKey"`
	SiteName        string             `bson:"siteName" json:"siteName"`
	DestinationSite string             `bson:"destinationSiteName,omitempty" json:"destinationSiteName,omitempty"`
	RequestedBy     string             `bson:"requestedBy" json:"requestedBy"`
	ReceiverName    string             `bson:"receiverName" json:"receiverName"`
	SenderName      string             `bson:"senderName" json:"senderName"`
	Notes           string             `bson:"notes" json:"notes"`
	Items           []WithdrawalItem   `bson:"items" json:"items"`
	Type            string             `bson:"type,omitempty" json:"type,omitempty"`
	Source          string             `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// TotalQuantity sums the withdrawn quantities across all line items.
func (w Withdrawal) TotalQuantity() int {
	total := 0
	for _, item := range w.Items {
		total += item.QuantityWithdrawn
	}
	return total
}
